// Package gateway is a typed client for the Bedrock Access Gateway's
// OpenAI-compatible HTTP surface.
package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bedrockctl/pkg/types"
)

// maxErrorBody bounds how much of an error response is kept for diagnostics.
const maxErrorBody = 4096

// Client issues requests against a running gateway.
type Client struct {
	// BaseURL includes the /api/v1 prefix, e.g. "http://localhost:8000/api/v1".
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	Log     zerolog.Logger
}

// New builds a Client with a bounded default timeout.
func New(baseURL, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 120 * time.Second},
		Log:     log,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeoutErr(err) {
			return httpError{kind: kindTimeout, detail: err.Error()}
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return httpError{kind: kindStatus, status: resp.StatusCode, detail: strings.TrimSpace(string(b))}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return httpError{kind: kindMalformed, detail: err.Error()}
		}
	}
	return nil
}

func isTimeoutErr(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// ListModels fetches the model listing. Descriptors are never cached; every
// selection re-fetches. One bounded retry is applied to transport failures
// only — never to HTTP-level errors, and never to mutating calls.
func (c *Client) ListModels(ctx context.Context) ([]types.ModelDescriptor, error) {
	var resp types.ModelsResponse
	err := c.do(ctx, http.MethodGet, "/models", nil, &resp)
	if err != nil {
		var he httpError
		if errors.As(err, &he) {
			return nil, err
		}
		c.Log.Debug().Err(err).Msg("model listing failed, retrying once")
		if err = c.do(ctx, http.MethodGet, "/models", nil, &resp); err != nil {
			return nil, err
		}
	}
	models := make([]types.ModelDescriptor, 0, len(resp.Data))
	for _, m := range resp.Data {
		models = append(models, types.DescribeModel(m.ID))
	}
	return models, nil
}

// SelectModel picks a model deterministically. With a hint, only an exact id
// match is accepted. Without one, the first id containing "claude"
// (case-insensitive) wins, falling back to the first entry in listing order.
func SelectModel(models []types.ModelDescriptor, hint string) (types.ModelDescriptor, error) {
	if hint != "" {
		for _, m := range models {
			if m.ID == hint {
				return m, nil
			}
		}
		return types.ModelDescriptor{}, ErrModelNotFound(hint)
	}
	if len(models) == 0 {
		return types.ModelDescriptor{}, ErrModelNotFound("(empty model listing)")
	}
	for _, m := range models {
		if strings.Contains(strings.ToLower(m.ID), "claude") {
			return m, nil
		}
	}
	return models[0], nil
}

// CheckReachable maps a failed health probe to a distinct unreachable error
// so callers never surface a raw connection failure.
func (c *Client) CheckReachable(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return unreachableError{baseURL: c.BaseURL}
	}
	resp.Body.Close()
	return nil
}

// InvokeText sends a single-turn chat completion and returns the content of
// the first choice verbatim.
func (c *Client) InvokeText(ctx context.Context, modelID, prompt string, maxTokens int) (string, error) {
	req := types.ChatRequest{
		Model:     modelID,
		Messages:  []types.ChatMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	}
	var resp types.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", httpError{kind: kindMalformed, detail: "response has no choices"}
	}
	return resp.Choices[0].Message.Content, nil
}

// ImageOptions carries the optional knobs of an image generation call.
type ImageOptions struct {
	Width  int
	Height int
}

// InvokeImage asks one model for one image and returns the decoded PNG bytes.
func (c *Client) InvokeImage(ctx context.Context, modelID, prompt string, opts ImageOptions) ([]byte, error) {
	if opts.Width <= 0 {
		opts.Width = 1024
	}
	if opts.Height <= 0 {
		opts.Height = 1024
	}
	req := types.ImageRequest{
		Model:          modelID,
		Prompt:         prompt,
		N:              1,
		Size:           fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		ResponseFormat: "b64_json",
	}
	var resp types.ImageResponse
	if err := c.do(ctx, http.MethodPost, "/images/generations", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, httpError{kind: kindMalformed, detail: "response has no image data"}
	}
	raw := resp.Data[0].B64JSON
	// Strip a data-URL prefix when present.
	if i := strings.Index(raw, ","); i >= 0 && strings.HasPrefix(raw, "data:image") {
		raw = raw[i+1:]
	}
	img, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, httpError{kind: kindMalformed, detail: "invalid base64 image: " + err.Error()}
	}
	return img, nil
}
