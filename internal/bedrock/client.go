// Package bedrock invokes foundation models directly through the Bedrock
// Runtime API, bypassing the gateway. Request bodies follow each provider's
// native schema.
package bedrock

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/rs/zerolog"

	"bedrockctl/internal/awsenv"
	"bedrockctl/pkg/types"
)

// DefaultClaudeModel is used when the caller does not pin a model id.
const DefaultClaudeModel = "anthropic.claude-3-7-sonnet-20240620-v1:0"

// anthropicVersion is fixed by the Bedrock Claude contract.
const anthropicVersion = "bedrock-2023-05-31"

// runtimeAPI is the Bedrock Runtime surface used by the client.
type runtimeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// catalogAPI is the Bedrock control-plane surface used for model listing.
type catalogAPI interface {
	ListFoundationModels(ctx context.Context, params *bedrock.ListFoundationModelsInput, optFns ...func(*bedrock.Options)) (*bedrock.ListFoundationModelsOutput, error)
}

// Client calls Bedrock models in one region.
type Client struct {
	Region  string
	Log     zerolog.Logger
	runtime runtimeAPI
	catalog catalogAPI
}

// New builds a Client from the default credential chain.
func New(ctx context.Context, region string, log zerolog.Logger) (*Client, error) {
	cfg, err := awsenv.Load(ctx, region, "", "")
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Client{
		Region:  region,
		Log:     log,
		runtime: bedrockruntime.NewFromConfig(cfg),
		catalog: bedrock.NewFromConfig(cfg),
	}, nil
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	Messages         []claudeMessage `json:"messages"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// InvokeClaude sends a single-turn prompt to a Claude model and returns its
// first text block.
func (c *Client) InvokeClaude(ctx context.Context, modelID, prompt string, maxTokens int) (string, error) {
	if modelID == "" {
		modelID = DefaultClaudeModel
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	body, err := json.Marshal(claudeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		Messages:         []claudeMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	out, err := c.invoke(ctx, modelID, body)
	if err != nil {
		return "", err
	}
	var resp claudeResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return "", fmt.Errorf("decode claude response: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("claude response has no content blocks")
	}
	return resp.Content[0].Text, nil
}

type stabilityTextPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

type stabilityRequest struct {
	TextPrompts []stabilityTextPrompt `json:"text_prompts"`
	CfgScale    int                   `json:"cfg_scale"`
	Seed        int                   `json:"seed"`
	Steps       int                   `json:"steps"`
	Width       int                   `json:"width"`
	Height      int                   `json:"height"`
	Samples     int                   `json:"samples"`
}

type stabilityResponse struct {
	Artifacts []struct {
		Base64 string `json:"base64"`
	} `json:"artifacts"`
}

type titanRequest struct {
	TaskType          string `json:"taskType"`
	TextToImageParams struct {
		Text         string `json:"text"`
		NegativeText string `json:"negativeText"`
	} `json:"textToImageParams"`
	ImageGenerationConfig struct {
		NumberOfImages int     `json:"numberOfImages"`
		Height         int     `json:"height"`
		Width          int     `json:"width"`
		CfgScale       float64 `json:"cfgScale"`
		Seed           int     `json:"seed"`
	} `json:"imageGenerationConfig"`
}

type titanResponse struct {
	Images []string `json:"images"`
}

// ImageParams are the knobs shared by both image body schemas.
type ImageParams struct {
	Width  int
	Height int
	Seed   int
}

func (p *ImageParams) applyDefaults() {
	if p.Width <= 0 {
		p.Width = 1024
	}
	if p.Height <= 0 {
		p.Height = 1024
	}
}

// GenerateImage invokes one image model with its native body and returns the
// decoded image bytes. Stability models use the text_prompts schema; Titan
// models use the TEXT_IMAGE task schema.
func (c *Client) GenerateImage(ctx context.Context, modelID, prompt string, params ImageParams) ([]byte, error) {
	params.applyDefaults()
	var body []byte
	var err error
	if strings.Contains(strings.ToLower(modelID), "titan") {
		req := titanRequest{TaskType: "TEXT_IMAGE"}
		req.TextToImageParams.Text = prompt
		req.TextToImageParams.NegativeText = "low quality, blurry, distorted"
		req.ImageGenerationConfig.NumberOfImages = 1
		req.ImageGenerationConfig.Width = params.Width
		req.ImageGenerationConfig.Height = params.Height
		req.ImageGenerationConfig.CfgScale = 7.0
		req.ImageGenerationConfig.Seed = params.Seed
		body, err = json.Marshal(req)
	} else {
		body, err = json.Marshal(stabilityRequest{
			TextPrompts: []stabilityTextPrompt{{Text: prompt, Weight: 1.0}},
			CfgScale:    7,
			Seed:        params.Seed,
			Steps:       30,
			Width:       params.Width,
			Height:      params.Height,
			Samples:     1,
		})
	}
	if err != nil {
		return nil, err
	}
	out, err := c.invoke(ctx, modelID, body)
	if err != nil {
		return nil, err
	}
	b64, err := firstImageB64(out)
	if err != nil {
		return nil, err
	}
	img, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// firstImageB64 extracts the first image from either response schema.
func firstImageB64(body []byte) (string, error) {
	var stab stabilityResponse
	if err := json.Unmarshal(body, &stab); err == nil && len(stab.Artifacts) > 0 && stab.Artifacts[0].Base64 != "" {
		return stab.Artifacts[0].Base64, nil
	}
	var titan titanResponse
	if err := json.Unmarshal(body, &titan); err == nil && len(titan.Images) > 0 && titan.Images[0] != "" {
		return titan.Images[0], nil
	}
	return "", fmt.Errorf("response carries no image artifacts")
}

func (c *Client) invoke(ctx context.Context, modelID string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()
	c.Log.Debug().Str("model", modelID).Msg("invoking bedrock model")
	out, err := c.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", modelID, err)
	}
	return out.Body, nil
}

// ListImageModels returns the foundation models whose ids look image-capable,
// matching on the same keywords the Bedrock console groups them by.
func (c *Client) ListImageModels(ctx context.Context) ([]types.ModelDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	out, err := c.catalog.ListFoundationModels(ctx, &bedrock.ListFoundationModelsInput{})
	if err != nil {
		return nil, fmt.Errorf("list foundation models: %w", err)
	}
	var models []types.ModelDescriptor
	for _, s := range out.ModelSummaries {
		if s.ModelId == nil {
			continue
		}
		d := types.DescribeModel(*s.ModelId)
		if d.Capability == types.CapabilityImage {
			models = append(models, d)
		}
	}
	return models, nil
}

// ListModels returns all foundation models in the region.
func (c *Client) ListModels(ctx context.Context) ([]types.ModelDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	out, err := c.catalog.ListFoundationModels(ctx, &bedrock.ListFoundationModelsInput{})
	if err != nil {
		return nil, fmt.Errorf("list foundation models: %w", err)
	}
	models := make([]types.ModelDescriptor, 0, len(out.ModelSummaries))
	for _, s := range out.ModelSummaries {
		if s.ModelId == nil {
			continue
		}
		models = append(models, types.DescribeModel(*s.ModelId))
	}
	return models, nil
}
