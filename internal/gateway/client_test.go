package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"bedrockctl/pkg/types"
)

func newTestClient(url string) *Client {
	c := New(url+"/api/v1", "bedrock", zerolog.Nop())
	c.HTTP.Timeout = 3 * time.Second
	return c
}

func mockGateway(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestListModels(t *testing.T) {
	ts := mockGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/models" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer bedrock" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"data":[{"id":"amazon.titan-text"},{"id":"anthropic.claude-3-7-sonnet-20240620-v1:0"}]}`)
	})
	c := newTestClient(ts.URL)
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if models[1].ProviderHint != "claude" {
		t.Fatalf("provider hint: %+v", models[1])
	}
}

func TestListModelsRetriesTransportFailureOnce(t *testing.T) {
	var calls int32
	ts := mockGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			// Abort the connection so the client sees a transport error.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("server does not support hijacking")
			}
			conn, _, _ := hj.Hijack()
			conn.Close()
			return
		}
		fmt.Fprint(w, `{"data":[{"id":"m1"}]}`)
	})
	c := newTestClient(ts.URL)
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels with retry: %v", err)
	}
	if len(models) != 1 || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected one retry, calls=%d models=%v", calls, models)
	}
}

func TestListModelsDoesNotRetryHTTPErrors(t *testing.T) {
	var calls int32
	ts := mockGateway(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	c := newTestClient(ts.URL)
	_, err := c.ListModels(context.Background())
	if status, ok := IsStatusError(err); !ok || status != http.StatusInternalServerError {
		t.Fatalf("expected 500 status error, got: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("HTTP errors must not be retried, calls=%d", calls)
	}
}

func TestInvokeTextRoundTrip(t *testing.T) {
	const content = "The Three Laws of Robotics are..."
	ts := mockGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/chat/completions" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req types.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Model != "claude-x" || len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("unexpected request: %+v", req)
		}
		if req.MaxTokens != 4096 {
			t.Errorf("max_tokens: %d", req.MaxTokens)
		}
		resp := types.ChatResponse{Choices: []types.ChatChoice{{Message: types.ChatMessage{Role: "assistant", Content: content}}}}
		_ = json.NewEncoder(w).Encode(resp)
	})
	c := newTestClient(ts.URL)
	got, err := c.InvokeText(context.Background(), "claude-x", "What are the three laws of robotics?", 4096)
	if err != nil {
		t.Fatalf("InvokeText: %v", err)
	}
	if got != content {
		t.Fatalf("content must be returned unmodified: %q", got)
	}
}

func TestInvokeTextMalformedBody(t *testing.T) {
	ts := mockGateway(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices": not json`)
	})
	c := newTestClient(ts.URL)
	if _, err := c.InvokeText(context.Background(), "m", "p", 10); !IsMalformedBody(err) {
		t.Fatalf("expected malformed-body error, got: %v", err)
	}
}

func TestInvokeTextTimeout(t *testing.T) {
	ts := mockGateway(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	})
	c := newTestClient(ts.URL)
	c.HTTP.Timeout = 100 * time.Millisecond
	if _, err := c.InvokeText(context.Background(), "m", "p", 10); !IsTimeout(err) {
		t.Fatalf("expected timeout error, got: %v", err)
	}
}

func TestInvokeImageDecodesB64(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	ts := mockGateway(t, func(w http.ResponseWriter, r *http.Request) {
		var req types.ImageRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Size != "512x768" || req.ResponseFormat != "b64_json" || req.N != 1 {
			t.Errorf("unexpected image request: %+v", req)
		}
		resp := types.ImageResponse{Data: []types.ImageDatum{{B64JSON: base64.StdEncoding.EncodeToString(png)}}}
		_ = json.NewEncoder(w).Encode(resp)
	})
	c := newTestClient(ts.URL)
	got, err := c.InvokeImage(context.Background(), "stabilityai.stable-diffusion-xl-v1", "a sunset", ImageOptions{Width: 512, Height: 768})
	if err != nil {
		t.Fatalf("InvokeImage: %v", err)
	}
	if string(got) != string(png) {
		t.Fatalf("decoded bytes mismatch")
	}
}

func TestInvokeImageStripsDataURLPrefix(t *testing.T) {
	png := []byte("fakepng")
	ts := mockGateway(t, func(w http.ResponseWriter, r *http.Request) {
		resp := types.ImageResponse{Data: []types.ImageDatum{{B64JSON: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)}}}
		_ = json.NewEncoder(w).Encode(resp)
	})
	c := newTestClient(ts.URL)
	got, err := c.InvokeImage(context.Background(), "m", "p", ImageOptions{})
	if err != nil {
		t.Fatalf("InvokeImage: %v", err)
	}
	if string(got) != string(png) {
		t.Fatalf("decoded bytes mismatch: %q", got)
	}
}

func TestCheckReachable(t *testing.T) {
	ts := mockGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized) // an answer still proves reachability
	})
	c := newTestClient(ts.URL)
	if err := c.CheckReachable(context.Background()); err != nil {
		t.Fatalf("CheckReachable: %v", err)
	}
	dead := New("http://127.0.0.1:1/api/v1", "bedrock", zerolog.Nop())
	if err := dead.CheckReachable(context.Background()); !IsUnreachable(err) {
		t.Fatalf("expected unreachable error, got: %v", err)
	}
}
