package bedrock

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	bedrocktypes "github.com/aws/aws-sdk-go-v2/service/bedrock/types"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/rs/zerolog"
)

type fakeRuntime struct {
	lastModel string
	lastBody  []byte
	respBody  []byte
	err       error
}

func (f *fakeRuntime) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	if params.ModelId != nil {
		f.lastModel = *params.ModelId
	}
	f.lastBody = params.Body
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.respBody}, nil
}

type fakeCatalog struct {
	ids []string
	err error
}

func (f *fakeCatalog) ListFoundationModels(ctx context.Context, params *bedrock.ListFoundationModelsInput, optFns ...func(*bedrock.Options)) (*bedrock.ListFoundationModelsOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := &bedrock.ListFoundationModelsOutput{}
	for _, id := range f.ids {
		out.ModelSummaries = append(out.ModelSummaries, bedrocktypes.FoundationModelSummary{ModelId: aws.String(id)})
	}
	return out, nil
}

func newTestClient(rt *fakeRuntime, cat *fakeCatalog) *Client {
	return &Client{Region: "us-east-1", Log: zerolog.Nop(), runtime: rt, catalog: cat}
}

func TestInvokeClaudeBody(t *testing.T) {
	rt := &fakeRuntime{respBody: []byte(`{"content":[{"type":"text","text":"hello there"}]}`)}
	c := newTestClient(rt, nil)

	got, err := c.InvokeClaude(context.Background(), "", "say hello", 256)
	if err != nil {
		t.Fatalf("InvokeClaude: %v", err)
	}
	if got != "hello there" {
		t.Fatalf("text = %q, want %q", got, "hello there")
	}
	if rt.lastModel != DefaultClaudeModel {
		t.Fatalf("model = %q, want default %q", rt.lastModel, DefaultClaudeModel)
	}

	var req claudeRequest
	if err := json.Unmarshal(rt.lastBody, &req); err != nil {
		t.Fatalf("unmarshal request body: %v", err)
	}
	if req.AnthropicVersion != "bedrock-2023-05-31" {
		t.Fatalf("anthropic_version = %q", req.AnthropicVersion)
	}
	if req.MaxTokens != 256 {
		t.Fatalf("max_tokens = %d, want 256", req.MaxTokens)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" || req.Messages[0].Content != "say hello" {
		t.Fatalf("messages = %+v", req.Messages)
	}
}

func TestInvokeClaudeEmptyContent(t *testing.T) {
	rt := &fakeRuntime{respBody: []byte(`{"content":[]}`)}
	c := newTestClient(rt, nil)
	if _, err := c.InvokeClaude(context.Background(), "anthropic.claude-3-haiku", "hi", 0); err == nil {
		t.Fatal("expected error for empty content blocks")
	}
}

func TestGenerateImageStabilityBody(t *testing.T) {
	img := []byte{0x89, 0x50, 0x4e, 0x47}
	rt := &fakeRuntime{respBody: []byte(`{"artifacts":[{"base64":"` + base64.StdEncoding.EncodeToString(img) + `"}]}`)}
	c := newTestClient(rt, nil)

	got, err := c.GenerateImage(context.Background(), "stability.stable-diffusion-xl-v1:0", "a lighthouse", ImageParams{})
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if string(got) != string(img) {
		t.Fatalf("image bytes mismatch")
	}

	var req stabilityRequest
	if err := json.Unmarshal(rt.lastBody, &req); err != nil {
		t.Fatalf("unmarshal request body: %v", err)
	}
	if len(req.TextPrompts) != 1 || req.TextPrompts[0].Text != "a lighthouse" || req.TextPrompts[0].Weight != 1.0 {
		t.Fatalf("text_prompts = %+v", req.TextPrompts)
	}
	if req.CfgScale != 7 || req.Steps != 30 || req.Samples != 1 {
		t.Fatalf("cfg_scale=%d steps=%d samples=%d", req.CfgScale, req.Steps, req.Samples)
	}
	if req.Width != 1024 || req.Height != 1024 {
		t.Fatalf("default size = %dx%d, want 1024x1024", req.Width, req.Height)
	}
}

func TestGenerateImageTitanBody(t *testing.T) {
	img := []byte("titan-bytes")
	rt := &fakeRuntime{respBody: []byte(`{"images":["` + base64.StdEncoding.EncodeToString(img) + `"]}`)}
	c := newTestClient(rt, nil)

	got, err := c.GenerateImage(context.Background(), "amazon.titan-image-generator-v1", "a harbor", ImageParams{Width: 512, Height: 512})
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if string(got) != string(img) {
		t.Fatalf("image bytes mismatch")
	}

	var req titanRequest
	if err := json.Unmarshal(rt.lastBody, &req); err != nil {
		t.Fatalf("unmarshal request body: %v", err)
	}
	if req.TaskType != "TEXT_IMAGE" {
		t.Fatalf("taskType = %q", req.TaskType)
	}
	if req.TextToImageParams.Text != "a harbor" {
		t.Fatalf("text = %q", req.TextToImageParams.Text)
	}
	if req.ImageGenerationConfig.Width != 512 || req.ImageGenerationConfig.Height != 512 {
		t.Fatalf("size = %dx%d", req.ImageGenerationConfig.Width, req.ImageGenerationConfig.Height)
	}
	if req.ImageGenerationConfig.NumberOfImages != 1 {
		t.Fatalf("numberOfImages = %d", req.ImageGenerationConfig.NumberOfImages)
	}
}

func TestGenerateImageNoArtifacts(t *testing.T) {
	rt := &fakeRuntime{respBody: []byte(`{"artifacts":[]}`)}
	c := newTestClient(rt, nil)
	if _, err := c.GenerateImage(context.Background(), "stability.stable-diffusion-xl-v1:0", "x", ImageParams{}); err == nil {
		t.Fatal("expected error for empty artifacts")
	}
}

func TestListImageModelsFilters(t *testing.T) {
	cat := &fakeCatalog{ids: []string{
		"anthropic.claude-3-7-sonnet-20240620-v1:0",
		"stability.stable-diffusion-xl-v1:0",
		"amazon.titan-image-generator-v1",
		"amazon.titan-text-express-v1",
	}}
	c := newTestClient(nil, cat)

	models, err := c.ListImageModels(context.Background())
	if err != nil {
		t.Fatalf("ListImageModels: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("got %d image models, want 2: %+v", len(models), models)
	}
	for _, m := range models {
		if m.Capability != "image" {
			t.Fatalf("model %s capability = %q", m.ID, m.Capability)
		}
	}
}

func TestListModelsAll(t *testing.T) {
	cat := &fakeCatalog{ids: []string{"a.one", "b.two", "c.three"}}
	c := newTestClient(nil, cat)
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 3 {
		t.Fatalf("got %d models, want 3", len(models))
	}
}
