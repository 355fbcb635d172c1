package imagegen

import (
	"context"

	"bedrockctl/internal/bedrock"
	"bedrockctl/internal/gateway"
)

// GatewayBackend generates images through the OpenAI-compatible gateway.
type GatewayBackend struct {
	Client *gateway.Client
}

func (b *GatewayBackend) Generate(ctx context.Context, modelID, prompt string, width, height int) ([]byte, error) {
	return b.Client.InvokeImage(ctx, modelID, prompt, gateway.ImageOptions{Width: width, Height: height})
}

// DirectBackend generates images by invoking Bedrock model endpoints
// directly, without the gateway in between.
type DirectBackend struct {
	Client *bedrock.Client
}

func (b *DirectBackend) Generate(ctx context.Context, modelID, prompt string, width, height int) ([]byte, error) {
	return b.Client.GenerateImage(ctx, modelID, prompt, bedrock.ImageParams{Width: width, Height: height})
}
