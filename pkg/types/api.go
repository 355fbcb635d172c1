package types

// ChatMessage is a single message in an OpenAI-compatible chat exchange.
type ChatMessage struct {
	// Role of the author: "system", "user" or "assistant".
	Role string `json:"role"`
	// Message text.
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/v1/chat/completions.
// The field set mirrors the gateway's OpenAI-compatible contract and must
// not be extended with fields the gateway does not accept.
type ChatRequest struct {
	Model     string        `json:"model"`
	Messages  []ChatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

// ChatChoice is one completion choice in a chat response.
type ChatChoice struct {
	Message ChatMessage `json:"message"`
	// Why generation stopped (e.g. "stop", "max_tokens").
	FinishReason string `json:"finish_reason,omitempty"`
}

// ChatResponse is the body returned by the chat completions endpoint.
type ChatResponse struct {
	ID      string       `json:"id,omitempty"`
	Model   string       `json:"model,omitempty"`
	Choices []ChatChoice `json:"choices"`
}

// ModelsResponse wraps the model listing returned by GET /api/v1/models.
type ModelsResponse struct {
	Data []ModelEntry `json:"data"`
}

// ModelEntry is one entry in the gateway's model listing.
type ModelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}

// ImageRequest is the body of POST /api/v1/images/generations.
type ImageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	// Size in "WIDTHxHEIGHT" form, e.g. "1024x1024".
	Size string `json:"size"`
	// Always "b64_json"; URL responses are not supported by this client.
	ResponseFormat string `json:"response_format"`
}

// ImageDatum is one generated image in an images response.
type ImageDatum struct {
	B64JSON string `json:"b64_json,omitempty"`
	URL     string `json:"url,omitempty"`
}

// ImageResponse is the body returned by the images endpoint.
type ImageResponse struct {
	Created int64        `json:"created,omitempty"`
	Data    []ImageDatum `json:"data"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	Error string `json:"error"`
	// HTTP status code.
	Code int `json:"code"`
}
