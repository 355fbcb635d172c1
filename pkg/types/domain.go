package types

import "strings"

// Capability describes what a model can produce.
type Capability string

const (
	CapabilityText  Capability = "text"
	CapabilityImage Capability = "image"
)

// ModelDescriptor is a read-only view of a hosted model. Descriptors are
// re-fetched from the listing endpoint before every selection; they are
// never cached across invocations.
type ModelDescriptor struct {
	// Stable model identifier, e.g. "anthropic.claude-3-7-sonnet-20240620-v1:0".
	ID string `json:"id"`
	// Provider hint derived from the id by substring match, e.g. "claude".
	ProviderHint string     `json:"provider_hint,omitempty"`
	Capability   Capability `json:"capability,omitempty"`
}

// imageIDKeywords marks ids that belong to image generation models.
var imageIDKeywords = []string{"stable", "diffusion", "image", "titan-image", "canvas"}

// DescribeModel builds a descriptor from a raw model id.
func DescribeModel(id string) ModelDescriptor {
	d := ModelDescriptor{ID: id, Capability: CapabilityText}
	lower := strings.ToLower(id)
	for _, kw := range imageIDKeywords {
		if strings.Contains(lower, kw) {
			d.Capability = CapabilityImage
			break
		}
	}
	for _, hint := range []string{"claude", "titan", "stable-diffusion", "llama", "mistral", "nova"} {
		if strings.Contains(lower, hint) {
			d.ProviderHint = hint
			break
		}
	}
	return d
}
