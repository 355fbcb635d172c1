package gateway

import "fmt"

// httpKind classifies gateway HTTP failures.
type httpKind string

const (
	kindTimeout   httpKind = "timeout"
	kindStatus    httpKind = "status"
	kindMalformed httpKind = "malformed_body"
)

type httpError struct {
	kind   httpKind
	status int
	detail string
}

func (e httpError) Error() string {
	switch e.kind {
	case kindTimeout:
		return "gateway request timed out: " + e.detail
	case kindStatus:
		return fmt.Sprintf("gateway returned status %d: %s", e.status, e.detail)
	default:
		return "gateway returned a malformed body: " + e.detail
	}
}

// IsTimeout reports whether err is a gateway request timeout.
func IsTimeout(err error) bool {
	he, ok := err.(httpError)
	return ok && he.kind == kindTimeout
}

// IsStatusError reports whether err is a non-2xx gateway response and, if so,
// the status code.
func IsStatusError(err error) (int, bool) {
	he, ok := err.(httpError)
	if !ok || he.kind != kindStatus {
		return 0, false
	}
	return he.status, true
}

// IsMalformedBody reports whether err indicates an undecodable response.
func IsMalformedBody(err error) bool {
	he, ok := err.(httpError)
	return ok && he.kind == kindMalformed
}

// unreachableError means the gateway did not answer the health probe; the
// caller should start it (or check the port) before invoking models.
type unreachableError struct{ baseURL string }

func (e unreachableError) Error() string {
	return fmt.Sprintf("gateway at %s is unreachable; start it with 'bedrockctl gateway'", e.baseURL)
}

// IsUnreachable reports whether err indicates an unreachable gateway.
func IsUnreachable(err error) bool {
	_, ok := err.(unreachableError)
	return ok
}

// modelNotFoundError signals that a pinned model id is not in the listing.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

// ErrModelNotFound constructs a modelNotFoundError.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}
