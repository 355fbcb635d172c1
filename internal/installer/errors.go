package installer

import "fmt"

// missingToolchainError signals that the package manager itself (pip, git,
// or a system package manager) is unavailable.
type missingToolchainError struct{ tool string }

func (e missingToolchainError) Error() string {
	return fmt.Sprintf("required toolchain %q is not available; install it and re-run", e.tool)
}

// ErrMissingToolchain constructs a missingToolchainError.
func ErrMissingToolchain(tool string) error { return missingToolchainError{tool: tool} }

// IsMissingToolchain reports whether err indicates an absent package manager.
func IsMissingToolchain(err error) bool {
	_, ok := err.(missingToolchainError)
	return ok
}

// gitDivergentError signals that updating the local clone would require a
// non-fast-forward merge. Local modifications are never discarded.
type gitDivergentError struct {
	path string
	out  string
}

func (e gitDivergentError) Error() string {
	return fmt.Sprintf("repository at %s has diverged from upstream; resolve manually (output: %s)", e.path, e.out)
}

// IsGitDivergent reports whether err indicates a non-fast-forwardable clone.
func IsGitDivergent(err error) bool {
	_, ok := err.(gitDivergentError)
	return ok
}

// gitNetworkError signals a fetch/clone failure caused by connectivity.
type gitNetworkError struct {
	url string
	out string
}

func (e gitNetworkError) Error() string {
	return fmt.Sprintf("could not reach %s: %s", e.url, e.out)
}

// IsGitNetwork reports whether err indicates a git connectivity failure.
func IsGitNetwork(err error) bool {
	_, ok := err.(gitNetworkError)
	return ok
}
