package installer

import (
	"context"
	"strings"
	"time"

	"bedrockctl/internal/common/execx"
	"bedrockctl/internal/common/fsutil"
)

// GatewayRepoURL is the upstream Bedrock Access Gateway project.
const GatewayRepoURL = "https://github.com/aws-samples/bedrock-access-gateway.git"

// SyncRepository clones url into localPath when absent, otherwise fast-forwards
// the existing clone. A clone that cannot be fast-forwarded fails with a
// divergence error; local modifications are never overwritten.
func (in *Installer) SyncRepository(ctx context.Context, url, localPath string) error {
	if _, err := in.Runner.LookPath("git"); err != nil {
		return in.fail(ErrMissingToolchain("git"))
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if !fsutil.PathExists(localPath) {
		in.Log.Info().Str("url", url).Str("path", localPath).Msg("cloning gateway repository")
		if out, err := in.Runner.Output(ctx, execx.Cmd{Path: "git", Args: []string{"clone", url, localPath}}); err != nil {
			return in.fail(classifyGitError(url, localPath, out, err))
		}
		return nil
	}

	in.Log.Info().Str("path", localPath).Msg("updating gateway repository")
	out, err := in.Runner.Output(ctx, execx.Cmd{Path: "git", Args: []string{"-C", localPath, "pull", "--ff-only"}})
	if err != nil {
		return in.fail(classifyGitError(url, localPath, out, err))
	}
	return nil
}

// classifyGitError maps raw git output to the error taxonomy.
func classifyGitError(url, path, out string, err error) error {
	combined := strings.ToLower(out + " " + err.Error())
	switch {
	case strings.Contains(combined, "not possible to fast-forward"),
		strings.Contains(combined, "divergent branches"),
		strings.Contains(combined, "would be overwritten"):
		return gitDivergentError{path: path, out: strings.TrimSpace(out + " " + err.Error())}
	case strings.Contains(combined, "could not resolve host"),
		strings.Contains(combined, "unable to access"),
		strings.Contains(combined, "connection timed out"),
		strings.Contains(combined, "connection refused"):
		return gitNetworkError{url: url, out: strings.TrimSpace(out + " " + err.Error())}
	default:
		return err
	}
}
