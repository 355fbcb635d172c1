// Package imagegen turns prompts into PNG files on disk, trying a fixed
// order of image models until one succeeds.
package imagegen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bedrockctl/internal/common/fsutil"
)

// Backend produces raw image bytes for one model id.
type Backend interface {
	Generate(ctx context.Context, modelID, prompt string, width, height int) ([]byte, error)
}

// GatewayCandidates are tried in order when generating through the gateway.
// The gateway flattens Bedrock model ids, so SDXL appears without the
// version suffix.
var GatewayCandidates = []string{
	"stabilityai.stable-diffusion-3-5-large",
	"stabilityai.stable-diffusion-xl-v1",
	"amazon.titan-image-generator-v1",
}

// DirectCandidates are tried in order when invoking Bedrock directly.
var DirectCandidates = []string{
	"stabilityai.stable-diffusion-3-5-large",
	"stability.stable-diffusion-xl-v1:0",
	"amazon.titan-image-generator-v1",
}

// Generator runs the candidate fallback chain and writes results to OutDir.
type Generator struct {
	Backend    Backend
	Candidates []string
	OutDir     string
	Log        zerolog.Logger

	// now is stubbed in tests to pin filenames.
	now func() time.Time
}

// New builds a Generator over the given backend and candidate order.
func New(backend Backend, candidates []string, outDir string, log zerolog.Logger) *Generator {
	return &Generator{
		Backend:    backend,
		Candidates: candidates,
		OutDir:     outDir,
		Log:        log,
		now:        time.Now,
	}
}

// Result records which model produced the image and where it was written.
type Result struct {
	ModelID string
	Path    string
}

type candidateFailure struct {
	modelID string
	err     error
}

// allFailedError aggregates every candidate failure so the caller sees the
// whole chain, not just the last attempt.
type allFailedError struct {
	failures []candidateFailure
}

func (e *allFailedError) Error() string {
	var b strings.Builder
	b.WriteString("all image models failed")
	for _, f := range e.failures {
		fmt.Fprintf(&b, "; %s: %v", f.modelID, f.err)
	}
	return b.String()
}

// IsAllFailed reports whether err means every candidate model was tried and
// none produced an image.
func IsAllFailed(err error) bool {
	_, ok := err.(*allFailedError)
	return ok
}

// Generate tries each candidate in order and saves the first successful
// image. modelID, when non-empty, replaces the candidate chain entirely.
func (g *Generator) Generate(ctx context.Context, modelID, prompt string, width, height int) (*Result, error) {
	candidates := g.Candidates
	if modelID != "" {
		candidates = []string{modelID}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no image model candidates configured")
	}

	var failures []candidateFailure
	for _, id := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g.Log.Info().Str("model", id).Msg("trying image model")
		img, err := g.Backend.Generate(ctx, id, prompt, width, height)
		if err != nil {
			g.Log.Warn().Str("model", id).Err(err).Msg("image model failed")
			failures = append(failures, candidateFailure{modelID: id, err: err})
			continue
		}
		path, err := g.save(id, 0, img)
		if err != nil {
			return nil, err
		}
		g.Log.Info().Str("model", id).Str("path", path).Msg("image saved")
		return &Result{ModelID: id, Path: path}, nil
	}
	return nil, &allFailedError{failures: failures}
}

// Filename builds the on-disk name for a generated image. Dots and colons in
// the model id become underscores so the name stays shell-safe.
func Filename(modelID string, at time.Time, index int) string {
	sanitized := strings.NewReplacer(".", "_", ":", "_").Replace(modelID)
	return fmt.Sprintf("generated_image_%s_%s_%d.png", sanitized, at.Format("20060102_150405"), index)
}

func (g *Generator) save(modelID string, index int, img []byte) (string, error) {
	if err := fsutil.EnsureDir(g.OutDir); err != nil {
		return "", err
	}
	path := filepath.Join(g.OutDir, Filename(modelID, g.now(), index))
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return path, nil
}
