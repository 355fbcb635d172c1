// Package prereq verifies external prerequisites (AWS CLI, resolvable
// credentials) before any mutating operation runs. It never changes host
// state on its own; the interactive configure flow is strictly opt-in.
package prereq

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"bedrockctl/internal/common/execx"
)

// CredentialReason classifies why credentials could not be resolved.
type CredentialReason string

const (
	ReasonNotInstalled  CredentialReason = "not_installed"
	ReasonNotConfigured CredentialReason = "not_configured"
)

type credentialError struct {
	reason CredentialReason
	cause  error
}

func (e credentialError) Error() string {
	switch e.reason {
	case ReasonNotInstalled:
		return "aws cli not found in PATH; install it from https://aws.amazon.com/cli/"
	default:
		return fmt.Sprintf("aws credentials not configured (run 'aws configure'): %v", e.cause)
	}
}

func (e credentialError) Unwrap() error { return e.cause }

// IsNotInstalled reports whether err indicates a missing AWS CLI.
func IsNotInstalled(err error) bool {
	ce, ok := err.(credentialError)
	return ok && ce.reason == ReasonNotInstalled
}

// IsNotConfigured reports whether err indicates unresolvable credentials.
func IsNotConfigured(err error) bool {
	ce, ok := err.(credentialError)
	return ok && ce.reason == ReasonNotConfigured
}

// identityAPI is the STS surface the checker depends on.
type identityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Checker resolves AWS credentials and reports the account id.
type Checker struct {
	Region string
	Runner execx.Runner

	// newIdentityAPI is swapped in tests for a fake STS.
	newIdentityAPI func(ctx context.Context, region string) (identityAPI, error)
}

// New builds a Checker for the given region.
func New(region string) *Checker {
	return &Checker{
		Region: region,
		Runner: execx.System(),
		newIdentityAPI: func(ctx context.Context, region string) (identityAPI, error) {
			cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
			if err != nil {
				return nil, err
			}
			return sts.NewFromConfig(cfg), nil
		},
	}
}

// CheckCredentials resolves the caller identity and returns the account id.
// The identity call is bounded; a hung endpoint surfaces as a deadline error,
// never a hang.
func (c *Checker) CheckCredentials(ctx context.Context) (string, error) {
	if _, err := c.Runner.LookPath("aws"); err != nil {
		return "", credentialError{reason: ReasonNotInstalled, cause: err}
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	api, err := c.newIdentityAPI(ctx, c.Region)
	if err != nil {
		return "", credentialError{reason: ReasonNotConfigured, cause: err}
	}
	out, err := api.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", credentialError{reason: ReasonNotConfigured, cause: err}
	}
	if out.Account == nil || *out.Account == "" {
		return "", credentialError{reason: ReasonNotConfigured, cause: fmt.Errorf("empty account in caller identity")}
	}
	return *out.Account, nil
}

// Configure launches the CLI's interactive credential setup, attached to the
// caller's terminal. Callers must have confirmed this with the user first.
func (c *Checker) Configure(ctx context.Context) error {
	path, err := c.Runner.LookPath("aws")
	if err != nil {
		return credentialError{reason: ReasonNotInstalled, cause: err}
	}
	cmd := exec.CommandContext(ctx, path, "configure")
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
