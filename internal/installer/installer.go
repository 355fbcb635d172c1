// Package installer fetches the gateway repository and converges the Python
// runtime dependencies it needs onto their pinned versions. Every operation
// is idempotent: re-running a partially failed install is always safe.
package installer

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bedrockctl/internal/common/execx"
)

// PackagePin names an exact required version. The pin set is a frozen
// compatibility matrix for the gateway's API surface, not a preference.
type PackagePin struct {
	Name    string
	Version string
}

// GatewayPins is the dependency matrix of the Bedrock Access Gateway.
var GatewayPins = []PackagePin{
	{Name: "fastapi", Version: "0.115.8"},
	{Name: "uvicorn", Version: "0.34.0"},
	{Name: "boto3", Version: "1.36.18"},
	{Name: "tiktoken", Version: "0.9.0"},
	{Name: "requests", Version: "2.32.3"},
	{Name: "numpy", Version: "2.2.3"},
}

// State is the coarse installation lifecycle.
type State string

const (
	StateNotInstalled State = "not_installed"
	StateInstalling   State = "installing"
	StateInstalled    State = "installed"
	StateFailed       State = "failed"
)

// Installer converges pinned Python packages via pip.
type Installer struct {
	Runner execx.Runner
	Log    zerolog.Logger
	// Python interpreter used for `-m pip` (default "python3").
	Python string

	state      State
	diagnostic string
}

// New builds an Installer with the system runner.
func New(log zerolog.Logger) *Installer {
	return &Installer{Runner: execx.System(), Log: log, Python: "python3", state: StateNotInstalled}
}

// State reports the current installation state and, for failures, the
// captured diagnostic text.
func (in *Installer) State() (State, string) { return in.state, in.diagnostic }

func (in *Installer) fail(err error) error {
	in.state = StateFailed
	in.diagnostic = err.Error()
	return err
}

// InstalledVersion queries pip for the installed version of name.
// Returns "" when the package is absent.
func (in *Installer) InstalledVersion(ctx context.Context, name string) (string, error) {
	out, err := in.Runner.Output(ctx, execx.Cmd{Path: in.Python, Args: []string{"-m", "pip", "show", name}})
	if err != nil {
		// pip show exits non-zero for unknown packages
		return "", nil
	}
	for _, line := range strings.Split(out, "\n") {
		if v, ok := strings.CutPrefix(line, "Version:"); ok {
			return strings.TrimSpace(v), nil
		}
	}
	return "", nil
}

// InstallDependencies converges each pin. Satisfied pins are skipped without
// any network traffic; mismatched versions are corrected explicitly, since
// drift breaks the gateway's API compatibility.
func (in *Installer) InstallDependencies(ctx context.Context, pins []PackagePin) error {
	in.state = StateInstalling
	if _, err := in.Runner.LookPath(in.Python); err != nil {
		return in.fail(ErrMissingToolchain(in.Python))
	}
	if _, err := in.Runner.Output(ctx, execx.Cmd{Path: in.Python, Args: []string{"-m", "pip", "--version"}}); err != nil {
		return in.fail(ErrMissingToolchain("pip"))
	}
	for _, pin := range pins {
		have, err := in.InstalledVersion(ctx, pin.Name)
		if err != nil {
			return in.fail(err)
		}
		if have == pin.Version {
			in.Log.Debug().Str("package", pin.Name).Str("version", pin.Version).Msg("pin already satisfied")
			continue
		}
		if have != "" {
			in.Log.Info().Str("package", pin.Name).Str("have", have).Str("want", pin.Version).Msg("correcting version drift")
		} else {
			in.Log.Info().Str("package", pin.Name).Str("version", pin.Version).Msg("installing")
		}
		spec := pin.Name + "==" + pin.Version
		installCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		err = in.Runner.Run(installCtx, execx.Cmd{Path: in.Python, Args: []string{"-m", "pip", "install", spec}})
		cancel()
		if err != nil {
			return in.fail(err)
		}
	}
	in.state = StateInstalled
	in.diagnostic = ""
	return nil
}

// EnsureSystemTools installs missing host binaries through the detected
// package manager. Present tools are left untouched.
func (in *Installer) EnsureSystemTools(ctx context.Context, pm PackageManager, tools ...string) error {
	var missing []string
	for _, tool := range tools {
		if _, err := in.Runner.LookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	in.Log.Info().Strs("tools", missing).Str("manager", pm.Name()).Msg("installing system tools")
	return pm.Install(ctx, missing...)
}
