package installer

import (
	"context"
	"fmt"
	"os"

	"bedrockctl/internal/common/execx"
)

// PackageManager installs system packages (git, python3, unzip). Exactly one
// variant is selected at startup by DetectPackageManager and then invoked
// uniformly.
type PackageManager interface {
	Name() string
	Install(ctx context.Context, pkgs ...string) error
}

type aptManager struct{ r execx.Runner }
type yumManager struct{ r execx.Runner }
type dnfManager struct{ r execx.Runner }
type apkManager struct{ r execx.Runner }

func (m aptManager) Name() string { return "apt-get" }
func (m aptManager) Install(ctx context.Context, pkgs ...string) error {
	args := append([]string{"install", "-y"}, pkgs...)
	return runMaybeSudo(ctx, m.r, "apt-get", args...)
}

func (m yumManager) Name() string { return "yum" }
func (m yumManager) Install(ctx context.Context, pkgs ...string) error {
	args := append([]string{"install", "-y"}, pkgs...)
	return runMaybeSudo(ctx, m.r, "yum", args...)
}

func (m dnfManager) Name() string { return "dnf" }
func (m dnfManager) Install(ctx context.Context, pkgs ...string) error {
	args := append([]string{"install", "-y"}, pkgs...)
	return runMaybeSudo(ctx, m.r, "dnf", args...)
}

func (m apkManager) Name() string { return "apk" }
func (m apkManager) Install(ctx context.Context, pkgs ...string) error {
	args := append([]string{"add"}, pkgs...)
	return runMaybeSudo(ctx, m.r, "apk", args...)
}

// directDownloadManager is the fallback when no package manager is present.
// It cannot install arbitrary packages; callers get a missing-toolchain error
// with remediation text instead of a silent no-op.
type directDownloadManager struct{ r execx.Runner }

func (m directDownloadManager) Name() string { return "direct-download" }
func (m directDownloadManager) Install(ctx context.Context, pkgs ...string) error {
	return ErrMissingToolchain(fmt.Sprintf("no system package manager found; install %v manually", pkgs))
}

// DetectPackageManager probes for known package managers in preference order.
// Pure with respect to host state: it only inspects PATH.
func DetectPackageManager(r execx.Runner) PackageManager {
	if _, err := r.LookPath("apt-get"); err == nil {
		return aptManager{r: r}
	}
	if _, err := r.LookPath("dnf"); err == nil {
		return dnfManager{r: r}
	}
	if _, err := r.LookPath("yum"); err == nil {
		return yumManager{r: r}
	}
	if _, err := r.LookPath("apk"); err == nil {
		return apkManager{r: r}
	}
	return directDownloadManager{r: r}
}

// runMaybeSudo prepends sudo when not running as root and sudo is available.
func runMaybeSudo(ctx context.Context, r execx.Runner, name string, args ...string) error {
	if os.Geteuid() == 0 {
		return r.Run(ctx, execx.Cmd{Path: name, Args: args})
	}
	if _, err := r.LookPath("sudo"); err == nil {
		return r.Run(ctx, execx.Cmd{Path: "sudo", Args: append([]string{name}, args...)})
	}
	return r.Run(ctx, execx.Cmd{Path: name, Args: args})
}
