package execx

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Cmd describes one external command invocation.
type Cmd struct {
	Path   string
	Args   []string
	Env    map[string]string // additional env vars
	Dir    string            // working directory
	Stream bool              // if true, stream stdout/err line by line
}

// Runner executes external commands. The default implementation shells out;
// tests substitute a fake to avoid touching the host.
type Runner interface {
	Run(ctx context.Context, c Cmd) error
	Output(ctx context.Context, c Cmd) (string, error)
	LookPath(name string) (string, error)
}

// System returns the Runner backed by os/exec.
func System() Runner { return systemRunner{} }

type systemRunner struct{}

func (systemRunner) Run(ctx context.Context, c Cmd) error {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	cmd.Env = os.Environ()
	for k, v := range c.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	if c.Stream {
		stdout, _ := cmd.StdoutPipe()
		stderr, _ := cmd.StderrPipe()
		if err := cmd.Start(); err != nil {
			return err
		}
		go stream(stdout)
		go stream(stderr)
		return cmd.Wait()
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func (systemRunner) Output(ctx context.Context, c Cmd) (string, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	cmd.Env = os.Environ()
	for k, v := range c.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		tail := strings.TrimSpace(stderr.String())
		if tail != "" {
			return stdout.String(), fmt.Errorf("%s: %w: %s", c.Path, err, tail)
		}
		return stdout.String(), fmt.Errorf("%s: %w", c.Path, err)
	}
	return stdout.String(), nil
}

func (systemRunner) LookPath(name string) (string, error) { return exec.LookPath(name) }

func stream(r io.Reader) {
	s := bufio.NewScanner(r)
	for s.Scan() {
		fmt.Println(s.Text())
	}
}

// Run is a convenience for one-shot commands with inherited streams.
func Run(ctx context.Context, name string, args ...string) error {
	return System().Run(ctx, Cmd{Path: name, Args: args})
}

// Output runs the command and returns its captured stdout.
func Output(ctx context.Context, name string, args ...string) (string, error) {
	return System().Output(ctx, Cmd{Path: name, Args: args})
}
