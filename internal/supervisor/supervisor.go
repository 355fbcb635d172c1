// Package supervisor starts and stops the Bedrock Access Gateway subprocess.
// It owns the GatewayProcess record: at most one per port, persisted through
// a StateStore while a background gateway runs.
package supervisor

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"bedrockctl/internal/common/execx"
	"bedrockctl/internal/common/fsutil"
)

// Mode selects how the gateway subprocess relates to the caller.
type Mode string

const (
	// Foreground attaches the caller's streams and blocks until exit.
	Foreground Mode = "foreground"
	// Background detaches the subprocess and logs to a file.
	Background Mode = "background"
)

// GatewayProcess is the record of a spawned gateway.
type GatewayProcess struct {
	PID       int       `json:"pid"`
	Port      int       `json:"port"`
	Mode      Mode      `json:"mode"`
	LogPath   string    `json:"log_path,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// State is the supervisor lifecycle as observed from outside.
type State string

const (
	StateStopped           State = "stopped"
	StateStarting          State = "starting"
	StateRunning           State = "running"
	StateStoppingRequested State = "stopping_requested"
	// StateStale means the sentinel pid is alive but the port no longer
	// answers: the pid was likely reused by an unrelated process.
	StateStale State = "stale"
)

// Supervisor spawns the gateway and tracks its process record.
type Supervisor struct {
	Store  StateStore
	Runner execx.Runner
	Log    zerolog.Logger
	// RepoDir is the gateway clone; the server runs from its src/ tree.
	RepoDir string
	// RunDir holds the sentinel and background log file.
	RunDir string
	// APIKey sent as a bearer token on health probes.
	APIKey string
	// Python interpreter (default "python3").
	Python string

	// commandFor builds the server command; tests substitute a stub.
	commandFor func(port int) *exec.Cmd
	// stopGrace is how long a SIGTERM may take before SIGKILL.
	stopGrace time.Duration
}

// New builds a Supervisor running uvicorn from the gateway clone.
func New(store StateStore, repoDir, runDir, apiKey string, log zerolog.Logger) *Supervisor {
	s := &Supervisor{
		Store:     store,
		Runner:    execx.System(),
		Log:       log,
		RepoDir:   repoDir,
		RunDir:    runDir,
		APIKey:    apiKey,
		Python:    "python3",
		stopGrace: 5 * time.Second,
	}
	s.commandFor = func(port int) *exec.Cmd {
		cmd := exec.Command(s.Python, "-m", "uvicorn", "api.app:app",
			"--host", "0.0.0.0", "--port", fmt.Sprint(port))
		cmd.Dir = filepath.Join(s.RepoDir, "src")
		return cmd
	}
	return s
}

// portBusy probes a local TCP port by dialing it.
func portBusy(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 200*time.Millisecond)
	if err == nil {
		_ = conn.Close()
		return true
	}
	return false
}

// pidAlive reports whether a process with the given pid exists.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}

// checkPreconditions enforces port exclusivity and runtime presence.
func (s *Supervisor) checkPreconditions(port int) error {
	if rec, ok, _ := s.Store.Load(); ok && rec.Port == port && pidAlive(rec.PID) {
		return portInUseError{port: port}
	}
	if portBusy(port) {
		return portInUseError{port: port}
	}
	if _, err := s.Runner.LookPath(s.Python); err != nil {
		return missingRuntimeError{what: s.Python + " not found in PATH"}
	}
	if !fsutil.PathExists(filepath.Join(s.RepoDir, "src")) {
		return missingRuntimeError{what: fmt.Sprintf("gateway source tree %s/src is missing", s.RepoDir)}
	}
	return nil
}

// Start launches the gateway on port. In Foreground mode it blocks until the
// child exits, forwarding interrupt signals so the child terminates cleanly;
// the returned record then describes the finished process. In Background mode
// it returns immediately with the persisted record.
func (s *Supervisor) Start(ctx context.Context, port int, mode Mode) (GatewayProcess, error) {
	if err := s.checkPreconditions(port); err != nil {
		return GatewayProcess{}, err
	}
	switch mode {
	case Background:
		return s.startBackground(port)
	default:
		return s.startForeground(ctx, port)
	}
}

func (s *Supervisor) startForeground(ctx context.Context, port int) (GatewayProcess, error) {
	cmd := s.commandFor(port)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return GatewayProcess{}, s.classifyStartError(err)
	}
	rec := GatewayProcess{PID: cmd.Process.Pid, Port: port, Mode: Foreground, StartedAt: time.Now().UTC()}
	s.Log.Info().Int("pid", rec.PID).Int("port", port).Msg("gateway started in foreground")

	// Forward interrupts so the child never outlives a cancelled run.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		ctxDone := ctx.Done()
		for {
			select {
			case sig := <-sigCh:
				_ = cmd.Process.Signal(sig)
			case <-ctxDone:
				_ = cmd.Process.Signal(syscall.SIGTERM)
				ctxDone = nil // signal once, keep forwarding OS signals
			case <-done:
				return
			}
		}
	}()
	err := cmd.Wait()
	close(done)
	signal.Stop(sigCh)
	if err != nil {
		return rec, fmt.Errorf("gateway exited: %w", err)
	}
	return rec, nil
}

func (s *Supervisor) startBackground(port int) (GatewayProcess, error) {
	if err := fsutil.EnsureDir(s.runDir()); err != nil {
		return GatewayProcess{}, err
	}
	logPath := filepath.Join(s.runDir(), LogName)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return GatewayProcess{}, err
	}
	cmd := s.commandFor(port)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		_ = logFile.Close()
		return GatewayProcess{}, s.classifyStartError(err)
	}
	_ = logFile.Close()
	// Reap in the background so a dead child does not linger as a zombie
	// while this process is still alive.
	go func() { _ = cmd.Wait() }()

	rec := GatewayProcess{
		PID:       cmd.Process.Pid,
		Port:      port,
		Mode:      Background,
		LogPath:   logPath,
		StartedAt: time.Now().UTC(),
	}
	if err := s.Store.Save(rec); err != nil {
		_ = cmd.Process.Kill()
		return GatewayProcess{}, err
	}
	s.Log.Info().Int("pid", rec.PID).Int("port", port).Str("log", logPath).Msg("gateway started in background")
	return rec, nil
}

func (s *Supervisor) runDir() string {
	if s.RunDir == "" {
		return "."
	}
	return s.RunDir
}

func (s *Supervisor) classifyStartError(err error) error {
	if _, ok := err.(*exec.Error); ok {
		return missingRuntimeError{what: err.Error()}
	}
	return err
}

// Stop terminates the tracked process: SIGTERM, then SIGKILL after a grace
// period. A dead pid returns a not-found error but still removes the
// sentinel, so stale records never survive a stop.
func (s *Supervisor) Stop(proc GatewayProcess) error {
	if !pidAlive(proc.PID) {
		_ = s.Store.Clear()
		return notFoundError{pid: proc.PID}
	}
	s.Log.Info().Int("pid", proc.PID).Msg("stopping gateway")
	if err := syscall.Kill(proc.PID, syscall.SIGTERM); err != nil {
		if err == syscall.ESRCH {
			_ = s.Store.Clear()
			return notFoundError{pid: proc.PID}
		}
		return err
	}
	deadline := time.Now().Add(s.stopGrace)
	for time.Now().Before(deadline) {
		if !pidAlive(proc.PID) {
			return s.Store.Clear()
		}
		time.Sleep(50 * time.Millisecond)
	}
	_ = syscall.Kill(proc.PID, syscall.SIGKILL)
	return s.Store.Clear()
}

// Status classifies the tracked gateway. A live pid whose port no longer
// answers is reported stale rather than running: pid existence alone is not
// proof the gateway survived (the pid may have been reused).
func (s *Supervisor) Status(ctx context.Context) (State, GatewayProcess) {
	rec, ok, err := s.Store.Load()
	if err != nil || !ok {
		return StateStopped, GatewayProcess{}
	}
	if !pidAlive(rec.PID) {
		// Dead process detected on probe: drop the record.
		_ = s.Store.Clear()
		return StateStopped, GatewayProcess{}
	}
	if s.HealthProbe(ctx, rec.Port) {
		return StateRunning, rec
	}
	return StateStale, rec
}

// HealthProbe issues a bounded request to the gateway's listing endpoint.
// Any HTTP answer counts: an auth rejection still proves a server is there.
func (s *Supervisor) HealthProbe(ctx context.Context, port int) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	url := fmt.Sprintf("http://localhost:%d/api/v1/models", port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}
