package supervisor

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// newTestSupervisor returns a supervisor whose command is a plain sleep and
// whose state lives in memory.
func newTestSupervisor(t *testing.T, store StateStore) *Supervisor {
	t.Helper()
	repo := t.TempDir()
	if err := os.MkdirAll(filepath.Join(repo, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	s := New(store, repo, t.TempDir(), "bedrock", zerolog.Nop())
	s.Python = "sh" // precondition check only needs a resolvable interpreter
	s.stopGrace = 2 * time.Second
	s.commandFor = func(port int) *exec.Cmd { return exec.Command("sleep", "60") }
	return s
}

func waitPidGone(t *testing.T, pid int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if !pidAlive(pid) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("pid %d still alive", pid)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestStartBackgroundPersistsSentinel(t *testing.T) {
	store := NewMemStore()
	s := newTestSupervisor(t, store)
	port := freePort(t)

	rec, err := s.Start(context.Background(), port, Background)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = s.Stop(rec) }()

	if rec.PID <= 0 || rec.Port != port || rec.Mode != Background {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.LogPath == "" {
		t.Fatalf("background record must carry a log path")
	}
	if _, err := os.Stat(rec.LogPath); err != nil {
		t.Fatalf("log file: %v", err)
	}
	saved, ok, err := store.Load()
	if err != nil || !ok {
		t.Fatalf("sentinel missing: ok=%v err=%v", ok, err)
	}
	if saved.PID != rec.PID {
		t.Fatalf("sentinel pid %d != %d", saved.PID, rec.PID)
	}
}

func TestStartTwiceSamePortFails(t *testing.T) {
	store := NewMemStore()
	s := newTestSupervisor(t, store)
	port := freePort(t)

	rec, err := s.Start(context.Background(), port, Background)
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	defer func() { _ = s.Stop(rec) }()

	if _, err := s.Start(context.Background(), port, Background); !IsPortInUse(err) {
		t.Fatalf("expected port-in-use, got: %v", err)
	}
}

func TestStartPortBoundByUnrelatedListener(t *testing.T) {
	store := NewMemStore()
	s := newTestSupervisor(t, store)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	if _, err := s.Start(context.Background(), port, Background); !IsPortInUse(err) {
		t.Fatalf("expected port-in-use for untracked listener, got: %v", err)
	}
}

func TestStartMissingRuntime(t *testing.T) {
	store := NewMemStore()
	s := newTestSupervisor(t, store)
	s.Python = "definitely-not-a-real-python-12345"
	if _, err := s.Start(context.Background(), freePort(t), Background); !IsMissingRuntime(err) {
		t.Fatalf("expected missing-runtime, got: %v", err)
	}

	s2 := New(NewMemStore(), filepath.Join(t.TempDir(), "nope"), t.TempDir(), "bedrock", zerolog.Nop())
	s2.Python = "sh"
	if _, err := s2.Start(context.Background(), freePort(t), Background); !IsMissingRuntime(err) {
		t.Fatalf("expected missing-runtime for absent source tree, got: %v", err)
	}
}

func TestStopThenStopAgain(t *testing.T) {
	store := NewMemStore()
	s := newTestSupervisor(t, store)
	rec, err := s.Start(context.Background(), freePort(t), Background)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(rec); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitPidGone(t, rec.PID)
	if _, ok, _ := store.Load(); ok {
		t.Fatalf("sentinel must be removed after stop")
	}
	err = s.Stop(rec)
	if !IsNotFound(err) {
		t.Fatalf("expected not-found on second stop, got: %v", err)
	}
	if _, ok, _ := store.Load(); ok {
		t.Fatalf("second stop must leave no sentinel")
	}
}

func TestForegroundReturnsAfterExit(t *testing.T) {
	store := NewMemStore()
	s := newTestSupervisor(t, store)
	s.commandFor = func(port int) *exec.Cmd { return exec.Command("true") }
	rec, err := s.Start(context.Background(), freePort(t), Foreground)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if rec.Mode != Foreground || rec.PID <= 0 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestForegroundNonZeroExit(t *testing.T) {
	store := NewMemStore()
	s := newTestSupervisor(t, store)
	s.commandFor = func(port int) *exec.Cmd { return exec.Command("false") }
	if _, err := s.Start(context.Background(), freePort(t), Foreground); err == nil {
		t.Fatalf("expected error for non-zero exit")
	}
}

func TestForegroundContextCancelStopsChild(t *testing.T) {
	store := NewMemStore()
	s := newTestSupervisor(t, store)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	_, err := s.Start(ctx, freePort(t), Foreground)
	if err == nil {
		t.Fatalf("expected error after cancellation")
	}
	if time.Since(start) > 10*time.Second {
		t.Fatalf("child was not terminated on cancel")
	}
}

func TestHealthProbe(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer ts.Close()
	_, portStr, err := net.SplitHostPort(strings.TrimPrefix(ts.URL, "http://"))
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(portStr)

	s := newTestSupervisor(t, NewMemStore())
	if !s.HealthProbe(context.Background(), port) {
		t.Fatalf("expected healthy for answering server")
	}
	if s.HealthProbe(context.Background(), freePort(t)) {
		t.Fatalf("expected unhealthy for closed port")
	}
}

func TestStatusStaleAndStopped(t *testing.T) {
	store := NewMemStore()
	s := newTestSupervisor(t, store)
	rec, err := s.Start(context.Background(), freePort(t), Background)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	// The sleep stub never binds the port: pid alive but no listener => stale.
	if st, _ := s.Status(context.Background()); st != StateStale {
		t.Fatalf("expected stale, got %v", st)
	}
	if err := s.Stop(rec); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	// Simulate a crashed gateway with a leftover sentinel.
	_ = store.Save(GatewayProcess{PID: rec.PID, Port: rec.Port})
	waitPidGone(t, rec.PID)
	if st, _ := s.Status(context.Background()); st != StateStopped {
		t.Fatalf("expected stopped for dead pid, got %v", st)
	}
	if _, ok, _ := store.Load(); ok {
		t.Fatalf("dead-pid status probe must drop the sentinel")
	}
}
