package supervisor

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"bedrockctl/internal/common/fsutil"
)

// SentinelName is the fixed name of the PID sentinel in the run directory.
const SentinelName = "bedrock-gateway.json"

// LogName is the fixed name of the background log file in the run directory.
const LogName = "bedrock-gateway.log"

// StateStore persists the single background GatewayProcess record. It is an
// interface so tests can substitute memory for the filesystem.
type StateStore interface {
	Save(p GatewayProcess) error
	// Load returns the record and whether one exists.
	Load() (GatewayProcess, bool, error)
	Clear() error
}

// fileStore keeps the sentinel as JSON in the run directory.
type fileStore struct{ dir string }

// NewFileStore returns a StateStore backed by dir/bedrock-gateway.json.
func NewFileStore(dir string) StateStore { return fileStore{dir: dir} }

func (s fileStore) path() string { return filepath.Join(s.dir, SentinelName) }

func (s fileStore) Save(p GatewayProcess) error {
	if err := fsutil.EnsureDir(s.dir); err != nil {
		return err
	}
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(), b, 0o644)
}

func (s fileStore) Load() (GatewayProcess, bool, error) {
	var p GatewayProcess
	b, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p, false, nil
		}
		return p, false, err
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return p, false, err
	}
	return p, true, nil
}

func (s fileStore) Clear() error {
	err := os.Remove(s.path())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// memStore is the in-memory StateStore used by tests.
type memStore struct {
	mu  sync.Mutex
	p   GatewayProcess
	set bool
}

// NewMemStore returns an in-memory StateStore.
func NewMemStore() StateStore { return &memStore{} }

func (s *memStore) Save(p GatewayProcess) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p, s.set = p, true
	return nil
}

func (s *memStore) Load() (GatewayProcess, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p, s.set, nil
}

func (s *memStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p, s.set = GatewayProcess{}, false
	return nil
}
