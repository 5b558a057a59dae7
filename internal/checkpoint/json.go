package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/a2a-aptos/bidagent/internal/logging"
)

// fileState is the on-disk checkpoint document.
type fileState struct {
	LastProcessedSequenceNumber *uint64 `json:"last_processed_sequence_number"`
}

// JSONFileStore stores the cursor in a JSON file.
type JSONFileStore struct {
	mu     sync.Mutex
	path   string
	lock   *FileLock
	logger *logging.Logger
}

// NewJSONFileStore opens the store at path and takes the single-writer
// lock (path + ".lock"). It fails with ErrLocked if another agent holds it.
func NewJSONFileStore(path string, opts ...Option) (*JSONFileStore, error) {
	o := buildOptions(opts)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create checkpoint directory: %w", err)
		}
	}

	lock := NewFileLock(path + ".lock")
	if err := lock.TryLock(); err != nil {
		return nil, err
	}

	return &JSONFileStore{
		path:   path,
		lock:   lock,
		logger: o.logger.WithComponent("checkpoint"),
	}, nil
}

// Path returns the checkpoint file path.
func (s *JSONFileStore) Path() string {
	return s.path
}

// Load implements Store.
func (s *JSONFileStore) Load(_ context.Context) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("checkpoint unreadable, starting from 0", "path", s.path, "error", err)
		}
		return 0
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn("checkpoint malformed, starting from 0", "path", s.path, "error", err)
		return 0
	}
	if state.LastProcessedSequenceNumber == nil {
		s.logger.Warn("checkpoint has no last_processed_sequence_number, starting from 0", "path", s.path)
		return 0
	}
	return *state.LastProcessedSequenceNumber
}

// Save implements Store. The write is atomic: data is written and synced to
// a temporary file which is then renamed over the checkpoint.
func (s *JSONFileStore) Save(_ context.Context, seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(fileState{LastProcessedSequenceNumber: &seq})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}

	// Persist the rename itself.
	if dir, err := os.Open(filepath.Dir(s.path)); err == nil {
		_ = dir.Sync()
		_ = dir.Close()
	}
	return nil
}

// Close implements Store and releases the lock.
func (s *JSONFileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lock.Unlock()
}

var _ Store = (*JSONFileStore)(nil)
