package syncer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"threatsync-daemon/internal/exchange"
)

// State persists per-collaboration checkpoints between runs. Checkpoints
// are opaque to everything but the exchange; this layer only stores and
// returns them verbatim.
type State struct {
	path        string
	mu          sync.RWMutex
	checkpoints map[string]exchange.Checkpoint
}

func NewState(path string) *State {
	return &State{
		path:        path,
		checkpoints: make(map[string]exchange.Checkpoint),
	}
}

func (s *State) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No state file yet, that's ok
		}
		return err
	}

	return json.Unmarshal(data, &s.checkpoints)
}

func (s *State) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Ensure directory exists
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.checkpoints, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0644)
}

// Checkpoint returns the stored checkpoint for a collaboration, or nil if
// it has never been synced.
func (s *State) Checkpoint(collab string) *exchange.Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.checkpoints[collab]
	if !ok {
		return nil
	}
	return &cp
}

func (s *State) SetCheckpoint(collab string, cp exchange.Checkpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[collab] = cp
}

// ClearCheckpoint forgets a collaboration's progress, forcing the next
// sync to refetch from scratch.
func (s *State) ClearCheckpoint(collab string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checkpoints, collab)
}

// Checkpoints returns a copy of all stored checkpoints.
func (s *State) Checkpoints() map[string]exchange.Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]exchange.Checkpoint, len(s.checkpoints))
	for collab, cp := range s.checkpoints {
		out[collab] = cp
	}
	return out
}
