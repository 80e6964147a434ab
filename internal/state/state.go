// Package state persists the shared lock table and agent status map as two
// JSON documents under the state directory. All mutations run inside a single
// mutex and rewrite the document atomically (temp file + rename), so a lost
// update cannot occur within one coordinator process. Running more than one
// coordinator against the same state dir is not supported.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/copp1723/code-team-sub001/pkg/models"
)

const (
	locksFile  = "locks.json"
	statusFile = "status.json"
)

// Store reads and rewrites the lock and status documents.
type Store struct {
	mu  sync.Mutex
	dir string
}

// Open ensures the state directory exists and returns a Store over it.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("state dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the state directory.
func (s *Store) Dir() string { return s.dir }

// Locks returns the current lock table (path -> lock).
func (s *Store) Locks() (map[string]models.FileLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var locks map[string]models.FileLock
	if err := s.read(locksFile, &locks); err != nil {
		return nil, err
	}
	if locks == nil {
		locks = map[string]models.FileLock{}
	}
	return locks, nil
}

// UpdateLocks applies fn to the lock table and persists the result.
// fn runs under the store mutex; it must not call back into the store.
func (s *Store) UpdateLocks(fn func(locks map[string]models.FileLock)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var locks map[string]models.FileLock
	if err := s.read(locksFile, &locks); err != nil {
		return err
	}
	if locks == nil {
		locks = map[string]models.FileLock{}
	}
	fn(locks)
	return s.write(locksFile, locks)
}

// Statuses returns the status map (role -> task status).
func (s *Store) Statuses() (map[string]models.AgentTaskStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var statuses map[string]models.AgentTaskStatus
	if err := s.read(statusFile, &statuses); err != nil {
		return nil, err
	}
	if statuses == nil {
		statuses = map[string]models.AgentTaskStatus{}
	}
	return statuses, nil
}

// SetStatus records the task status for a role.
func (s *Store) SetStatus(role string, st models.AgentTaskStatus) error {
	return s.UpdateStatuses(func(statuses map[string]models.AgentTaskStatus) {
		statuses[role] = st
	})
}

// UpdateStatuses applies fn to the status map and persists the result.
func (s *Store) UpdateStatuses(fn func(statuses map[string]models.AgentTaskStatus)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var statuses map[string]models.AgentTaskStatus
	if err := s.read(statusFile, &statuses); err != nil {
		return err
	}
	if statuses == nil {
		statuses = map[string]models.AgentTaskStatus{}
	}
	fn(statuses)
	return s.write(statusFile, statuses)
}

func (s *Store) read(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// write rewrites the document atomically: marshal to a temp file in the same
// directory, fsync, then rename over the target.
func (s *Store) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("temp %s: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
