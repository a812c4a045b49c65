// Package localstore is the file-backed storage backend: the whole catalog,
// account collection, audit log and polls are held as one JSON document,
// loaded at open and rewritten on every commit. With an empty path it is a
// pure in-memory store, which is what the tests use.
package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"royale/domain/entities"
)

// state is the full persisted document
type state struct {
	Raffles  []*entities.Raffle        `json:"raffles"`
	Users    map[string]*entities.User `json:"users"`
	Activity []*entities.ActivityEntry `json:"activity"`
	Polls    []*entities.Poll          `json:"polls"`
}

func newState() *state {
	return &state{
		Raffles:  []*entities.Raffle{},
		Users:    map[string]*entities.User{},
		Activity: []*entities.ActivityEntry{},
		Polls:    []*entities.Poll{},
	}
}

// clone deep-copies the document so a unit of work can stage mutations
// without touching the live state.
func (s *state) clone() *state {
	c := &state{
		Raffles:  make([]*entities.Raffle, len(s.Raffles)),
		Users:    make(map[string]*entities.User, len(s.Users)),
		Activity: make([]*entities.ActivityEntry, len(s.Activity)),
		Polls:    make([]*entities.Poll, len(s.Polls)),
	}
	for i, r := range s.Raffles {
		c.Raffles[i] = r.Clone()
	}
	for k, u := range s.Users {
		c.Users[k] = u.Clone()
	}
	for i, e := range s.Activity {
		c.Activity[i] = e.Clone()
	}
	for i, p := range s.Polls {
		c.Polls[i] = p.Clone()
	}
	return c
}

// Store owns the live document. A store-wide mutex serializes units of work,
// which is what makes every ledger operation all-or-nothing here.
type Store struct {
	mu    sync.Mutex
	path  string
	state *state
}

// NewMemoryStore creates a store with no file backing
func NewMemoryStore() *Store {
	return &Store{state: newState()}
}

// Open loads the document at path, starting empty when the file is missing
func Open(path string) (*Store, error) {
	store := &Store{path: path, state: newState()}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	if err := json.Unmarshal(data, store.state); err != nil {
		return nil, fmt.Errorf("failed to parse store file %s: %w", path, err)
	}
	if store.state.Users == nil {
		store.state.Users = map[string]*entities.User{}
	}
	return store, nil
}

// saveLocked rewrites the backing file with the given document. Caller holds
// the mutex. A temp-file rename keeps a crash from truncating the document.
func (s *Store) saveLocked(doc *state) error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}
