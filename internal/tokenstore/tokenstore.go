// Package tokenstore persists the backend session token across runs. The
// store holds at most one token; absence is a valid state.
package tokenstore

import (
	"strings"
	"sync"
)

// Store is a single named credential slot. Get returns "" with a nil error
// when no token is stored.
type Store interface {
	Set(token string) error
	Get() (string, error)
	Clear() error
}

// MemStore is an in-process Store for tests and ephemeral sessions.
type MemStore struct {
	mu    sync.Mutex
	token string
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = strings.TrimSpace(token)
	return nil
}

func (s *MemStore) Get() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
