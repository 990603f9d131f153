package storage

import (
	"context"
	"sync"
)

// MemoryStore is a process-local StateStore. State is lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	state map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: make(map[string]string)}
}

func (s *MemoryStore) GetState(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state[key], nil
}

func (s *MemoryStore) SetState(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[key] = value
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
