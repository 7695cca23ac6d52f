package state

import (
	"context"
	"sync"
)

// UserBackend stores the user scope, shared by every session of a user.
type UserBackend interface {
	Get(ctx context.Context, userID, key string) (any, bool, error)
	Set(ctx context.Context, userID, key string, value any) error
	Increment(ctx context.Context, userID, key string) (int64, error)
	Snapshot(ctx context.Context, userID string) (map[string]any, error)
}

// MemoryUserStore keeps user scoped values in process memory.
type MemoryUserStore struct {
	users sync.Map // userID -> *scopeMap
}

// NewMemoryUserStore creates an empty in-memory user backend.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{}
}

func (s *MemoryUserStore) scope(userID string) *scopeMap {
	if m, ok := s.users.Load(userID); ok {
		return m.(*scopeMap)
	}
	m, _ := s.users.LoadOrStore(userID, &scopeMap{})
	return m.(*scopeMap)
}

// Get implements UserBackend.
func (s *MemoryUserStore) Get(_ context.Context, userID, key string) (any, bool, error) {
	v, ok := s.scope(userID).load(key)
	return v, ok, nil
}

// Set implements UserBackend.
func (s *MemoryUserStore) Set(_ context.Context, userID, key string, value any) error {
	s.scope(userID).store(key, value)
	return nil
}

// Increment implements UserBackend.
func (s *MemoryUserStore) Increment(_ context.Context, userID, key string) (int64, error) {
	return s.scope(userID).increment(key)
}

// Snapshot implements UserBackend.
func (s *MemoryUserStore) Snapshot(_ context.Context, userID string) (map[string]any, error) {
	return s.scope(userID).snapshot(), nil
}
