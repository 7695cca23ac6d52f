package state

import (
	"context"
	"fmt"

	"github.com/hupe1980/tripmesh/core"
)

// Store is the state view of a single session. It implements core.StateStore.
type Store struct {
	userID  string
	session scopeMap
	temp    scopeMap
	users   UserBackend
}

var _ core.StateStore = (*Store)(nil)

// New creates the store of a session owned by userID. A nil backend gets a
// private MemoryUserStore, which only makes sense in tests.
func New(userID string, users UserBackend) *Store {
	if users == nil {
		users = NewMemoryUserStore()
	}
	return &Store{userID: userID, users: users}
}

// UserID returns the owner of the session.
func (s *Store) UserID() string { return s.userID }

// Get implements core.StateStore.
func (s *Store) Get(ctx context.Context, scope core.Scope, key string) (any, bool, error) {
	switch scope {
	case core.ScopeSession:
		v, ok := s.session.load(key)
		return v, ok, nil
	case core.ScopeTemp:
		v, ok := s.temp.load(key)
		return v, ok, nil
	case core.ScopeUser:
		return s.users.Get(ctx, s.userID, key)
	default:
		return nil, false, unknownScope(scope)
	}
}

// Set implements core.StateStore.
func (s *Store) Set(ctx context.Context, scope core.Scope, key string, value any) error {
	switch scope {
	case core.ScopeSession:
		s.session.store(key, value)
		return nil
	case core.ScopeTemp:
		s.temp.store(key, value)
		return nil
	case core.ScopeUser:
		return s.users.Set(ctx, s.userID, key, value)
	default:
		return unknownScope(scope)
	}
}

// Increment implements core.StateStore.
func (s *Store) Increment(ctx context.Context, scope core.Scope, key string) (int64, error) {
	switch scope {
	case core.ScopeSession:
		return s.session.increment(key)
	case core.ScopeTemp:
		return s.temp.increment(key)
	case core.ScopeUser:
		return s.users.Increment(ctx, s.userID, key)
	default:
		return 0, unknownScope(scope)
	}
}

// Snapshot implements core.StateStore.
func (s *Store) Snapshot(ctx context.Context) (map[string]any, error) {
	users, err := s.users.Snapshot(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("snapshot user scope: %w", err)
	}

	out := s.session.snapshot()
	for k, v := range s.temp.snapshot() {
		out[core.QualifiedKey(core.ScopeTemp, k)] = v
	}
	for k, v := range users {
		out[core.QualifiedKey(core.ScopeUser, k)] = v
	}

	return out, nil
}

// ClearTemp discards the temp scope. Called at the end of every top-level request.
func (s *Store) ClearTemp() {
	s.temp.clear()
}

// Discard drops the session and temp scopes. The user scope is untouched.
func (s *Store) Discard() {
	s.session.clear()
	s.temp.clear()
}

func unknownScope(scope core.Scope) error {
	return fmt.Errorf("unknown state scope %q", scope)
}
