package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/tripmesh/state"
)

// Session is a conversation container owned by a single user.
type Session struct {
	ID      string
	UserID  string
	State   *state.Store
	Created time.Time

	// mu serialises top-level requests on the same session.
	mu         sync.Mutex
	lastActive atomic.Int64
}

func newSession(id, userID string, users state.UserBackend, now time.Time) *Session {
	s := &Session{ID: id, UserID: userID, State: state.New(userID, users), Created: now}
	s.lastActive.Store(now.UnixNano())
	return s
}

// Lock acquires exclusive use of the session for one request.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *Session) Unlock() { s.mu.Unlock() }

// Touch records activity at now.
func (s *Session) Touch(now time.Time) { s.lastActive.Store(now.UnixNano()) }

// LastActive returns the time of the last recorded activity.
func (s *Session) LastActive() time.Time { return time.Unix(0, s.lastActive.Load()) }

func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.LastActive()) > ttl
}
