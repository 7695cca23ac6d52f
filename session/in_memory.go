package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/tripmesh/core"
	"github.com/hupe1980/tripmesh/logging"
	"github.com/hupe1980/tripmesh/state"
)

// Options configures an InMemoryStore.
type Options struct {
	// TTL ends sessions idle for longer than this; zero disables expiry.
	TTL time.Duration
	// Users backs the user scope of every session. Defaults to a MemoryUserStore.
	Users  state.UserBackend
	Now    func() time.Time
	Logger logging.Logger
}

// InMemoryStore keeps live sessions in a process local map. It is safe for
// concurrent access.
type InMemoryStore struct {
	opts     Options
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewInMemoryStore constructs an empty session store.
func NewInMemoryStore(optFns ...func(o *Options)) *InMemoryStore {
	opts := Options{
		TTL:    30 * time.Minute,
		Now:    time.Now,
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Users == nil {
		opts.Users = state.NewMemoryUserStore()
	}

	return &InMemoryStore{opts: opts, sessions: make(map[string]*Session)}
}

// Users returns the shared user backend.
func (s *InMemoryStore) Users() state.UserBackend { return s.opts.Users }

// Create starts a new session with a generated id.
func (s *InMemoryStore) Create(userID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createLocked(core.NewID(), userID)
}

// CreateWithID starts a session under a caller supplied id.
func (s *InMemoryStore) CreateWithID(id, userID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[id]; ok && !existing.expired(s.opts.Now(), s.opts.TTL) {
		return nil, fmt.Errorf("session %q already exists", id)
	}

	return s.createLocked(id, userID), nil
}

// Get returns a live session. Expired sessions are ended and reported missing.
func (s *InMemoryStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}

	now := s.opts.Now()
	if sess.expired(now, s.opts.TTL) {
		s.endExpired(id, sess, now)
		return nil, false
	}

	sess.Touch(now)

	return sess, true
}

// GetOrCreate returns the live session id or creates it for userID.
func (s *InMemoryStore) GetOrCreate(id, userID string) (*Session, bool) {
	if sess, ok := s.Get(id); ok {
		return sess, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another request may have created it meanwhile.
	prev, ok := s.sessions[id]
	if ok && !prev.expired(s.opts.Now(), s.opts.TTL) {
		return prev, false
	}

	sess := s.createLocked(id, userID)
	if ok {
		prev.State.Discard()
	}

	return sess, true
}

// End removes the session and discards its session and temp scopes.
func (s *InMemoryStore) End(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		s.discard(sess)
	}

	return ok
}

// endExpired ends id only while it still maps to sess and sess is still
// idle at now. A session recreated or touched after the caller's check stays.
func (s *InMemoryStore) endExpired(id string, sess *Session, now time.Time) bool {
	s.mu.Lock()
	cur, ok := s.sessions[id]
	if !ok || cur != sess || !cur.expired(now, s.opts.TTL) {
		s.mu.Unlock()
		return false
	}
	delete(s.sessions, id)
	s.mu.Unlock()

	s.discard(sess)

	return true
}

func (s *InMemoryStore) discard(sess *Session) {
	sess.State.Discard()
	s.opts.Logger.Debug("session ended", "session_id", sess.ID, "user_id", sess.UserID)
}

// Sweep ends every expired session and returns how many were removed.
func (s *InMemoryStore) Sweep() int {
	now := s.opts.Now()

	s.mu.RLock()
	expired := make(map[string]*Session)
	for id, sess := range s.sessions {
		if sess.expired(now, s.opts.TTL) {
			expired[id] = sess
		}
	}
	s.mu.RUnlock()

	n := 0
	for id, sess := range expired {
		if s.endExpired(id, sess, now) {
			n++
		}
	}

	return n
}

// StartJanitor sweeps expired sessions every interval until ctx is done.
func (s *InMemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.opts.TTL <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					s.opts.Logger.Info("expired sessions removed", "count", n)
				}
			}
		}
	}()
}

// Len returns the number of tracked sessions.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}

// createLocked allocates and stores a new session; caller must hold the write lock.
func (s *InMemoryStore) createLocked(id, userID string) *Session {
	sess := newSession(id, userID, s.opts.Users, s.opts.Now())
	s.sessions[id] = sess
	s.opts.Logger.Debug("session created", "session_id", id, "user_id", userID)
	return sess
}
