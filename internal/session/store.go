// Package session keeps per-conversation context in process memory.
package session

import (
	"sync"
	"time"

	"github.com/ashureev/shopassist/internal/domain"
)

const (
	// DefaultTTL is the inactivity window after which a session may be swept.
	DefaultTTL = time.Hour
	// DefaultHistoryLimit bounds the number of turns kept per session.
	DefaultHistoryLimit = 50
)

// Store maps session keys to session state.
//
// Concurrent requests for the same key are not serialized: the last Update
// wins. Chat clients send one message at a time per session, so this race is
// benign in practice.
type Store struct {
	mu           sync.Mutex
	sessions     map[string]*domain.Session
	pins         map[string]int
	ttl          time.Duration
	historyLimit int
	now          func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithSessions injects the backing map.
func WithSessions(m map[string]*domain.Session) Option {
	return func(s *Store) {
		if m != nil {
			s.sessions = m
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTTL sets the inactivity threshold used by Sweep.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithHistoryLimit bounds the stored conversation history.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// NewStore creates an in-memory session store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions:     make(map[string]*domain.Session),
		pins:         make(map[string]int),
		ttl:          DefaultTTL,
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire returns a snapshot of the session for key, creating it on first use.
// The session is pinned against sweeping until release is called.
func (s *Store) Acquire(key string) (domain.Session, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(key)
	s.pins[key]++

	var once sync.Once
	release := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.pins[key] <= 1 {
				delete(s.pins, key)
				return
			}
			s.pins[key]--
		})
	}
	return sess.Clone(), release
}

// Get returns a snapshot of an existing session.
func (s *Store) Get(key string) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if !ok {
		return domain.Session{}, false
	}
	return sess.Clone(), true
}

// Update applies fn to the session for key under the store lock.
func (s *Store) Update(key string, fn func(*domain.Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(key)
	fn(sess)
	sess.UpdatedAt = s.now()
	if over := len(sess.History) - s.historyLimit; over > 0 {
		sess.History = append([]domain.Turn(nil), sess.History[over:]...)
	}
}

// Reset clears the carried-over query and results for key.
// History is kept.
func (s *Store) Reset(key string) {
	s.Update(key, func(sess *domain.Session) {
		sess.ClearContext()
	})
}

// Sweep deletes unpinned sessions idle for longer than the TTL and returns
// their keys.
func (s *Store) Sweep() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	var evicted []string
	for key, sess := range s.sessions {
		if s.pins[key] > 0 {
			continue
		}
		if lastActive(sess).Before(cutoff) {
			delete(s.sessions, key)
			evicted = append(evicted, key)
		}
	}
	return evicted
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Now returns the current time of the store clock.
func (s *Store) Now() time.Time {
	return s.now()
}

// TTL returns the inactivity threshold.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

func (s *Store) getOrCreateLocked(key string) *domain.Session {
	if sess, ok := s.sessions[key]; ok {
		return sess
	}
	now := s.now()
	sess := &domain.Session{ID: key, CreatedAt: now, UpdatedAt: now}
	s.sessions[key] = sess
	return sess
}

// lastActive is the latest of the last query time and the last update.
func lastActive(sess *domain.Session) time.Time {
	t := sess.UpdatedAt
	if sess.LastQuery != nil && sess.LastQuery.At.After(t) {
		t = sess.LastQuery.At
	}
	return t
}
