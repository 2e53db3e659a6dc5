package session

import (
	"context"
	"sync"
	"time"
)

// DefaultSessionTTL bounds how long an idle call's state is kept. Calls
// rarely exceed a few minutes; four hours is generous.
const DefaultSessionTTL = 4 * time.Hour

// MemoryStore keeps sessions in process memory with TTL-based expiry.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memoryEntry
	ttl      time.Duration
}

type memoryEntry struct {
	session   *Session
	expiresAt time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryTTL overrides the idle-session expiry.
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		s.ttl = ttl
	}
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*memoryEntry),
		ttl:      DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load retrieves a session, treating expired entries as absent.
func (s *MemoryStore) Load(ctx context.Context, callSID string) (*Session, error) {
	if callSID == "" {
		return nil, ErrInvalidID
	}

	s.mu.RLock()
	entry, ok := s.sessions[callSID]
	s.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, ErrNotFound
	}
	return entry.session, nil
}

// Save persists a session and refreshes its expiry.
func (s *MemoryStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil || sess.CallSID == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.CallSID] = &memoryEntry{
		session:   sess,
		expiresAt: time.Now().Add(s.ttl),
	}

	// Expired entries are dropped opportunistically on writes rather than
	// by a background goroutine; call volume keeps this cheap.
	now := time.Now()
	for id, entry := range s.sessions {
		if now.After(entry.expiresAt) {
			delete(s.sessions, id)
		}
	}
	return nil
}

// Delete removes a session.
func (s *MemoryStore) Delete(ctx context.Context, callSID string) error {
	if callSID == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, callSID)
	return nil
}
