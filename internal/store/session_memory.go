package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type memorySession struct {
	username  string
	expiresAt time.Time
}

// MemorySessionStore keeps sessions in-process with a TTL. It mirrors the
// redis-backed store for the single-process deployment.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	ttl      time.Duration
}

// NewMemorySessionStore builds an in-memory session store.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemorySessionStore{
		sessions: make(map[string]memorySession),
		ttl:      ttl,
	}
}

// NewSession binds a fresh session ID to a username.
func (s *MemorySessionStore) NewSession(username string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.sessions[id] = memorySession{
		username:  username,
		expiresAt: time.Now().UTC().Add(s.ttl),
	}
	return id, nil
}

// GetUsernameBySession resolves a session ID, expiring lazily.
func (s *MemorySessionStore) GetUsernameBySession(id string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return "", false, nil
	}
	if time.Now().UTC().After(sess.expiresAt) {
		delete(s.sessions, id)
		return "", false, nil
	}
	return sess.username, true, nil
}

// DeleteSession removes a session ID.
func (s *MemorySessionStore) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
