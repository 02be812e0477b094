package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]Session{}, now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, sess Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemoryStore) Lookup(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if !m.now().Before(sess.ExpiresAt) {
		delete(m.sessions, id)
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (m *MemoryStore) Revoke(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
