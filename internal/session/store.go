package session

import (
	"sync"
	"time"
)

// DefaultTTL is how long an idle session survives before the sweep reclaims it.
const DefaultTTL = 24 * time.Hour

// Store is the keyed session registry. It is injected into the transport so
// the engine holds no process-wide state and tests can supply their own clock.
type Store interface {
	Get(id string) (*Session, bool)
	Put(s *Session)
	Delete(id string)
	SweepExpired() int
	Len() int
}

// MemoryStore is the in-process Store implementation. Sessions idle longer
// than ttl are reclaimed by SweepExpired, which the server runs on a timer.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates a store with the given idle TTL. A nil now function
// defaults to time.Now.
func NewMemoryStore(ttl time.Duration, now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		sessions: map[string]*Session{},
		ttl:      ttl,
		now:      now,
	}
}

// Get returns the session and refreshes its idle timestamp.
func (m *MemoryStore) Get(id string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	s.Touch(m.now())
	return s, true
}

func (m *MemoryStore) Put(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// SweepExpired removes sessions idle past the TTL and reports how many went.
func (m *MemoryStore) SweepExpired() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	stale := make([]string, 0)
	for id, s := range m.sessions {
		if s.IdleSince().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	return len(stale)
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
