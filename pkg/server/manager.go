package server

import (
	"fmt"
	"sync"
	"time"
)

// Manager tracks the live sessions of one server process.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	max      int

	created uint64
	closed  uint64
	peak    int
}

// NewManager returns a manager capped at max concurrent sessions.
// Zero means unlimited.
func NewManager(max int) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		max:      max,
	}
}

// Add registers a session, enforcing the capacity cap.
func (m *Manager) Add(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.max > 0 && len(m.sessions) >= m.max {
		return fmt.Errorf("%w: limit %d", ErrTooManySessions, m.max)
	}
	m.sessions[s.ID] = s
	m.created++
	if len(m.sessions) > m.peak {
		m.peak = len(m.sessions)
	}
	return nil
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	return s, nil
}

// Remove forgets the session. The session itself is not closed.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		m.closed++
	}
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseIdle shuts down and removes sessions quiet for longer than
// maxIdle, returning how many were swept.
func (m *Manager) CloseIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	m.mu.Lock()
	var victims []*Session
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			victims = append(victims, s)
			delete(m.sessions, id)
			m.closed++
		}
	}
	m.mu.Unlock()
	for _, s := range victims {
		s.Close()
	}
	return len(victims)
}

// CloseAll shuts down every session, typically at process exit.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	victims := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		victims = append(victims, s)
		delete(m.sessions, id)
		m.closed++
	}
	m.mu.Unlock()
	for _, s := range victims {
		s.Close()
	}
}

// Stats is a point-in-time snapshot of manager activity.
type Stats struct {
	Active  int
	Created uint64
	Closed  uint64
	Peak    int
}

func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Active:  len(m.sessions),
		Created: m.created,
		Closed:  m.closed,
		Peak:    m.peak,
	}
}
