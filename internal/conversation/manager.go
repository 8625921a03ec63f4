package conversation

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Manager keeps sessions by id. All sessions share one pipeline.
type Manager struct {
	pipeline *Pipeline

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(p *Pipeline) *Manager {
	return &Manager{pipeline: p, sessions: map[string]*Session{}}
}

// Create starts a new empty session.
func (m *Manager) Create() *Session {
	s := NewSession(uuid.NewString(), m.pipeline)
	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs lists session ids in sorted order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
