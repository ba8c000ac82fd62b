package session

import (
	"sync"

	"github.com/google/uuid"
)

// Manager handles session lifecycle: creation, lookup, cleanup. Sessions
// are never shared across players; a new song selection always produces a
// fresh session.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Create(playerID int64, trackID, difficulty, preset string) *Session {
	s := New(uuid.New().String(), playerID, trackID, difficulty, preset)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	return s
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// ByPlayer returns the player's most recently created session, if any.
func (m *Manager) ByPlayer(playerID int64) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *Session
	for _, s := range m.sessions {
		if s.PlayerID != playerID {
			continue
		}
		if best == nil || s.CreatedAt.After(best.CreatedAt) {
			best = s
		}
	}
	return best, best != nil
}

// Remove deactivates and drops a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Deactivate()
	}
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
