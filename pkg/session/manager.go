package session

import (
	"sync"
)

// Manager owns the registry of live sessions, keyed by opaque session ID.
// It is the thing cmd/server hands a freshly authenticated connection to
// for lookup-or-create, and what the idle-expiry callback reports back to
// for eviction.
type Manager struct {
	defaultWakeName string

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a registry that stamps new sessions with
// defaultWakeName until a client overrides it via set_bot_name.
func NewManager(defaultWakeName string) *Manager {
	return &Manager{
		defaultWakeName: defaultWakeName,
		sessions:        make(map[string]*Session),
	}
}

// GetOrCreate returns the existing session for id, or creates one if id is
// empty or unknown. It returns the resolved ID alongside the session so
// callers that didn't supply one can learn the newly minted one.
func (m *Manager) GetOrCreate(id string) (string, *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id != "" {
		if s, ok := m.sessions[id]; ok {
			return id, s
		}
	}
	if id == "" {
		id = newSessionID()
	}
	s := NewSession(id, m.defaultWakeName)
	m.sessions[id] = s
	return id, s
}

// Lookup returns the session for id without creating one.
func (m *Manager) Lookup(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Expire removes id from the registry. Called back by a session's idle
// timer once it has gone IdleExpiry with no attached
// connection; a session that was reattached in the interim is not actually
// present under a stale callback because Attach cancels the timer first.
func (m *Manager) Expire(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Count reports the number of live sessions, mainly for metrics/logging.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
