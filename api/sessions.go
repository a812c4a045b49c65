package api

import (
	"sync"

	"royale/domain/entities"
)

// SessionManager hands out opaque bearer tokens and resolves them back to
// accounts. Tokens live in process memory only.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*entities.Session
}

// NewSessionManager creates an empty session table
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*entities.Session),
	}
}

// Issue creates a session for the account and returns it
func (m *SessionManager) Issue(user *entities.User) *entities.Session {
	session := entities.NewSession(user)
	m.mu.Lock()
	m.sessions[session.Token] = session
	m.mu.Unlock()
	return session
}

// Get resolves a token, nil when unknown or revoked
func (m *SessionManager) Get(token string) *entities.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[token]
}

// Revoke invalidates a single token
func (m *SessionManager) Revoke(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// RevokeUser invalidates every session belonging to username. Used when an
// account is deleted or its admin role changes.
func (m *SessionManager) RevokeUser(username string) {
	m.mu.Lock()
	for token, session := range m.sessions {
		if session.Username == username {
			delete(m.sessions, token)
		}
	}
	m.mu.Unlock()
}

// Refresh re-issues admin state for username's live sessions after a role change
func (m *SessionManager) Refresh(username string, isAdmin bool) {
	m.mu.Lock()
	for _, session := range m.sessions {
		if session.Username == username {
			session.IsAdmin = isAdmin
		}
	}
	m.mu.Unlock()
}
