package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMaxSessionsReached = errors.New("maximum sessions reached")
	ErrSessionNotFound    = errors.New("session not found")
)

// Session tracks one dashboard viewer: their active filter signature and
// when they were last heard from. Filter state is per-session; sessions
// never share mutable state with each other.
type Session struct {
	ID              string
	FilterSignature string
	CreatedAt       time.Time
	LastActivity    time.Time
	mu              sync.Mutex
}

// GetLastActivity returns the last activity time (thread-safe).
func (s *Session) GetLastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LastActivity
}

// GetFilterSignature returns the session's active filter signature.
func (s *Session) GetFilterSignature() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.FilterSignature
}

// Manager tracks active dashboard sessions with a capacity limit.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxSessions int
}

// NewManager creates a session manager with the given capacity.
func NewManager(maxSessions int) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
	}
}

// Create registers a new session and returns it.
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.maxSessions {
		return nil, ErrMaxSessionsReached
	}

	now := time.Now()
	s := &Session{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		LastActivity: now,
	}
	m.sessions[s.ID] = s
	return s, nil
}

// Get retrieves a session by ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Touch records activity on a session and updates its filter signature.
func (m *Manager) Touch(id, filterSignature string) error {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	s.LastActivity = time.Now()
	s.FilterSignature = filterSignature
	s.mu.Unlock()
	return nil
}

// Remove unregisters a session.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// Count returns the number of active sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// GetInactiveSessions returns IDs of sessions idle longer than timeout.
func (m *Manager) GetInactiveSessions(timeout time.Duration) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := time.Now().Add(-timeout)
	var inactive []string
	for id, s := range m.sessions {
		if s.GetLastActivity().Before(cutoff) {
			inactive = append(inactive, id)
		}
	}
	return inactive
}

// CleanupInactive removes idle sessions and returns how many were removed.
func (m *Manager) CleanupInactive(timeout time.Duration) int {
	inactive := m.GetInactiveSessions(timeout)
	for _, id := range inactive {
		_ = m.Remove(id)
	}
	return len(inactive)
}

// Stats holds session manager statistics.
type Stats struct {
	ActiveSessions int
	UniqueFilters  int
	MaxSessions    int
}

// Stats returns current session statistics.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filters := make(map[string]bool)
	for _, s := range m.sessions {
		if sig := s.GetFilterSignature(); sig != "" {
			filters[sig] = true
		}
	}

	return Stats{
		ActiveSessions: len(m.sessions),
		UniqueFilters:  len(filters),
		MaxSessions:    m.maxSessions,
	}
}
