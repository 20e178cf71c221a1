// Package session holds the state shared by every component for the
// lifetime of one user session.
package session

import (
	"sync"

	"github.com/vietddude/bridge/internal/core/domain"
)

// Session is the application context passed by reference to the workflow
// and its collaborators.
type Session struct {
	userID string

	mu       sync.RWMutex
	identity domain.Identity
	loading  bool
}

func New(userID string) *Session {
	return &Session{
		userID:   userID,
		identity: domain.Identity{ID: userID},
	}
}

func (s *Session) UserID() string {
	return s.userID
}

func (s *Session) Identity() domain.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// SetIdentity replaces the identity with a freshly fetched profile.
func (s *Session) SetIdentity(id domain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id.ID == "" {
		id.ID = s.userID
	}
	s.identity = id
}

// TryBegin marks a transaction as in flight. It returns false when one
// already is.
func (s *Session) TryBegin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return false
	}
	s.loading = true
	return true
}

func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
}

// Loading reports whether a transaction is in flight.
func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}
