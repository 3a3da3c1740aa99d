// Package storage keeps live studio sessions in memory. Nothing is persisted;
// sessions are gone when the process exits.
package storage

import (
	"sort"
	"sync"

	"github.com/lehigh-university-libraries/roomstyler/internal/studio"
)

type SessionStore struct {
	sessions map[string]*studio.Studio
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*studio.Studio),
	}
}

func (s *SessionStore) Get(sessionID string) (*studio.Studio, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

// Set stores session under its own ID, replacing any previous one
func (s *SessionStore) Set(session *studio.Studio) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
}

// GetAll returns every session ordered by ID
func (s *SessionStore) GetAll() []*studio.Studio {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*studio.Studio, 0, len(s.sessions))
	for _, v := range s.sessions {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}

// Delete removes a session and returns it so callers can release its images
func (s *SessionStore) Delete(sessionID string) (*studio.Studio, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	return session, exists
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
