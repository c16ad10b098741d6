package memory

import (
	"context"
	"sync"

	"complyscan/internal/session/models"
	"complyscan/pkg/platform/sentinel"
	"complyscan/pkg/requestcontext"
)

// InMemoryStore keeps sessions for a single BFF process.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]models.Session)}
}

func (s *InMemoryStore) Save(_ context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *InMemoryStore) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if sess.IsExpired(requestcontext.Now(ctx)) {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		return nil, sentinel.ErrExpired
	}
	return &sess, nil
}

func (s *InMemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}
