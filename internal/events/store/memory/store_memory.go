package memory

import (
	"context"
	"sync"

	"complyscan/internal/events"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]events.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string][]events.Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.SubjectID] = append(s.events[event.SubjectID], event)
	return nil
}

// ListBySubject returns the subject's events, newest first.
func (s *InMemoryStore) ListBySubject(_ context.Context, subjectID string) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.events[subjectID]
	out := make([]events.Event, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		out = append(out, stored[i])
	}
	return out, nil
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string][]events.Event)
}
