package lockout

import (
	"context"
	"sync"
	"time"

	"complyscan/pkg/requestcontext"
)

type memoryRecord struct {
	Record
	windowEnds time.Time
}

// InMemoryStore keeps counters for a single process.
type InMemoryStore struct {
	mu      sync.Mutex
	records map[string]*memoryRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*memoryRecord)}
}

func (s *InMemoryStore) RecordFailure(ctx context.Context, identifier string, window time.Duration) (*Record, error) {
	now := requestcontext.Now(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[identifier]
	if !ok || !now.Before(rec.windowEnds) {
		locked := time.Time{}
		if ok {
			locked = rec.LockedUntil
		}
		rec = &memoryRecord{
			Record:     Record{Identifier: identifier, LockedUntil: locked},
			windowEnds: now.Add(window),
		}
		s.records[identifier] = rec
	}
	rec.Failures++
	out := rec.Record
	return &out, nil
}

func (s *InMemoryStore) Get(_ context.Context, identifier string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[identifier]
	if !ok {
		return nil, nil
	}
	out := rec.Record
	return &out, nil
}

func (s *InMemoryStore) Lock(_ context.Context, identifier string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[identifier]
	if !ok {
		rec = &memoryRecord{Record: Record{Identifier: identifier}}
		s.records[identifier] = rec
	}
	rec.LockedUntil = until
	return nil
}

func (s *InMemoryStore) Clear(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, identifier)
	return nil
}
