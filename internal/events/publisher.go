package events

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"complyscan/pkg/requestcontext"
)

// Store persists trail events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subjectID string) ([]Event, error)
}

// Emitter is the write side used by the gate and the workflow.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// Publisher captures trail events. It is append-only; a failed append is
// logged and never surfaces to the caller, so the trail cannot fail a run.
type Publisher struct {
	store  Store
	logger *slog.Logger
}

func NewPublisher(store Store, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, logger: logger}
}

func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if err := p.store.Append(ctx, event); err != nil {
		p.logger.WarnContext(ctx, "failed to append compliance event",
			"action", string(event.Action),
			"subject_id", event.SubjectID,
			"error", err,
		)
	}
}

func (p *Publisher) List(ctx context.Context, subjectID string) ([]Event, error) {
	return p.store.ListBySubject(ctx, subjectID)
}

type discard struct{}

func (discard) Emit(context.Context, Event) {}

// Discard drops every event.
var Discard Emitter = discard{}
