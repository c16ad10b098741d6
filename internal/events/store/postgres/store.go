package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"complyscan/internal/events"
)

const schema = `
CREATE TABLE IF NOT EXISTS compliance_events (
	id          UUID PRIMARY KEY,
	occurred_at TIMESTAMPTZ NOT NULL,
	subject_id  TEXT NOT NULL,
	action      TEXT NOT NULL,
	purpose     TEXT NOT NULL DEFAULT '',
	consent_id  TEXT NOT NULL DEFAULT '',
	target      TEXT NOT NULL DEFAULT '',
	audit_id    TEXT NOT NULL DEFAULT '',
	decision    TEXT NOT NULL DEFAULT '',
	reason      TEXT NOT NULL DEFAULT '',
	request_id  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_compliance_events_subject ON compliance_events (subject_id, occurred_at DESC);
`

// Store implements events.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL trail store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the trail table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create compliance_events: %w", err)
	}
	return nil
}

// Append inserts an event. Duplicate ids are ignored.
func (s *Store) Append(ctx context.Context, event events.Event) error {
	query := `
		INSERT INTO compliance_events (
			id, occurred_at, subject_id, action, purpose, consent_id,
			target, audit_id, decision, reason, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.Timestamp,
		event.SubjectID,
		string(event.Action),
		event.Purpose,
		event.ConsentID,
		event.Target,
		event.AuditID,
		event.Decision,
		event.Reason,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert compliance event: %w", err)
	}
	return nil
}

// ListBySubject returns events for a subject, newest first.
func (s *Store) ListBySubject(ctx context.Context, subjectID string) ([]events.Event, error) {
	query := `
		SELECT id, occurred_at, subject_id, action, purpose, consent_id,
			   target, audit_id, decision, reason, request_id
		FROM compliance_events
		WHERE subject_id = $1
		ORDER BY occurred_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("query compliance events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var e events.Event
		var action string
		if err := rows.Scan(
			&e.ID,
			&e.Timestamp,
			&e.SubjectID,
			&action,
			&e.Purpose,
			&e.ConsentID,
			&e.Target,
			&e.AuditID,
			&e.Decision,
			&e.Reason,
			&e.RequestID,
		); err != nil {
			return nil, fmt.Errorf("scan compliance event: %w", err)
		}
		e.Action = events.Action(action)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate compliance events: %w", err)
	}
	return out, nil
}
