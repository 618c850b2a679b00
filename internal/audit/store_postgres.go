package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore appends audit events to the audit_events table. Inserts are
// idempotent on the event id so the worker can safely retry after a crash.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	query := `
		INSERT INTO audit_events (
			id, occurred_at, actor_id, subject_id, action,
			resource, resource_id, reason, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID, event.Timestamp, event.ActorID, event.SubjectID, event.Action,
		event.Resource, event.ResourceID, event.Reason, event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID string) ([]Event, error) {
	query := `
		SELECT id, occurred_at, actor_id, subject_id, action,
		       resource, resource_id, reason, request_id
		FROM audit_events
		WHERE subject_id = $1 OR actor_id = $1
		ORDER BY occurred_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.ActorID, &e.SubjectID, &e.Action,
			&e.Resource, &e.ResourceID, &e.Reason, &e.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}
