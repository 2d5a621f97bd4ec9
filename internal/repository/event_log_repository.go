package repository

import (
	"context"
	"database/sql"
)

// EventLogRepo appends published domain events to the `events_log` table.
// The log is best-effort bookkeeping for operators; delivery guarantees live
// with the broker, not here.
type EventLogRepo struct{ DB *sql.DB }

func NewEventLogRepo(db *sql.DB) *EventLogRepo { return &EventLogRepo{DB: db} }

// Append records one event with its JSON payload.
func (r *EventLogRepo) Append(ctx context.Context, name string, payload []byte) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO events_log (name, payload) VALUES (?,?)", name, payload)
	return err
}
