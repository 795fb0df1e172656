package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/septivank/meter-resolution-console/internal/db"
	"github.com/septivank/meter-resolution-console/internal/events"
)

// ErrJournalDisabled is returned by history lookups when no database is configured
var ErrJournalDisabled = errors.New("resolution journal is disabled; set DATABASE_URL to enable it")

// Journal records resolution events and answers history lookups
type Journal interface {
	Record(ctx context.Context, e events.Event) error
	History(ctx context.Context, readingID int64, limit int) ([]db.JournalEntry, error)
}

// Repository is the PostgreSQL journal
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record inserts e. Re-recording the same event id is a no-op.
func (r *Repository) Record(ctx context.Context, e events.Event) error {
	entry, err := EntryFromEvent(e)
	if err != nil {
		return err
	}
	return r.InsertEntry(ctx, entry)
}

// InsertEntry inserts a journal entry
func (r *Repository) InsertEntry(ctx context.Context, entry *db.JournalEntry) error {
	query := `
		INSERT INTO resolution_journal (
			event_id, kind, reading_id, connection_id, meter_id, task_id,
			previous_reading, current_reading, consumption, notes, actor,
			correlation_id, occurred_at, payload
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (event_id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		entry.EventID,
		entry.Kind,
		entry.ReadingID,
		entry.ConnectionID,
		entry.MeterID,
		entry.TaskID,
		entry.PreviousReading,
		entry.CurrentReading,
		entry.Consumption,
		entry.Notes,
		entry.Actor,
		entry.CorrelationID,
		entry.OccurredAt,
		entry.Payload,
	)
	if err != nil {
		return fmt.Errorf("[DATABASE] failed to insert journal entry: %w", err)
	}

	return nil
}

// History returns the newest entries for a reading first
func (r *Repository) History(ctx context.Context, readingID int64, limit int) ([]db.JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, event_id, kind, reading_id, connection_id, meter_id, task_id,
			previous_reading, current_reading, consumption, notes, actor,
			correlation_id, occurred_at, recorded_at, payload
		FROM resolution_journal
		WHERE reading_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, readingID, limit)
	if err != nil {
		return nil, fmt.Errorf("[DATABASE] failed to query journal: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (db.JournalEntry, error) {
		var e db.JournalEntry
		err := row.Scan(
			&e.ID,
			&e.EventID,
			&e.Kind,
			&e.ReadingID,
			&e.ConnectionID,
			&e.MeterID,
			&e.TaskID,
			&e.PreviousReading,
			&e.CurrentReading,
			&e.Consumption,
			&e.Notes,
			&e.Actor,
			&e.CorrelationID,
			&e.OccurredAt,
			&e.RecordedAt,
			&e.Payload,
		)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("[DATABASE] failed to scan journal entries: %w", err)
	}

	return entries, nil
}

// EntryFromEvent maps an event to its journal row
func EntryFromEvent(e events.Event) (*db.JournalEntry, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return &db.JournalEntry{
		EventID:         e.ID,
		Kind:            string(e.Kind),
		ReadingID:       e.ReadingID,
		ConnectionID:    e.ConnectionID,
		MeterID:         e.MeterID,
		TaskID:          e.TaskID,
		PreviousReading: e.PreviousReading,
		CurrentReading:  e.CurrentReading,
		Consumption:     e.Consumption,
		Notes:           optional(e.Notes),
		Actor:           optional(e.Actor),
		CorrelationID:   optional(e.CorrelationID),
		OccurredAt:      e.OccurredAt,
		Payload:         payload,
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// NopJournal is used when no database is configured
type NopJournal struct{}

// Record discards e
func (NopJournal) Record(ctx context.Context, e events.Event) error { return nil }

// History always fails with ErrJournalDisabled
func (NopJournal) History(ctx context.Context, readingID int64, limit int) ([]db.JournalEntry, error) {
	return nil, ErrJournalDisabled
}

// Handler subscribes a journal to the event bus
func Handler(j Journal) events.Handler {
	return events.HandlerFunc(j.Record)
}
