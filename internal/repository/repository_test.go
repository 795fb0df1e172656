package repository

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/septivank/meter-resolution-console/internal/db"
	"github.com/septivank/meter-resolution-console/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() events.Event {
	connID := int64(7)
	consumption := 120.0
	e := events.New(events.KindReadingBilledOnAverage, 42, time.Date(2025, 12, 29, 9, 30, 0, 0, time.UTC))
	e.ConnectionID = &connID
	e.Consumption = &consumption
	e.Actor = "Otieno"
	e.CorrelationID = "cycle-1"
	return e
}

func TestEntryFromEvent(t *testing.T) {
	e := sampleEvent()

	entry, err := EntryFromEvent(e)
	require.NoError(t, err)

	assert.Equal(t, e.ID, entry.EventID)
	assert.Equal(t, "reading.billed_on_average", entry.Kind)
	assert.Equal(t, int64(42), entry.ReadingID)
	assert.Equal(t, int64(7), *entry.ConnectionID)
	assert.Nil(t, entry.TaskID)
	assert.Nil(t, entry.Notes)
	assert.Equal(t, "Otieno", *entry.Actor)

	var decoded events.Event
	require.NoError(t, json.Unmarshal(entry.Payload, &decoded))
	assert.Equal(t, e.ID, decoded.ID)
	assert.Equal(t, 120.0, *decoded.Consumption)
}

func TestNopJournal(t *testing.T) {
	var j Journal = NopJournal{}

	assert.NoError(t, j.Record(context.Background(), sampleEvent()))
	_, err := j.History(context.Background(), 42, 10)
	assert.ErrorIs(t, err, ErrJournalDisabled)
}

func TestHandler(t *testing.T) {
	j := &memJournal{}
	bus := events.NewBus(nil)
	bus.Subscribe("journal", Handler(j))

	bus.Publish(context.Background(), sampleEvent())

	require.Len(t, j.recorded, 1)
	assert.Equal(t, int64(42), j.recorded[0].ReadingID)
}

type memJournal struct {
	recorded []events.Event
}

func (m *memJournal) Record(ctx context.Context, e events.Event) error {
	m.recorded = append(m.recorded, e)
	return nil
}

func (m *memJournal) History(ctx context.Context, readingID int64, limit int) ([]db.JournalEntry, error) {
	return nil, nil
}

// Runs against a real database when JOURNAL_TEST_DATABASE_URL is set.
func TestRepository_RecordAndHistory(t *testing.T) {
	url := os.Getenv("JOURNAL_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("JOURNAL_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()
	_, err = pool.Exec(ctx, db.Schema)
	require.NoError(t, err)

	repo := NewRepository(pool)
	e := sampleEvent()
	e.ReadingID = time.Now().UnixNano()

	require.NoError(t, repo.Record(ctx, e))
	require.NoError(t, repo.Record(ctx, e), "duplicate event ids are ignored")

	entries, err := repo.History(ctx, e.ReadingID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, e.ID, entries[0].EventID)
	assert.Equal(t, "cycle-1", *entries[0].CorrelationID)
	assert.True(t, entries[0].OccurredAt.Equal(e.OccurredAt))
}
