package db

import (
	"time"

	"github.com/google/uuid"
)

// JournalEntry is one resolution event as stored in the journal
type JournalEntry struct {
	ID              uuid.UUID
	EventID         uuid.UUID
	Kind            string
	ReadingID       int64
	ConnectionID    *int64
	MeterID         *int64
	TaskID          *int64
	PreviousReading *float64
	CurrentReading  *float64
	Consumption     *float64
	Notes           *string
	Actor           *string
	CorrelationID   *string
	OccurredAt      time.Time
	RecordedAt      time.Time
	Payload         []byte
}
