package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind names a resolution event. It doubles as the RabbitMQ routing key.
type Kind string

const (
	KindReadingCorrected       Kind = "reading.corrected"
	KindReadingBilledOnAverage Kind = "reading.billed_on_average"
	KindTaskCreated            Kind = "task.created"
)

// Event is delivered to subscribers after a resolution request succeeded
type Event struct {
	ID              uuid.UUID `json:"id"`
	Kind            Kind      `json:"kind"`
	ReadingID       int64     `json:"reading_id"`
	ConnectionID    *int64    `json:"connection_id,omitempty"`
	MeterID         *int64    `json:"meter_id,omitempty"`
	TaskID          *int64    `json:"task_id,omitempty"`
	PreviousReading *float64  `json:"previous_reading,omitempty"`
	CurrentReading  *float64  `json:"current_reading,omitempty"`
	Consumption     *float64  `json:"consumption,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	Actor           string    `json:"actor,omitempty"`
	CorrelationID   string    `json:"correlation_id,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// New creates an event with a fresh id
func New(kind Kind, readingID int64, at time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Kind:       kind,
		ReadingID:  readingID,
		OccurredAt: at.UTC(),
	}
}

// Handler receives events
type Handler interface {
	Handle(ctx context.Context, e Event) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, e Event) error

// Handle calls f(ctx, e)
func (f HandlerFunc) Handle(ctx context.Context, e Event) error {
	return f(ctx, e)
}

type subscription struct {
	name    string
	handler Handler
}

// Bus delivers events to its subscribers synchronously, in subscription order.
// A failing handler is logged and does not stop delivery to the others.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	logger *zap.Logger
}

// NewBus creates an empty bus
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{logger: logger}
}

// Subscribe registers a named handler
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{name: name, handler: h})
}

// Publish delivers e to every subscriber
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler.Handle(ctx, e); err != nil {
			b.logger.Error("event handler failed",
				zap.String("subscriber", s.name),
				zap.String("kind", string(e.Kind)),
				zap.String("event_id", e.ID.String()),
				zap.Error(err),
			)
		}
	}
}

// LogHandler writes every event to the structured log
func LogHandler(logger *zap.Logger) Handler {
	return HandlerFunc(func(ctx context.Context, e Event) error {
		fields := []zap.Field{
			zap.String("event_id", e.ID.String()),
			zap.String("kind", string(e.Kind)),
			zap.Int64("reading_id", e.ReadingID),
			zap.String("correlation_id", e.CorrelationID),
		}
		if e.ConnectionID != nil {
			fields = append(fields, zap.Int64("connection_id", *e.ConnectionID))
		}
		if e.TaskID != nil {
			fields = append(fields, zap.Int64("task_id", *e.TaskID))
		}
		if e.Consumption != nil {
			fields = append(fields, zap.Float64("consumption", *e.Consumption))
		}
		if e.Actor != "" {
			fields = append(fields, zap.String("actor", e.Actor))
		}
		logger.Info("resolution event", fields...)
		return nil
	})
}
