package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/septivank/meter-resolution-console/internal/events"
	"go.uber.org/zap"
)

// Channel is the part of an AMQP channel the publisher uses
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher fans resolution events out to a topic exchange, routed by event kind
type Publisher struct {
	mu       sync.Mutex
	channel  Channel
	exchange string
	logger   *zap.Logger
}

// NewPublisher declares the exchange and opens a publishing channel
func NewPublisher(conn *Connection, exchange string, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	if err := declareExchange(ch, exchange); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return NewPublisherWithChannel(ch, exchange, logger), nil
}

// NewPublisherWithChannel wraps an already prepared channel
func NewPublisherWithChannel(ch Channel, exchange string, logger *zap.Logger) *Publisher {
	return &Publisher{
		channel:  ch,
		exchange: exchange,
		logger:   logger,
	}
}

// Handle publishes e with its kind as routing key. It satisfies events.Handler.
func (p *Publisher) Handle(ctx context.Context, e events.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		string(e.Kind),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			Body:          body,
			DeliveryMode:  amqp.Persistent,
			MessageId:     e.ID.String(),
			CorrelationId: e.CorrelationID,
			Timestamp:     e.OccurredAt,
			Type:          string(e.Kind),
		},
	)
	p.mu.Unlock()

	if err != nil {
		return fmt.Errorf("[RABBITMQ] failed to publish event: %w", err)
	}

	p.logger.Debug("published resolution event",
		zap.String("routing_key", string(e.Kind)),
		zap.String("event_id", e.ID.String()),
		zap.Int64("reading_id", e.ReadingID),
	)

	return nil
}

// Close closes the publisher channel
func (p *Publisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
