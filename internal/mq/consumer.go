package mq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/septivank/meter-resolution-console/internal/events"
	"go.uber.org/zap"
)

// EventHandler processes a decoded resolution event
type EventHandler func(ctx context.Context, e events.Event) error

// Consumer tails resolution events from the events exchange
type Consumer struct {
	channel       *amqp.Channel
	queue         string
	prefetchCount int
	logger        *zap.Logger
	handler       EventHandler
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Connection    *Connection
	Queue         string
	Exchange      string
	RoutingKey    string
	PrefetchCount int
	Logger        *zap.Logger
	Handler       EventHandler
}

// NewConsumer declares a transient queue bound to the events exchange
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	ch, err := cfg.Connection.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	if cfg.PrefetchCount <= 0 {
		cfg.PrefetchCount = 10
	}
	if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	if err := declareExchange(ch, cfg.Exchange); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	// A watcher only cares about events published while it runs. Without a
	// configured name each watcher gets its own exclusive queue so concurrent
	// watchers all see the full stream.
	name, exclusive := watchQueue(cfg.Queue)
	q, err := ch.QueueDeclare(
		name,
		false,     // durable
		true,      // delete when unused
		exclusive, // exclusive
		false,     // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	return &Consumer{
		channel:       ch,
		queue:         q.Name,
		prefetchCount: cfg.PrefetchCount,
		logger:        cfg.Logger,
		handler:       cfg.Handler,
	}, nil
}

// watchQueue returns the queue name to declare and whether it is exclusive.
// An empty name asks the broker for a server-named exclusive queue.
func watchQueue(configured string) (string, bool) {
	if configured == "" {
		return "", true
	}
	return configured, false
}

// Run consumes until ctx is cancelled or the channel closes
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.channel.ConsumeWithContext(
		ctx,
		c.queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("watching resolution events",
		zap.String("queue", c.queue),
		zap.Int("prefetch", c.prefetchCount),
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("watch cancelled, stopping")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("[RABBITMQ] delivery channel closed")
			}
			c.processMessage(ctx, msg)
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery) {
	var e events.Event
	if err := json.Unmarshal(msg.Body, &e); err != nil {
		c.logger.Error("failed to decode event",
			zap.Error(err),
			zap.String("routing_key", msg.RoutingKey),
		)
		if nackErr := msg.Nack(false, false); nackErr != nil {
			c.logger.Error("failed to NACK message", zap.Error(nackErr))
		}
		return
	}

	if err := c.handler(ctx, e); err != nil {
		c.logger.Error("failed to handle event",
			zap.Error(err),
			zap.String("routing_key", msg.RoutingKey),
		)
		if nackErr := msg.Nack(false, false); nackErr != nil {
			c.logger.Error("failed to NACK message", zap.Error(nackErr))
		}
		return
	}

	if ackErr := msg.Ack(false); ackErr != nil {
		c.logger.Error("failed to ACK message", zap.Error(ackErr))
	}
}

// Close closes the consumer channel
func (c *Consumer) Close() error {
	if c.channel != nil {
		return c.channel.Close()
	}
	return nil
}
