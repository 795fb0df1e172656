package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/septivank/meter-resolution-console/internal/events"
	"github.com/septivank/meter-resolution-console/internal/mq"
	"github.com/septivank/meter-resolution-console/tools/timeparser"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Resolution event fan-out",
	}

	var binding string
	watch := &cobra.Command{
		Use:   "watch",
		Short: "Print resolution events as they are published",
		Long: `Tails resolution events from the RabbitMQ events exchange until interrupted.
Requires RABBITMQ_URL. --binding narrows the stream, e.g. "reading.*" or "task.created".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(cmd.Context(), runOptions{}, func(ctx context.Context, c *console) error {
				if c.MQ == nil {
					return errors.New("event fan-out is disabled: set RABBITMQ_URL")
				}
				routingKey := c.Config.RabbitMQ.WatchBinding
				if binding != "" {
					routingKey = binding
				}
				out := cmd.OutOrStdout()
				consumer, err := mq.NewConsumer(mq.ConsumerConfig{
					Connection: c.MQ,
					Queue:      c.Config.RabbitMQ.WatchQueue,
					Exchange:   c.Config.RabbitMQ.EventsExchange,
					RoutingKey: routingKey,
					Logger:     c.Logger,
					Handler: func(ctx context.Context, e events.Event) error {
						printEvent(out, e)
						return nil
					},
				})
				if err != nil {
					return err
				}
				defer func() {
					if err := consumer.Close(); err != nil {
						c.Logger.Warn("failed to close consumer", zap.Error(err))
					}
				}()
				return consumer.Run(ctx)
			})
		},
	}
	watch.Flags().StringVar(&binding, "binding", "", "routing key pattern (default RABBITMQ_WATCH_BINDING)")
	cmd.AddCommand(watch)
	return cmd
}

func printEvent(w io.Writer, e events.Event) {
	detail := ""
	switch {
	case e.TaskID != nil:
		detail = fmt.Sprintf(" task=#%d", *e.TaskID)
	case e.CurrentReading != nil:
		detail = fmt.Sprintf(" current=%g", *e.CurrentReading)
	case e.Consumption != nil:
		detail = fmt.Sprintf(" consumption=%g", *e.Consumption)
	}
	actor := e.Actor
	if actor == "" {
		actor = "-"
	}
	fmt.Fprintf(w, "%s %-26s reading=#%d%s by %s\n",
		e.OccurredAt.Local().Format(timeparser.DisplayLayout), e.Kind, e.ReadingID, detail, actor)
}
