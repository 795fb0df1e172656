package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/septivank/meter-resolution-console/internal/anomaly"
	"github.com/septivank/meter-resolution-console/internal/apiclient"
	"github.com/septivank/meter-resolution-console/internal/config"
	"github.com/septivank/meter-resolution-console/internal/mq"
	"github.com/septivank/meter-resolution-console/internal/resolution"
	"github.com/septivank/meter-resolution-console/internal/service"
	"github.com/septivank/meter-resolution-console/internal/session"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const startTimeout = 30 * time.Second

// console is everything a command can reach once the app started
type console struct {
	Config   *config.Config
	Logger   *zap.Logger
	Client   *apiclient.Client
	Session  *session.Manager
	Resolver *service.ResolverService
	Reducer  *resolution.Reducer
	Executor *resolution.Executor
	Detector *anomaly.Detector
	MQ       *mq.Connection
}

type consoleParams struct {
	fx.In

	Config   *config.Config
	Logger   *zap.Logger
	Client   *apiclient.Client
	Session  *session.Manager
	Resolver *service.ResolverService
	Reducer  *resolution.Reducer
	Executor *resolution.Executor
	Detector *anomaly.Detector
	MQ       *mq.Connection
}

// withConsole builds the app, starts it, runs fn and stops it again
func withConsole(ctx context.Context, opts runOptions, fn func(ctx context.Context, c *console) error) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var c console
	app := fx.New(
		fx.Supply(cfg, opts),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			l := &fxevent.ZapLogger{Logger: logger}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		fx.Provide(
			ProvideLogger,
			ProvideSessionStore,
			ProvideAPIClient,
			ProvideSessionManager,
			ProvideSession,
			ProvideJournal,
			ProvideMQConnection,
			ProvidePublisher,
			ProvideEventBus,
			ProvideAnomalyDetector,
			ProvideReducer,
			ProvideExecutor,
			ProvideResolverService,
		),
		fx.Invoke(startMetricsServer),
		fx.Invoke(func(p consoleParams) {
			c = console{
				Config:   p.Config,
				Logger:   p.Logger,
				Client:   p.Client,
				Session:  p.Session,
				Resolver: p.Resolver,
				Reducer:  p.Reducer,
				Executor: p.Executor,
				Detector: p.Detector,
				MQ:       p.MQ,
			}
		}),
	)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		if errors.Is(startCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("failed to start within %s, check DATABASE_URL and RABBITMQ_URL: %w", startTimeout, err)
		}
		return err
	}

	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), startTimeout)
		defer stopCancel()
		if stopErr := app.Stop(stopCtx); stopErr != nil && err == nil {
			err = stopErr
		}
		_ = c.Logger.Sync()
	}()

	return fn(ctx, &c)
}
