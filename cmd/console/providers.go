package main

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/septivank/meter-resolution-console/internal/anomaly"
	"github.com/septivank/meter-resolution-console/internal/apiclient"
	"github.com/septivank/meter-resolution-console/internal/config"
	"github.com/septivank/meter-resolution-console/internal/db"
	"github.com/septivank/meter-resolution-console/internal/events"
	"github.com/septivank/meter-resolution-console/internal/logging"
	"github.com/septivank/meter-resolution-console/internal/mq"
	"github.com/septivank/meter-resolution-console/internal/repository"
	"github.com/septivank/meter-resolution-console/internal/resolution"
	"github.com/septivank/meter-resolution-console/internal/service"
	"github.com/septivank/meter-resolution-console/internal/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// runOptions describes how the current command uses the terminal
type runOptions struct {
	Interactive bool
}

// ProvideLogger creates the logger. Interactive runs log to a file next to the
// session store unless LOG_FILE is set.
func ProvideLogger(cfg *config.Config, opts runOptions) (*zap.Logger, error) {
	output := cfg.LogFile
	if output == "" && opts.Interactive {
		output = filepath.Join(filepath.Dir(cfg.Session.StorePath), "console.log")
	}
	return logging.NewLogger(logging.Options{
		ServiceName: cfg.ServiceName,
		Level:       cfg.LogLevel,
		OutputPath:  output,
	})
}

// ProvideSessionStore opens the local session mirror
func ProvideSessionStore(lc fx.Lifecycle, cfg *config.Config) (*session.Store, error) {
	store, err := session.Open(cfg.Session.StorePath)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}

// ProvideAPIClient creates the billing API client bound to the session mirror
func ProvideAPIClient(cfg *config.Config, store *session.Store) (*apiclient.Client, error) {
	return apiclient.New(apiclient.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Jar:     store.Jar(),
		Tokens:  store,
	})
}

// ProvideSessionManager creates the session manager
func ProvideSessionManager(store *session.Store, client *apiclient.Client, logger *zap.Logger) *session.Manager {
	return session.NewManager(store, client, logger)
}

// ProvideSession exposes the manager as the Session every view is built with
func ProvideSession(m *session.Manager) session.Session {
	return m
}

// ProvideJournal opens the resolution journal, or a no-op journal when DATABASE_URL is empty
func ProvideJournal(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (repository.Journal, error) {
	if cfg.Database.URL == "" {
		logger.Debug("journal disabled")
		return repository.NopJournal{}, nil
	}
	pool, err := db.NewPool(lc, logger, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	return repository.NewRepository(pool), nil
}

// ProvideMQConnection opens the broker connection, nil when RABBITMQ_URL is empty
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	if cfg.RabbitMQ.URL == "" {
		logger.Debug("event fan-out disabled")
		return nil, nil
	}
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}

// ProvidePublisher creates the event publisher, nil without a broker connection
func ProvidePublisher(lc fx.Lifecycle, conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (*mq.Publisher, error) {
	if conn == nil {
		return nil, nil
	}
	pub, err := mq.NewPublisher(conn, cfg.RabbitMQ.EventsExchange, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return pub.Close()
		},
	})
	return pub, nil
}

// ProvideEventBus wires every resolution event observer
func ProvideEventBus(logger *zap.Logger, journal repository.Journal, pub *mq.Publisher) *events.Bus {
	bus := events.NewBus(logger)
	bus.Subscribe("log", events.LogHandler(logger))
	bus.Subscribe("journal", repository.Handler(journal))
	if pub != nil {
		bus.Subscribe("rabbitmq", events.HandlerFunc(pub.Handle))
	}
	return bus
}

// ProvideAnomalyDetector creates the deviation hint detector
func ProvideAnomalyDetector(cfg *config.Config) *anomaly.Detector {
	return anomaly.NewDetector(cfg.Anomaly.SpikeThreshold)
}

// ProvideReducer creates the workflow reducer
func ProvideReducer(cfg *config.Config) *resolution.Reducer {
	return resolution.NewReducer(resolution.Policy{
		DecreasePolicy: cfg.Correction.DecreasePolicy,
		FollowUp:       cfg.FollowUp,
	})
}

// ProvideExecutor creates the effect executor
func ProvideExecutor(client *apiclient.Client, bus *events.Bus, sess session.Session, logger *zap.Logger) *resolution.Executor {
	return resolution.NewExecutor(resolution.ExecutorConfig{
		API:       client,
		Publisher: bus,
		Session:   sess,
		Logger:    logger,
	})
}

// ProvideResolverService creates the command line resolver
func ProvideResolverService(
	reducer *resolution.Reducer,
	executor *resolution.Executor,
	sess session.Session,
	journal repository.Journal,
	detector *anomaly.Detector,
	logger *zap.Logger,
) *service.ResolverService {
	return service.NewResolverService(reducer, executor, sess, journal, detector, logger)
}

// startMetricsServer serves /metrics while the app runs when METRICS_ADDR is set
func startMetricsServer(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) {
	if cfg.Metrics.Addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("metrics server failed", zap.Error(err))
				}
			}()
			logger.Info("serving metrics", zap.String("addr", cfg.Metrics.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
