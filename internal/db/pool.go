package db

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Pool is an alias for pgxpool.Pool
type Pool = pgxpool.Pool

// NewPool creates the journal connection pool. The pool is pinged and the journal
// schema applied when the fx app starts.
func NewPool(lc fx.Lifecycle, logger *zap.Logger, databaseURL string) (*pgxpool.Pool, error) {
	logger.Info("initializing journal database pool", zap.String("url", MaskPassword(databaseURL)))

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("[DATABASE] failed to parse database URL: %w", err)
	}
	config.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("[DATABASE] failed to create connection pool: %w", err)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				logger.Error("journal database ping failed", zap.Error(err))
				return fmt.Errorf("[DATABASE CONNECTION FAILED] cannot reach the journal database. Check DATABASE_URL or leave it empty to disable the journal: %w", err)
			}
			if _, err := pool.Exec(ctx, Schema); err != nil {
				return fmt.Errorf("[DATABASE] failed to apply journal schema: %w", err)
			}
			logger.Info("journal database ready")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			pool.Close()
			logger.Info("journal database closed")
			return nil
		},
	})

	return pool, nil
}

// MaskPassword hides the password of a connection URL for logging
func MaskPassword(raw string) string {
	if raw == "" {
		return "<empty>"
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
