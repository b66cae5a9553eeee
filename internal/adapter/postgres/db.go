package postgres

import (
	"context"
	"fmt"
	"time"

	"currency-sync-service/pkg/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const (
	connectAttempts = 5
	connectTimeout  = 5 * time.Second
)

func InitDBPool(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(BuildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	poolConfig.MaxConnIdleTime = time.Minute
	poolConfig.MaxConnLifetime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Postgres.MinConns
	}

	for attempt := 1; ; attempt++ {
		pool, err := connect(ctx, poolConfig)
		if err == nil {
			logger.Infof("Connected to DB on attempt #%d", attempt)
			return pool, nil
		}
		logger.WithError(err).Warnf("DB connection attempt #%d failed", attempt)

		if attempt == connectAttempts {
			return nil, fmt.Errorf("connect to DB after %d attempts: %w", connectAttempts, err)
		}

		wait := time.Duration(attempt) * time.Second
		logger.Infof("Waiting %s before next attempt", wait)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func connect(ctx context.Context, poolConfig *pgxpool.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}
