// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// pingBackoffBase is the first wait between startup pings; later waits double.
const pingBackoffBase = 250 * time.Millisecond

// pinger is the part of *pgxpool.Pool that OpenPool checks.
type pinger interface {
	Ping(ctx context.Context) error
}

// OpenPool connects to databaseURL and pings until the database answers,
// trying at most attempts times. The retry only covers process start; once
// the pool is returned, store errors surface to callers unretried.
func OpenPool(ctx context.Context, databaseURL string, attempts uint64) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("host", cfg.ConnConfig.Host).
			Wrap(err)
	}

	if err := pingWithRetry(ctx, pool, attempts, pingBackoffBase); err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("host", cfg.ConnConfig.Host).
			With("database", cfg.ConnConfig.Database).
			Wrap(err)
	}
	return pool, nil
}

func pingWithRetry(ctx context.Context, p pinger, attempts uint64, base time.Duration) error {
	if attempts == 0 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(base))

	var try int
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		try++
		if err := p.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "database not ready", "attempt", try, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}
