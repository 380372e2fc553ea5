// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"net"

	"github.com/holomush/holoauth/internal/auth/postgres"
	"github.com/holomush/holoauth/internal/observability"
	"github.com/holomush/holoauth/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// PoolFactory opens the database pool.
	// Default: store.OpenPool
	PoolFactory func(ctx context.Context, url string, attempts uint64) (Pool, error)

	// MigratorFactory opens a schema migrator for auto-migration.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (AutoMigrator, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// ListenerFactory creates the HTTP listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)

	// Getenv reads environment variables.
	// Default: os.Getenv
	Getenv func(string) string
}

// Pool is the part of *pgxpool.Pool serve uses.
type Pool interface {
	postgres.Querier
	Ping(ctx context.Context) error
	Close()
}

// AutoMigrator applies pending migrations before serving.
type AutoMigrator interface {
	Up() error
	Close() error
}

// SchemaMigrator is everything the migrate command drives. *store.Migrator
// implements it.
type SchemaMigrator interface {
	AutoMigrator
	Down() error
	Reset() error
	Force(version int) error
	Status() (store.Status, error)
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

var (
	_ SchemaMigrator      = (*store.Migrator)(nil)
	_ ObservabilityServer = (*observability.Server)(nil)
)
