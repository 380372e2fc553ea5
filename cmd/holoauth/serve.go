// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/auth/memstore"
	"github.com/holomush/holoauth/internal/auth/postgres"
	"github.com/holomush/holoauth/internal/config"
	"github.com/holomush/holoauth/internal/logging"
	"github.com/holomush/holoauth/internal/observability"
	"github.com/holomush/holoauth/internal/store"
	"github.com/holomush/holoauth/internal/web"
)

const serviceName = "holoauth"

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP auth service",
		Long: `Start the HTTP service with the session flow, the /api/v1 user
views and, unless disabled, the metrics and health endpoints.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	return cmd
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	if d == nil {
		d = &ServeDeps{}
	}
	if d.PoolFactory == nil {
		d.PoolFactory = func(ctx context.Context, url string, attempts uint64) (Pool, error) {
			return store.OpenPool(ctx, url, attempts)
		}
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = func(url string) (AutoMigrator, error) {
			return store.NewMigrator(url)
		}
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if d.ListenerFactory == nil {
		d.ListenerFactory = net.Listen
	}
	if d.Getenv == nil {
		d.Getenv = os.Getenv
	}
	return d
}

// runServeWithDeps starts the service with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()

	path, err := resolveConfigFile(deps.Getenv)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path, cmd.Flags(), deps.Getenv)
	if err != nil {
		return err //nolint:wrapcheck // config errors carry codes
	}
	if err := cfg.Validate(); err != nil {
		return err //nolint:wrapcheck // config errors carry codes
	}

	logger, err := logging.SetDefault(logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	}, cmd.ErrOrStderr())
	if err != nil {
		return oops.Code("LOGGING_SETUP_FAILED").Wrap(err)
	}

	logger.Info("starting holoauth",
		"http_addr", cfg.HTTP.Addr,
		"store", cfg.Store,
		"log_format", cfg.Log.Format,
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, ready, closeStore, err := openStore(ctx, cfg, deps)
	if err != nil {
		return err
	}
	defer closeStore()

	hasher := auth.NewArgon2idHasher()
	svc, err := auth.NewServiceWithLogger(repo, hasher, logger)
	if err != nil {
		return oops.Code("SERVE_SETUP_FAILED").Wrap(err)
	}
	users, err := auth.NewUserService(repo, hasher)
	if err != nil {
		return oops.Code("SERVE_SETUP_FAILED").Wrap(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := web.Options{
		Auth:         svc,
		Users:        users,
		Logger:       logger,
		SecureCookie: cfg.HTTP.SecureCookie,
	}

	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, ready)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		if m := obsServer.Metrics(); m != nil {
			opts.Metrics = m
		}
		defer stopObservability(obsServer, cfg.HTTP.ShutdownTimeout)
	}

	router, err := web.NewRouter(opts)
	if err != nil {
		return oops.Code("SERVE_SETUP_FAILED").Wrap(err)
	}

	ln, err := deps.ListenerFactory("tcp", cfg.HTTP.Addr)
	if err != nil {
		return oops.Code("HTTP_LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	cmd.Println("holoauth listening on", ln.Addr().String())
	if err := web.Serve(ctx, srv, ln, cfg.HTTP.ShutdownTimeout); err != nil {
		return err //nolint:wrapcheck // web errors carry codes
	}

	logger.Info("shutdown complete")
	return nil
}

// openStore builds the credential store selected by cfg. ready is nil for
// the memory store, which is always ready.
func openStore(ctx context.Context, cfg *config.Config, deps *ServeDeps) (auth.UserRepository, observability.ReadinessChecker, func(), error) {
	if cfg.Store == config.StoreMemory {
		slog.Warn("using in-memory store, data is lost on exit")
		return memstore.New(), nil, func() {}, nil
	}

	if cfg.Migrate.Auto {
		if err := autoMigrate(cfg.Database.URL, deps.MigratorFactory); err != nil {
			return nil, nil, nil, err
		}
	}

	pool, err := deps.PoolFactory(ctx, cfg.Database.URL, cfg.Database.ConnectAttempts)
	if err != nil {
		return nil, nil, nil, oops.Code("DB_CONNECT_FAILED").With("operation", "open pool").Wrap(err)
	}
	slog.Info("connected to database")

	return postgres.NewUserRepository(pool), pool.Ping, pool.Close, nil
}

func autoMigrate(url string, factory func(string) (AutoMigrator, error)) error {
	migrator, err := factory(url)
	if err != nil {
		return oops.Code("AUTO_MIGRATE_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("AUTO_MIGRATE_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	slog.Info("database migrations applied")
	return nil
}

func stopObservability(s ObservabilityServer, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		slog.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors cancels the context when a side server fails. It exits
// when an error arrives, the channel closes or the context is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
