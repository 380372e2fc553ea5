// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package web exposes the auth service over HTTP: the cookie session flow at
// the root and the user directory under /api/v1.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/holoauth/internal/auth"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "session_id"

const tracerName = "github.com/holomush/holoauth/internal/web"

// AuthService is the part of auth.Service the session flow uses.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*auth.User, error)
	ValidLogin(ctx context.Context, email, password string) (bool, error)
	CreateSession(ctx context.Context, email string) (string, error)
	UserFromSession(ctx context.Context, sessionID string) (*auth.User, error)
	DestroySession(ctx context.Context, userID ulid.ULID) error
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	CompletePasswordReset(ctx context.Context, resetToken, newPassword string) error
}

// UserDirectory is the part of auth.UserService the CRUD views use.
type UserDirectory interface {
	List(ctx context.Context) ([]*auth.User, error)
	Get(ctx context.Context, id ulid.ULID) (*auth.User, error)
	Create(ctx context.Context, email, password string, firstName, lastName *string) (*auth.User, error)
	UpdateProfile(ctx context.Context, id ulid.ULID, firstName, lastName *string) (*auth.User, error)
	Remove(ctx context.Context, id ulid.ULID) error
}

// RequestObserver records finished requests. observability.Metrics
// implements it.
type RequestObserver interface {
	ObserveRequest(route string, status int, elapsed time.Duration)
}

// Options configures NewRouter. Auth and Users are required.
type Options struct {
	Auth    AuthService
	Users   UserDirectory
	Logger  *slog.Logger
	Metrics RequestObserver
	Tracer  trace.Tracer
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
}

type handlers struct {
	auth         AuthService
	users        UserDirectory
	logger       *slog.Logger
	secureCookie bool
}

// NewRouter builds the HTTP handler.
func NewRouter(opts Options) (http.Handler, error) {
	if opts.Auth == nil {
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("auth service is required")
	}
	if opts.Users == nil {
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("user directory is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}

	h := &handlers{
		auth:         opts.Auth,
		users:        opts.Users,
		logger:       opts.Logger,
		secureCookie: opts.SecureCookie,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(instrument(opts.Logger, opts.Metrics, opts.Tracer))
	r.Use(recoverer(opts.Logger))
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { writeError(w, http.StatusNotFound, "Not found") })
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/", h.index)
	r.Post("/users", h.register)
	r.Post("/sessions", h.login)
	r.Delete("/sessions", h.logout)
	r.Get("/profile", h.profile)
	r.Post("/reset_password", h.requestReset)
	r.Put("/reset_password", h.completeReset)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.currentUser)

		r.Get("/status", h.status)
		r.Get("/stats", h.stats)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.listUsers)
			r.Post("/", h.createUser)
			r.Get("/{id}", h.getUser)
			r.Put("/{id}", h.updateUser)
			r.Delete("/{id}", h.deleteUser)
		})
	})

	return r, nil
}
