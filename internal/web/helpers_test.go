// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/auth/memstore"
	"github.com/holomush/holoauth/internal/web"
)

type observed struct {
	route  string
	status int
}

type fakeObserver struct {
	mu       sync.Mutex
	requests []observed
}

func (f *fakeObserver) ObserveRequest(route string, status int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, observed{route: route, status: status})
}

func (f *fakeObserver) last() observed {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type testEnv struct {
	router   http.Handler
	auth     *auth.Service
	users    *auth.UserService
	repo     *memstore.UserRepository
	observer *fakeObserver
	logs     *bytes.Buffer
}

func newTestEnv(t *testing.T, mutate ...func(*web.Options)) *testEnv {
	t.Helper()

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, nil))
	repo := memstore.New()
	hasher := auth.NewArgon2idHasher()

	svc, err := auth.NewServiceWithLogger(repo, hasher, logger)
	require.NoError(t, err)
	users, err := auth.NewUserService(repo, hasher)
	require.NoError(t, err)

	observer := &fakeObserver{}
	opts := web.Options{Auth: svc, Users: users, Logger: logger, Metrics: observer}
	for _, m := range mutate {
		m(&opts)
	}

	router, err := web.NewRouter(opts)
	require.NoError(t, err)

	return &testEnv{router: router, auth: svc, users: users, repo: repo, observer: observer, logs: logs}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func formRequest(method, path string, values url.Values, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func jsonRequest(method, path, body string, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func decodeObject(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == web.SessionCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", web.SessionCookieName)
	return nil
}

func credentials(email, password string) url.Values {
	return url.Values{"email": {email}, "password": {password}}
}

func newTestEnvWithSecureCookie(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnv(t, func(o *web.Options) { o.SecureCookie = true })
}
