// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memstore_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/auth/memstore"
	"github.com/holomush/holoauth/pkg/errutil"
)

func ptr(s string) *string { return &s }

func seed(t *testing.T, repo *memstore.UserRepository, email string) *auth.User {
	t.Helper()
	u := &auth.User{Email: email, HashedPassword: "$argon2id$h"}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns id and timestamps", func(t *testing.T) {
		repo := memstore.New()
		u := seed(t, repo, "a@x.com")

		assert.False(t, u.ID.IsZero())
		assert.False(t, u.CreatedAt.IsZero())
		assert.Equal(t, u.CreatedAt, u.UpdatedAt)
	})

	t.Run("duplicate email keeps one row", func(t *testing.T) {
		repo := memstore.New()
		seed(t, repo, "a@x.com")

		err := repo.Create(ctx, &auth.User{Email: "a@x.com", HashedPassword: "$argon2id$other"})
		require.ErrorIs(t, err, auth.ErrAlreadyExists)
		errutil.AssertErrorCode(t, err, "USER_EMAIL_EXISTS")
		assert.Equal(t, 1, repo.Len())
	})

	t.Run("stored copy is isolated from caller", func(t *testing.T) {
		repo := memstore.New()
		u := seed(t, repo, "a@x.com")
		u.Email = "mutated@x.com"

		got, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", got.Email)
	})
}

func TestLookups(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New()
	u := seed(t, repo, "a@x.com")
	require.NoError(t, repo.UpdateSessionID(ctx, u.ID, ptr("sess")))
	require.NoError(t, repo.UpdateResetToken(ctx, u.ID, ptr("reset")))

	tests := []struct {
		name   string
		lookup func() (*auth.User, error)
	}{
		{name: "by id", lookup: func() (*auth.User, error) { return repo.GetByID(ctx, u.ID) }},
		{name: "by email", lookup: func() (*auth.User, error) { return repo.GetByEmail(ctx, "a@x.com") }},
		{name: "by session id", lookup: func() (*auth.User, error) { return repo.GetBySessionID(ctx, "sess") }},
		{name: "by reset token", lookup: func() (*auth.User, error) { return repo.GetByResetToken(ctx, "reset") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.lookup()
			require.NoError(t, err)
			assert.Equal(t, u.ID, got.ID)
		})
	}

	misses := []struct {
		name   string
		lookup func() (*auth.User, error)
	}{
		{name: "unknown id", lookup: func() (*auth.User, error) { return repo.GetByID(ctx, ulid.Make()) }},
		{name: "unknown email", lookup: func() (*auth.User, error) { return repo.GetByEmail(ctx, "A@X.COM") }},
		{name: "unknown session", lookup: func() (*auth.User, error) { return repo.GetBySessionID(ctx, "other") }},
		{name: "unknown reset token", lookup: func() (*auth.User, error) { return repo.GetByResetToken(ctx, "other") }},
	}
	for _, tt := range misses {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.lookup()
			assert.Nil(t, got)
			require.ErrorIs(t, err, auth.ErrNotFound)
			errutil.AssertErrorCode(t, err, "USER_NOT_FOUND")
		})
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New()
	for i := range 3 {
		seed(t, repo, fmt.Sprintf("u%d@x.com", i))
	}

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	for i, u := range users {
		assert.Equal(t, fmt.Sprintf("u%d@x.com", i), u.Email)
	}
}

func TestTokenColumns(t *testing.T) {
	ctx := context.Background()

	t.Run("nil clears the session", func(t *testing.T) {
		repo := memstore.New()
		u := seed(t, repo, "a@x.com")
		require.NoError(t, repo.UpdateSessionID(ctx, u.ID, ptr("sess")))
		require.NoError(t, repo.UpdateSessionID(ctx, u.ID, nil))

		got, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Nil(t, got.SessionID)
		_, err = repo.GetBySessionID(ctx, "sess")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("session id is unique across users", func(t *testing.T) {
		repo := memstore.New()
		a := seed(t, repo, "a@x.com")
		b := seed(t, repo, "b@x.com")
		require.NoError(t, repo.UpdateSessionID(ctx, a.ID, ptr("sess")))

		err := repo.UpdateSessionID(ctx, b.ID, ptr("sess"))
		require.ErrorIs(t, err, auth.ErrAlreadyExists)
		errutil.AssertErrorContext(t, err, "column", "session_id")
	})

	t.Run("reset token is unique across users", func(t *testing.T) {
		repo := memstore.New()
		a := seed(t, repo, "a@x.com")
		b := seed(t, repo, "b@x.com")
		require.NoError(t, repo.UpdateResetToken(ctx, a.ID, ptr("tok")))

		err := repo.UpdateResetToken(ctx, b.ID, ptr("tok"))
		require.ErrorIs(t, err, auth.ErrAlreadyExists)
		errutil.AssertErrorContext(t, err, "column", "reset_token")
	})

	t.Run("rewriting own token is allowed", func(t *testing.T) {
		repo := memstore.New()
		a := seed(t, repo, "a@x.com")
		require.NoError(t, repo.UpdateSessionID(ctx, a.ID, ptr("sess")))
		require.NoError(t, repo.UpdateSessionID(ctx, a.ID, ptr("sess")))
	})
}

func TestUpdatePasswordClearsResetToken(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New()
	u := seed(t, repo, "a@x.com")
	require.NoError(t, repo.UpdateResetToken(ctx, u.ID, ptr("tok")))

	require.NoError(t, repo.UpdatePassword(ctx, u.ID, "$argon2id$new"))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "$argon2id$new", got.HashedPassword)
	assert.Nil(t, got.ResetToken)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New()
	u := seed(t, repo, "a@x.com")

	require.NoError(t, repo.UpdateProfile(ctx, u.ID, ptr("Ada"), ptr("Lovelace")))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.DisplayName())
}

func TestMutationsOnUnknownID(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New()
	id := ulid.Make()

	assert.ErrorIs(t, repo.UpdateSessionID(ctx, id, ptr("s")), auth.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateResetToken(ctx, id, ptr("r")), auth.ErrNotFound)
	assert.ErrorIs(t, repo.UpdatePassword(ctx, id, "h"), auth.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateProfile(ctx, id, nil, nil), auth.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, id), auth.ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New()
	u := seed(t, repo, "a@x.com")
	seed(t, repo, "b@x.com")

	require.NoError(t, repo.Delete(ctx, u.ID))

	_, err := repo.GetByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, auth.ErrNotFound)
	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "b@x.com", users[0].Email)

	// The email is free again.
	seed(t, repo, "a@x.com")
}

func TestReset(t *testing.T) {
	repo := memstore.New()
	seed(t, repo, "a@x.com")
	seed(t, repo, "b@x.com")

	repo.Reset()

	assert.Equal(t, 0, repo.Len())
	seed(t, repo, "a@x.com")
}

func TestCanceledContext(t *testing.T) {
	repo := memstore.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Create(ctx, &auth.User{Email: "a@x.com"})
	require.ErrorIs(t, err, context.Canceled)
	_, err = repo.GetByEmail(ctx, "a@x.com")
	require.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentCreateSameEmail(t *testing.T) {
	repo := memstore.New()
	ctx := context.Background()

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for range workers {
		wg.Go(func() {
			err := repo.Create(ctx, &auth.User{Email: "race@x.com", HashedPassword: "h"})
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, 1, repo.Len())
}

func TestStoredUsersAreIsolated(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New()
	u := seed(t, repo, "a@x.com")

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	got.Email = "changed@x.com"

	first := ptr("Ada")
	require.NoError(t, repo.UpdateProfile(ctx, u.ID, first, nil))
	*first = "Grace"

	stored, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", stored.Email)
	require.NotNil(t, stored.FirstName)
	assert.Equal(t, "Ada", *stored.FirstName)
}

func TestGetByIDUnknownCarriesID(t *testing.T) {
	id := ulid.Make()
	_, err := memstore.New().GetByID(context.Background(), id)
	require.ErrorIs(t, err, auth.ErrNotFound)
	errutil.AssertErrorCode(t, err, "USER_NOT_FOUND")
	errutil.AssertErrorContext(t, err, "id", id.String())
}
