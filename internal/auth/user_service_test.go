// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/auth/mocks"
	"github.com/holomush/holoauth/pkg/errutil"
)

func newTestUserService(t *testing.T) (*auth.UserService, *mocks.MockUserRepository, *mocks.MockPasswordHasher) {
	t.Helper()
	users := mocks.NewMockUserRepository(t)
	hasher := mocks.NewMockPasswordHasher(t)
	svc, err := auth.NewUserService(users, hasher)
	require.NoError(t, err)
	return svc, users, hasher
}

func TestNewUserService(t *testing.T) {
	_, err := auth.NewUserService(nil, mocks.NewMockPasswordHasher(t))
	errutil.AssertErrorCode(t, err, "USER_INVALID_CONFIG")

	_, err = auth.NewUserService(mocks.NewMockUserRepository(t), nil)
	errutil.AssertErrorCode(t, err, "USER_INVALID_CONFIG")
}

func TestUserServiceList(t *testing.T) {
	ctx := context.Background()
	svc, users, _ := newTestUserService(t)
	all := []*auth.User{testUser("a@x.com"), testUser("b@x.com")}
	users.On("List", ctx).Return(all, nil)

	got, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, all, got)
}

func TestUserServiceGet(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		svc, users, _ := newTestUserService(t)
		u := testUser("a@x.com")
		users.On("GetByID", ctx, u.ID).Return(u, nil)

		got, err := svc.Get(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u, got)
	})

	t.Run("missing", func(t *testing.T) {
		svc, users, _ := newTestUserService(t)
		id := ulid.Make()
		users.On("GetByID", ctx, id).Return(nil, auth.ErrNotFound)

		_, err := svc.Get(ctx, id)
		errutil.AssertCodedSentinel(t, err, "AUTH_USER_NOT_FOUND", auth.ErrNotFound)
	})

	t.Run("storage fault", func(t *testing.T) {
		svc, users, _ := newTestUserService(t)
		id := ulid.Make()
		users.On("GetByID", ctx, id).Return(nil, errDB)

		_, err := svc.Get(ctx, id)
		errutil.AssertErrorCode(t, err, "USER_GET_FAILED")
	})
}

func TestUserServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("with profile fields", func(t *testing.T) {
		svc, users, hasher := newTestUserService(t)
		hasher.On("Hash", "pw").Return("$argon2id$h", nil)
		users.On("Create", ctx, mock.MatchedBy(func(u *auth.User) bool {
			return u.Email == "bob@dylan.com" &&
				u.HashedPassword == "$argon2id$h" &&
				u.FirstName != nil && *u.FirstName == "Bob" &&
				u.LastName == nil
		})).Return(nil)

		u, err := svc.Create(ctx, "bob@dylan.com", "pw", strPtr("Bob"), nil)
		require.NoError(t, err)
		assert.Equal(t, "Bob", u.DisplayName())
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc, users, hasher := newTestUserService(t)
		hasher.On("Hash", "pw").Return("$argon2id$h", nil)
		users.On("Create", ctx, mock.Anything).Return(auth.ErrAlreadyExists)

		_, err := svc.Create(ctx, "bob@dylan.com", "pw", nil, nil)
		errutil.AssertCodedSentinel(t, err, "AUTH_ALREADY_EXISTS", auth.ErrAlreadyExists)
	})

	t.Run("missing password", func(t *testing.T) {
		svc, _, _ := newTestUserService(t)

		_, err := svc.Create(ctx, "bob@dylan.com", "", nil, nil)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_INPUT")
	})
}

func TestUserServiceUpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("nil keeps the stored value", func(t *testing.T) {
		svc, users, _ := newTestUserService(t)
		u := testUser("bob@dylan.com")
		u.FirstName = strPtr("Bob")
		u.LastName = strPtr("Dylan")
		updated := u.Clone()
		updated.LastName = strPtr("Marley")

		users.On("GetByID", ctx, u.ID).Return(u.Clone(), nil).Once()
		users.On("UpdateProfile", ctx, u.ID, strPtr("Bob"), strPtr("Marley")).Return(nil)
		users.On("GetByID", ctx, u.ID).Return(updated, nil).Once()

		got, err := svc.UpdateProfile(ctx, u.ID, nil, strPtr("Marley"))
		require.NoError(t, err)
		assert.Equal(t, "Bob Marley", got.DisplayName())
	})

	t.Run("missing user", func(t *testing.T) {
		svc, users, _ := newTestUserService(t)
		id := ulid.Make()
		users.On("GetByID", ctx, id).Return(nil, auth.ErrNotFound)

		_, err := svc.UpdateProfile(ctx, id, strPtr("A"), nil)
		errutil.AssertCodedSentinel(t, err, "AUTH_USER_NOT_FOUND", auth.ErrNotFound)
	})
}

func TestUserServiceRemove(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes", func(t *testing.T) {
		svc, users, _ := newTestUserService(t)
		id := ulid.Make()
		users.On("Delete", ctx, id).Return(nil)

		require.NoError(t, svc.Remove(ctx, id))
	})

	t.Run("missing user", func(t *testing.T) {
		svc, users, _ := newTestUserService(t)
		id := ulid.Make()
		users.On("Delete", ctx, id).Return(auth.ErrNotFound)

		err := svc.Remove(ctx, id)
		errutil.AssertCodedSentinel(t, err, "AUTH_USER_NOT_FOUND", auth.ErrNotFound)
	})
}
