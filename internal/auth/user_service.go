// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// UserService handles the user directory: listing, lookup, creation with
// profile fields, profile edits and removal.
type UserService struct {
	users  UserRepository
	hasher PasswordHasher
}

// NewUserService creates a new UserService.
func NewUserService(users UserRepository, hasher PasswordHasher) (*UserService, error) {
	if users == nil {
		return nil, oops.Code("USER_INVALID_CONFIG").Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("USER_INVALID_CONFIG").Errorf("password hasher is required")
	}
	return &UserService{users: users, hasher: hasher}, nil
}

// List returns every user ordered by creation time.
func (s *UserService) List(ctx context.Context) ([]*User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, oops.Code("USER_LIST_FAILED").Wrap(err)
	}
	return users, nil
}

// Get returns the user with the given ID.
func (s *UserService) Get(ctx context.Context, id ulid.ULID) (*User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, userNotFound(id)
		}
		return nil, oops.Code("USER_GET_FAILED").With("user_id", id.String()).Wrap(err)
	}
	return user, nil
}

// Create registers a user with optional display names.
func (s *UserService) Create(ctx context.Context, email, password string, firstName, lastName *string) (*User, error) {
	if err := requireCredentials(email, password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("USER_CREATE_FAILED").With("operation", "hash password").Wrap(err)
	}

	user := &User{
		Email:          email,
		HashedPassword: hash,
		FirstName:      CloneString(firstName),
		LastName:       CloneString(lastName),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, alreadyExists(email)
		}
		return nil, oops.Code("USER_CREATE_FAILED").With("email", email).Wrap(err)
	}
	return user, nil
}

// UpdateProfile changes the display names of a user. A nil argument keeps
// the stored value.
func (s *UserService) UpdateProfile(ctx context.Context, id ulid.ULID, firstName, lastName *string) (*User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if firstName != nil {
		user.FirstName = CloneString(firstName)
	}
	if lastName != nil {
		user.LastName = CloneString(lastName)
	}

	if err := s.users.UpdateProfile(ctx, id, user.FirstName, user.LastName); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, userNotFound(id)
		}
		return nil, oops.Code("USER_UPDATE_FAILED").With("user_id", id.String()).Wrap(err)
	}

	// Re-read so UpdatedAt reflects the store.
	return s.Get(ctx, id)
}

// Remove deletes a user.
func (s *UserService) Remove(ctx context.Context, id ulid.ULID) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return userNotFound(id)
		}
		return oops.Code("USER_DELETE_FAILED").With("user_id", id.String()).Wrap(err)
	}
	return nil
}
