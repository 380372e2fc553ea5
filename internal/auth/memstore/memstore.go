// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memstore provides an in-memory auth.UserRepository for tests and
// single-process deployments without a database.
package memstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/auth"
)

// UserRepository is a mutex-guarded auth.UserRepository. It enforces the
// same uniqueness rules as the users table: email, session_id and
// reset_token are each unique when set.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[ulid.ULID]*auth.User
	byEmail map[string]ulid.ULID
	order   []ulid.ULID
	now     func() time.Time
}

// New creates an empty UserRepository.
func New() *UserRepository {
	return &UserRepository{
		byID:    make(map[ulid.ULID]*auth.User),
		byEmail: make(map[string]ulid.ULID),
		now:     time.Now,
	}
}

// Reset drops every stored user.
func (r *UserRepository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[ulid.ULID]*auth.User)
	r.byEmail = make(map[string]ulid.ULID)
	r.order = nil
}

// Len returns the number of stored users.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Create stores a copy of user, assigning ID and timestamps.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("USER_CREATE_FAILED").Wrap(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[user.Email]; taken {
		return oops.Code("USER_EMAIL_EXISTS").
			With("email", user.Email).
			Wrap(auth.ErrAlreadyExists)
	}
	if err := r.checkTokensLocked(ulid.ULID{}, user.SessionID, user.ResetToken); err != nil {
		return err
	}

	now := r.now()
	user.ID = ulid.Make()
	user.CreatedAt = now
	user.UpdatedAt = now

	r.byID[user.ID] = user.Clone()
	r.byEmail[user.Email] = user.ID
	r.order = append(r.order, user.ID)
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Code("USER_QUERY_FAILED").Wrap(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return u.Clone(), nil
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Code("USER_QUERY_FAILED").Wrap(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	return r.byID[id].Clone(), nil
}

// GetBySessionID retrieves the user holding sessionID.
func (r *UserRepository) GetBySessionID(ctx context.Context, sessionID string) (*auth.User, error) {
	return r.find(ctx, "session_id", func(u *auth.User) bool {
		return u.SessionID != nil && *u.SessionID == sessionID
	})
}

// GetByResetToken retrieves the user holding token.
func (r *UserRepository) GetByResetToken(ctx context.Context, token string) (*auth.User, error) {
	return r.find(ctx, "reset_token", func(u *auth.User) bool {
		return u.ResetToken != nil && *u.ResetToken == token
	})
}

// List returns copies of all users in creation order.
func (r *UserRepository) List(ctx context.Context) ([]*auth.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Code("USER_LIST_FAILED").Wrap(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*auth.User, 0, len(r.order))
	for _, id := range r.order {
		users = append(users, r.byID[id].Clone())
	}
	return users, nil
}

// UpdateSessionID sets or clears the session token.
func (r *UserRepository) UpdateSessionID(ctx context.Context, id ulid.ULID, sessionID *string) error {
	return r.mutate(ctx, id, func(u *auth.User) error {
		if err := r.checkTokensLocked(id, sessionID, nil); err != nil {
			return err
		}
		u.SessionID = auth.CloneString(sessionID)
		return nil
	})
}

// UpdateResetToken sets or clears the reset token.
func (r *UserRepository) UpdateResetToken(ctx context.Context, id ulid.ULID, token *string) error {
	return r.mutate(ctx, id, func(u *auth.User) error {
		if err := r.checkTokensLocked(id, nil, token); err != nil {
			return err
		}
		u.ResetToken = auth.CloneString(token)
		return nil
	})
}

// UpdatePassword sets the password hash and clears the reset token under one
// lock acquisition.
func (r *UserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, hashedPassword string) error {
	return r.mutate(ctx, id, func(u *auth.User) error {
		u.HashedPassword = hashedPassword
		u.ResetToken = nil
		return nil
	})
}

// UpdateProfile sets the display name fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, id ulid.ULID, firstName, lastName *string) error {
	return r.mutate(ctx, id, func(u *auth.User) error {
		u.FirstName = auth.CloneString(firstName)
		u.LastName = auth.CloneString(lastName)
		return nil
	})
}

// Delete removes a user.
func (r *UserRepository) Delete(ctx context.Context, id ulid.ULID) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("USER_DELETE_FAILED").Wrap(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	delete(r.byID, id)
	delete(r.byEmail, u.Email)
	r.order = slices.DeleteFunc(r.order, func(v ulid.ULID) bool { return v == id })
	return nil
}

func (r *UserRepository) find(ctx context.Context, field string, match func(*auth.User) bool) (*auth.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Code("USER_QUERY_FAILED").Wrap(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if u := r.byID[id]; match(u) {
			return u.Clone(), nil
		}
	}

	return nil, oops.Code("USER_NOT_FOUND").With("field", field).Wrap(auth.ErrNotFound)
}

func (r *UserRepository) mutate(ctx context.Context, id ulid.ULID, apply func(*auth.User) error) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("USER_UPDATE_FAILED").Wrap(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}

	next := u.Clone()
	if err := apply(next); err != nil {
		return err
	}
	next.UpdatedAt = r.now()
	r.byID[id] = next
	return nil
}

// checkTokensLocked rejects a token already held by a user other than self.
// Callers must hold r.mu.
func (r *UserRepository) checkTokensLocked(self ulid.ULID, sessionID, resetToken *string) error {
	for id, u := range r.byID {
		if id == self {
			continue
		}
		if sessionID != nil && u.SessionID != nil && *u.SessionID == *sessionID {
			return oops.Code("USER_TOKEN_CONFLICT").With("column", "session_id").Wrap(auth.ErrAlreadyExists)
		}
		if resetToken != nil && u.ResetToken != nil && *u.ResetToken == *resetToken {
			return oops.Code("USER_TOKEN_CONFLICT").With("column", "reset_token").Wrap(auth.ErrAlreadyExists)
		}
	}
	return nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
