// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// User represents a registered account.
type User struct {
	ID             ulid.ULID
	Email          string
	HashedPassword string
	SessionID      *string // nil while logged out
	ResetToken     *string // nil while no reset is outstanding
	FirstName      *string
	LastName       *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasSession reports whether the user currently holds a session token.
func (u *User) HasSession() bool {
	return u.SessionID != nil && *u.SessionID != ""
}

// HasPendingReset reports whether a password reset token is outstanding.
func (u *User) HasPendingReset() bool {
	return u.ResetToken != nil && *u.ResetToken != ""
}

// DisplayName joins the first and last name, falling back to whichever one is
// set and then to the email.
func (u *User) DisplayName() string {
	var parts []string
	if u.FirstName != nil && *u.FirstName != "" {
		parts = append(parts, *u.FirstName)
	}
	if u.LastName != nil && *u.LastName != "" {
		parts = append(parts, *u.LastName)
	}
	if len(parts) == 0 {
		return u.Email
	}
	return strings.Join(parts, " ")
}

// Clone returns a deep copy so callers can hand out users without sharing
// pointer fields.
func (u *User) Clone() *User {
	c := *u
	c.SessionID = CloneString(u.SessionID)
	c.ResetToken = CloneString(u.ResetToken)
	c.FirstName = CloneString(u.FirstName)
	c.LastName = CloneString(u.LastName)
	return &c
}

// CloneString copies an optional string so the result shares no storage
// with s.
func CloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// UserRepository manages user persistence.
//
// Lookups return an error wrapping ErrNotFound when no row matches. Create
// returns an error wrapping ErrAlreadyExists when the email is taken.
type UserRepository interface {
	// Create stores a new user, assigning ID, CreatedAt and UpdatedAt.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetBySessionID retrieves the user holding the given session token.
	GetBySessionID(ctx context.Context, sessionID string) (*User, error)

	// GetByResetToken retrieves the user holding the given reset token.
	GetByResetToken(ctx context.Context, token string) (*User, error)

	// List returns all users ordered by creation time.
	List(ctx context.Context) ([]*User, error)

	// UpdateSessionID sets the session token; nil clears it.
	UpdateSessionID(ctx context.Context, id ulid.ULID, sessionID *string) error

	// UpdateResetToken sets the reset token; nil clears it.
	UpdateResetToken(ctx context.Context, id ulid.ULID, token *string) error

	// UpdatePassword sets the password hash and clears the reset token in a
	// single write.
	UpdatePassword(ctx context.Context, id ulid.ULID, hashedPassword string) error

	// UpdateProfile sets the display name fields.
	UpdateProfile(ctx context.Context, id ulid.ULID, firstName, lastName *string) error

	// Delete removes a user.
	Delete(ctx context.Context, id ulid.ULID) error
}
