// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres implements auth.UserRepository on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/auth"
)

// Querier is the subset of *pgxpool.Pool the repository needs.
// pgxmock.PgxPoolIface satisfies it in unit tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id, email, hashed_password, session_id, reset_token,
		       first_name, last_name, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool Querier
	now  func() time.Time
}

// NewUserRepository creates a new UserRepository. Timestamps are kept at
// microsecond precision to match timestamptz.
func NewUserRepository(pool Querier) *UserRepository {
	return &UserRepository{pool: pool, now: nowMicros}
}

func nowMicros() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Create inserts a new user, assigning ID and timestamps.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	now := r.now()
	id := ulid.Make()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (
			id, email, hashed_password, session_id, reset_token,
			first_name, last_name, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		id.String(),
		user.Email,
		user.HashedPassword,
		user.SessionID,
		user.ResetToken,
		user.FirstName,
		user.LastName,
		now,
		now,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return oops.Code("USER_EMAIL_EXISTS").
				With("email", user.Email).
				With("constraint", constraint).
				Wrap(errors.Join(auth.ErrAlreadyExists, err))
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("email", user.Email).
			Wrap(err)
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	return r.getOne(ctx, "id", id.String())
}

// GetByEmail retrieves a user by email. Matching is exact.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.getOne(ctx, "email", email)
}

// GetBySessionID retrieves the user holding sessionID.
func (r *UserRepository) GetBySessionID(ctx context.Context, sessionID string) (*auth.User, error) {
	return r.getOne(ctx, "session_id", sessionID)
}

// GetByResetToken retrieves the user holding token.
func (r *UserRepository) GetByResetToken(ctx context.Context, token string) (*auth.User, error) {
	return r.getOne(ctx, "reset_token", token)
}

// lookupQueries is closed over the columns getOne accepts.
var lookupQueries = map[string]string{
	"id":          `SELECT ` + userColumns + ` FROM users WHERE id = $1`,
	"email":       `SELECT ` + userColumns + ` FROM users WHERE email = $1`,
	"session_id":  `SELECT ` + userColumns + ` FROM users WHERE session_id = $1`,
	"reset_token": `SELECT ` + userColumns + ` FROM users WHERE reset_token = $1`,
}

func (r *UserRepository) getOne(ctx context.Context, column, value string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, lookupQueries[column], value)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		e := oops.Code("USER_NOT_FOUND").With("field", column)
		if column == "id" || column == "email" {
			e = e.With(column, value)
		}
		return nil, e.Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_QUERY_FAILED").
			With("operation", "get user by "+column).
			Wrap(err)
	}
	return user, nil
}

// List returns all users ordered by creation time.
func (r *UserRepository) List(ctx context.Context) ([]*auth.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, oops.Code("USER_LIST_FAILED").With("operation", "list users").Wrap(err)
	}
	defer rows.Close()

	var users []*auth.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, oops.Code("USER_LIST_FAILED").With("operation", "scan user row").Wrap(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("USER_LIST_FAILED").With("operation", "iterate users").Wrap(err)
	}
	return users, nil
}

// UpdateSessionID sets or clears the session token.
func (r *UserRepository) UpdateSessionID(ctx context.Context, id ulid.ULID, sessionID *string) error {
	return r.update(ctx, id, "update session id",
		`UPDATE users SET session_id = $2, updated_at = $3 WHERE id = $1`,
		sessionID)
}

// UpdateResetToken sets or clears the reset token.
func (r *UserRepository) UpdateResetToken(ctx context.Context, id ulid.ULID, token *string) error {
	return r.update(ctx, id, "update reset token",
		`UPDATE users SET reset_token = $2, updated_at = $3 WHERE id = $1`,
		token)
}

// UpdatePassword sets the password hash and clears the reset token in one
// statement.
func (r *UserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, hashedPassword string) error {
	return r.update(ctx, id, "update password",
		`UPDATE users SET hashed_password = $2, reset_token = NULL, updated_at = $3 WHERE id = $1`,
		hashedPassword)
}

// UpdateProfile sets the display name fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, id ulid.ULID, firstName, lastName *string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET first_name = $2, last_name = $3, updated_at = $4
		WHERE id = $1
	`, id.String(), firstName, lastName, r.now())
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update profile").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes a user.
func (r *UserRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("USER_DELETE_FAILED").
			With("operation", "delete user").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

func (r *UserRepository) update(ctx context.Context, id ulid.ULID, operation, sql string, value any) error {
	result, err := r.pool.Exec(ctx, sql, id.String(), value, r.now())
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return oops.Code("USER_TOKEN_CONFLICT").
				With("operation", operation).
				With("constraint", constraint).
				Wrap(errors.Join(auth.ErrAlreadyExists, err))
		}
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", operation).
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// uniqueViolation reports whether err is a PostgreSQL unique violation and
// names the constraint.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr string
		user  auth.User
	)

	err := row.Scan(
		&idStr,
		&user.Email,
		&user.HashedPassword,
		&user.SessionID,
		&user.ResetToken,
		&user.FirstName,
		&user.LastName,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("USER_SCAN_FAILED").With("operation", "scan user").Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			With("id", idStr).
			Wrap(err)
	}
	user.ID = id
	return &user, nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
