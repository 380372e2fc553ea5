// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/holoauth/pkg/errutil"
)

// Service provides registration, login and the session and reset lifecycle.
type Service struct {
	users  UserRepository
	hasher PasswordHasher
	logger *slog.Logger
}

// NewService creates a new Service that logs to slog.Default().
func NewService(users UserRepository, hasher PasswordHasher) (*Service, error) {
	return NewServiceWithLogger(users, hasher, slog.Default())
}

// NewServiceWithLogger creates a new Service with an explicit logger.
func NewServiceWithLogger(users UserRepository, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("logger is required")
	}
	return &Service{users: users, hasher: hasher, logger: logger}, nil
}

// Register creates a user with the given email and password.
// Fails with AUTH_ALREADY_EXISTS if the email is on file.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	if err := requireCredentials(email, password); err != nil {
		record(OpRegister, StatusRejected)
		return nil, err
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		record(OpRegister, StatusRejected)
		return nil, alreadyExists(email)
	case !errors.Is(err, ErrNotFound):
		return nil, s.fault(ctx, OpRegister, "get user by email", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, s.fault(ctx, OpRegister, "hash password", err)
	}

	user := &User{Email: email, HashedPassword: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			// Lost a race with a concurrent registration.
			record(OpRegister, StatusRejected)
			return nil, alreadyExists(email)
		}
		return nil, s.fault(ctx, OpRegister, "create user", err)
	}

	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID.String(),
		"email", email,
	)
	record(OpRegister, StatusSuccess)
	return user, nil
}

// ValidLogin reports whether password matches the stored hash for email.
// An unknown email or an unreadable stored hash yields false, never an error.
// No session is created.
func (s *Service) ValidLogin(ctx context.Context, email, password string) (bool, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			record(OpLogin, StatusNotFound)
			return false, nil
		}
		return false, s.fault(ctx, OpLogin, "get user by email", err)
	}

	ok, err := s.hasher.Verify(password, user.HashedPassword)
	if err != nil {
		s.logger.WarnContext(ctx, "stored password hash could not be verified",
			"user_id", user.ID.String(),
			"code", errutil.Code(err),
		)
		record(OpLogin, StatusRejected)
		return false, nil
	}
	if !ok {
		s.logger.WarnContext(ctx, "login rejected", "user_id", user.ID.String())
		record(OpLogin, StatusRejected)
		return false, nil
	}

	record(OpLogin, StatusSuccess)
	return true, nil
}

// CreateSession issues a fresh session token for the user with email,
// replacing any previous one. Returns "" when no such user exists.
func (s *Service) CreateSession(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			record(OpCreateSession, StatusNotFound)
			return "", nil
		}
		return "", s.fault(ctx, OpCreateSession, "get user by email", err)
	}

	token, err := GenerateToken()
	if err != nil {
		return "", s.fault(ctx, OpCreateSession, "generate session token", err)
	}

	if err := s.users.UpdateSessionID(ctx, user.ID, &token); err != nil {
		return "", s.fault(ctx, OpCreateSession, "store session token", err)
	}

	s.logger.InfoContext(ctx, "session created",
		"user_id", user.ID.String(),
		"replaced", user.HasSession(),
	)
	record(OpCreateSession, StatusSuccess)
	return token, nil
}

// UserFromSession returns the user holding sessionID, or nil when the token
// is empty or matches nobody. An empty token never reaches the store.
func (s *Service) UserFromSession(ctx context.Context, sessionID string) (*User, error) {
	if sessionID == "" {
		record(OpResolveSession, StatusNotFound)
		return nil, nil
	}

	user, err := s.users.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			record(OpResolveSession, StatusNotFound)
			return nil, nil
		}
		return nil, s.fault(ctx, OpResolveSession, "get user by session id", err)
	}

	record(OpResolveSession, StatusSuccess)
	return user, nil
}

// DestroySession clears the session token of userID. A zero ID, an unknown
// user, or a user without a session are all no-ops.
func (s *Service) DestroySession(ctx context.Context, userID ulid.ULID) error {
	if userID.IsZero() {
		return nil
	}

	if err := s.users.UpdateSessionID(ctx, userID, nil); err != nil {
		if errors.Is(err, ErrNotFound) {
			record(OpDestroySession, StatusNotFound)
			return nil
		}
		return s.fault(ctx, OpDestroySession, "clear session token", err)
	}

	s.logger.InfoContext(ctx, "session destroyed", "user_id", userID.String())
	record(OpDestroySession, StatusSuccess)
	return nil
}

// RequestPasswordReset issues a fresh reset token for the user with email,
// invalidating any previous one. Fails with AUTH_USER_NOT_FOUND for an
// unknown email.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			record(OpRequestReset, StatusNotFound)
			return "", oops.Code("AUTH_USER_NOT_FOUND").
				With("email", email).
				Wrap(ErrNotFound)
		}
		return "", s.fault(ctx, OpRequestReset, "get user by email", err)
	}

	token, err := GenerateToken()
	if err != nil {
		return "", s.fault(ctx, OpRequestReset, "generate reset token", err)
	}

	if err := s.users.UpdateResetToken(ctx, user.ID, &token); err != nil {
		return "", s.fault(ctx, OpRequestReset, "store reset token", err)
	}

	s.logger.InfoContext(ctx, "password reset requested", "user_id", user.ID.String())
	record(OpRequestReset, StatusSuccess)
	return token, nil
}

// CompletePasswordReset sets a new password for the user holding resetToken
// and clears the token in the same write. Fails with AUTH_INVALID_TOKEN when
// the token matches nobody.
func (s *Service) CompletePasswordReset(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" {
		record(OpCompleteReset, StatusRejected)
		return invalidToken()
	}
	if newPassword == "" {
		record(OpCompleteReset, StatusRejected)
		return oops.Code("AUTH_INVALID_INPUT").With("field", "password").Errorf("new password cannot be empty")
	}

	user, err := s.users.GetByResetToken(ctx, resetToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, "password reset with unknown token")
			record(OpCompleteReset, StatusRejected)
			return invalidToken()
		}
		return s.fault(ctx, OpCompleteReset, "get user by reset token", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return s.fault(ctx, OpCompleteReset, "hash password", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			// Removed between lookup and update.
			record(OpCompleteReset, StatusRejected)
			return invalidToken()
		}
		return s.fault(ctx, OpCompleteReset, "update password", err)
	}

	s.logger.InfoContext(ctx, "password reset completed", "user_id", user.ID.String())
	record(OpCompleteReset, StatusSuccess)
	return nil
}

// ChangePassword sets a new password for userID outside the reset flow.
// Any outstanding reset token is cleared along with the hash change.
func (s *Service) ChangePassword(ctx context.Context, userID ulid.ULID, newPassword string) error {
	if newPassword == "" {
		record(OpChangePassword, StatusRejected)
		return oops.Code("AUTH_INVALID_INPUT").With("field", "password").Errorf("new password cannot be empty")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return s.fault(ctx, OpChangePassword, "hash password", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			record(OpChangePassword, StatusNotFound)
			return userNotFound(userID)
		}
		return s.fault(ctx, OpChangePassword, "update password", err)
	}

	s.logger.InfoContext(ctx, "password changed", "user_id", userID.String())
	record(OpChangePassword, StatusSuccess)
	return nil
}

// fault wraps a storage or primitive failure, logs it and counts it.
func (s *Service) fault(ctx context.Context, operation, step string, err error) error {
	wrapped := oops.Code("AUTH_"+strings.ToUpper(operation)+"_FAILED").
		With("operation", step).
		Wrap(err)
	errutil.LogErrorContext(ctx, s.logger, "auth operation failed", wrapped)
	record(operation, StatusError)
	return wrapped
}

func requireCredentials(email, password string) error {
	if email == "" {
		return oops.Code("AUTH_INVALID_INPUT").With("field", "email").Errorf("email cannot be empty")
	}
	if password == "" {
		return oops.Code("AUTH_INVALID_INPUT").With("field", "password").Errorf("password cannot be empty")
	}
	return nil
}

func alreadyExists(email string) error {
	return oops.Code("AUTH_ALREADY_EXISTS").
		With("email", email).
		Wrapf(ErrAlreadyExists, "user %s already exists", email)
}

func invalidToken() error {
	return oops.Code("AUTH_INVALID_TOKEN").Wrapf(ErrInvalidToken, "invalid reset token")
}

func userNotFound(id ulid.ULID) error {
	return oops.Code("AUTH_USER_NOT_FOUND").
		With("user_id", id.String()).
		Wrap(ErrNotFound)
}
