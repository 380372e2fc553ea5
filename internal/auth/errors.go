// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "errors"

var (
	// ErrNotFound is returned when a requested user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when a user with the same email is on file.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidToken is returned when a reset token matches no user.
	ErrInvalidToken = errors.New("invalid token")
)
