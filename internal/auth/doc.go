// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides the credential and session lifecycle for holoauth.
//
// # Domain Types
//
// User is the only entity. Its SessionID and ResetToken are nil exactly while
// no session or password reset is outstanding. Stores implement
// UserRepository with a closed set of named lookups; there is no lookup by
// arbitrary field.
//
// # Services
//
//   - Service - register, login check, session issue/resolve/revoke, password reset
//   - UserService - user directory operations behind the CRUD views
//
// Both are created with constructors that validate dependencies. Neither holds
// state beyond its store handle; the store serializes conflicting writes.
//
// # Absence policy
//
// A missing row is routine for ValidLogin, CreateSession, UserFromSession and
// DestroySession, which report absence as false, "" or nil. Register,
// RequestPasswordReset and CompletePasswordReset treat it as a failed
// precondition and return ErrAlreadyExists, ErrNotFound or ErrInvalidToken.
package auth
