// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"errors"
	"net/http"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/pkg/errutil"
)

func (h *handlers) index(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "Bienvenue")
}

// register handles POST /users.
func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	user, err := h.auth.Register(r.Context(), email, password)
	switch {
	case errors.Is(err, auth.ErrAlreadyExists):
		writeMessage(w, http.StatusBadRequest, "email already registered")
		return
	case isInvalidInput(err):
		writeMessage(w, http.StatusBadRequest, "email and password are required")
		return
	case err != nil:
		h.internalError(w, r, "register", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"email": user.Email, "message": "user created"})
}

// login handles POST /sessions.
func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	ok, err := h.auth.ValidLogin(r.Context(), email, password)
	if err != nil {
		h.internalError(w, r, "login", err)
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	token, err := h.auth.CreateSession(r.Context(), email)
	if err != nil {
		h.internalError(w, r, "create session", err)
		return
	}
	if token == "" {
		// The user vanished between the check and the session write.
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	http.SetCookie(w, h.sessionCookie(token, 0))
	writeJSON(w, http.StatusOK, map[string]string{"email": email, "message": "logged in"})
}

// logout handles DELETE /sessions.
func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessionUser(r)
	if err != nil {
		h.internalError(w, r, "resolve session", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}

	if err := h.auth.DestroySession(r.Context(), user.ID); err != nil {
		h.internalError(w, r, "destroy session", err)
		return
	}

	http.SetCookie(w, h.sessionCookie("", -1))
	http.Redirect(w, r, "/", http.StatusFound)
}

// profile handles GET /profile.
func (h *handlers) profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessionUser(r)
	if err != nil {
		h.internalError(w, r, "resolve session", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": user.Email})
}

// requestReset handles POST /reset_password.
func (h *handlers) requestReset(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")

	token, err := h.auth.RequestPasswordReset(r.Context(), email)
	switch {
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	case err != nil:
		h.internalError(w, r, "request password reset", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"email": email, "reset_token": token})
}

// completeReset handles PUT /reset_password.
func (h *handlers) completeReset(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	token := r.PostFormValue("reset_token")
	password := r.PostFormValue("new_password")

	err := h.auth.CompletePasswordReset(r.Context(), token, password)
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	case isInvalidInput(err):
		writeMessage(w, http.StatusBadRequest, "new_password is required")
		return
	case err != nil:
		h.internalError(w, r, "complete password reset", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"email": email, "message": "Password updated"})
}

// sessionUser resolves the session cookie. A missing cookie or an unknown
// token yields nil.
func (h *handlers) sessionUser(r *http.Request) (*auth.User, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, nil
	}
	//nolint:wrapcheck // service errors already carry codes
	return h.auth.UserFromSession(r.Context(), cookie.Value)
}

func (h *handlers) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *handlers) internalError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	errutil.LogErrorContext(r.Context(), h.logger.With("operation", operation), "request failed", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func isInvalidInput(err error) bool {
	switch errutil.Code(err) {
	case "AUTH_INVALID_INPUT", "AUTH_EMPTY_PASSWORD":
		return true
	}
	return false
}
