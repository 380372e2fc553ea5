// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/holomush/holoauth/internal/auth"
)

// meAlias in a user path resolves to the session user.
const meAlias = "me"

type createUserRequest struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

type updateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

func (h *handlers) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.internalError(w, r, "count users", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"users": len(users)})
}

func (h *handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.internalError(w, r, "list users", err)
		return
	}

	out := make([]userJSON, 0, len(users))
	for _, u := range users {
		out = append(out, toUserJSON(u))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) getUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.lookupUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toUserJSON(user))
}

func (h *handlers) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "Wrong format or email missing")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "Password missing")
		return
	}

	user, err := h.users.Create(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	switch {
	case errors.Is(err, auth.ErrAlreadyExists):
		writeError(w, http.StatusBadRequest, "Can't create User: email already registered")
		return
	case err != nil:
		h.internalError(w, r, "create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserJSON(user))
}

func (h *handlers) updateUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.lookupUser(w, r)
	if !ok {
		return
	}

	req, ok := decodeUpdate(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Wrong format")
		return
	}

	updated, err := h.users.UpdateProfile(r.Context(), user.ID, req.FirstName, req.LastName)
	switch {
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
		return
	case err != nil:
		h.internalError(w, r, "update user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserJSON(updated))
}

// decodeUpdate accepts only a non-empty JSON object; null, {} and other
// JSON values are rejected.
func decodeUpdate(r *http.Request) (updateUserRequest, bool) {
	var req updateUserRequest
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return req, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || len(fields) == 0 {
		return req, false
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, false
	}
	return req, true
}

func (h *handlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.lookupUser(w, r)
	if !ok {
		return
	}

	err := h.users.Remove(r.Context(), user.ID)
	switch {
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
		return
	case err != nil:
		h.internalError(w, r, "delete user", err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

// lookupUser resolves the {id} path parameter, writing 404 when it names
// nobody. It reports whether the handler should continue.
func (h *handlers) lookupUser(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	raw := chi.URLParam(r, "id")
	if raw == meAlias {
		user := CurrentUser(r.Context())
		if user == nil {
			writeError(w, http.StatusNotFound, "Not found")
			return nil, false
		}
		return user, true
	}

	id, err := ulid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusNotFound, "Not found")
		return nil, false
	}

	user, err := h.users.Get(r.Context(), id)
	switch {
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
		return nil, false
	case err != nil:
		h.internalError(w, r, "get user", err)
		return nil, false
	}
	return user, true
}
