package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-shortvideo-feed/internal/service"
	"github.com/pribylovaa/go-shortvideo-feed/internal/transport/http/apierrors"
)

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateUser — POST /users {username, password}; хэш пароля в ответ не попадает.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in createUserRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.CreateUser(r.Context(), service.CreateUserInput(in))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// GetUser — GET /users/{userId}
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.User(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// FindUser — GET /users?username=
func (h *Handlers) FindUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.UserByUsername(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
