package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-shortvideo-feed/internal/transport/http/apierrors"
)

type followRequest struct {
	FollowerID string `json:"followerId"`
}

type unfollowResponse struct {
	Success bool `json:"success"`
}

type isFollowingResponse struct {
	IsFollowing bool `json:"isFollowing"`
}

// Follow — POST /users/{userId}/follow {followerId}; дубль -> 400/already_exists.
func (h *Handlers) Follow(w http.ResponseWriter, r *http.Request) {
	var in followRequest
	if err := decodeOptional(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	follow, err := h.svc.Follow(r.Context(), chi.URLParam(r, "userId"), in.FollowerID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, follow)
}

// Unfollow — DELETE /users/{userId}/follow {followerId}; без followerId -> 400.
func (h *Handlers) Unfollow(w http.ResponseWriter, r *http.Request) {
	var in followRequest
	if err := decodeOptional(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.Unfollow(r.Context(), chi.URLParam(r, "userId"), in.FollowerID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, unfollowResponse{Success: true})
}

// IsFollowing — GET /users/{userId}/following/{targetUserId}
func (h *Handlers) IsFollowing(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.IsFollowing(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "targetUserId"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, isFollowingResponse{IsFollowing: ok})
}
