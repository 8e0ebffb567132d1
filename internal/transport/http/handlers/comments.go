package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-shortvideo-feed/internal/service"
	"github.com/pribylovaa/go-shortvideo-feed/internal/transport/http/apierrors"
)

// createCommentRequest — id и createdAt клиент не передаёт: их назначает сервер.
type createCommentRequest struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
	Text      string `json:"text"`
}

// ListComments — GET /videos/{videoId}/comments (сначала новые).
func (h *Handlers) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.svc.Comments(r.Context(), chi.URLParam(r, "videoId"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, comments)
}

// CreateComment — POST /videos/{videoId}/comments
func (h *Handlers) CreateComment(w http.ResponseWriter, r *http.Request) {
	var in createCommentRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	comment, err := h.svc.CreateComment(r.Context(), service.CreateCommentInput{
		VideoID:   chi.URLParam(r, "videoId"),
		UserID:    in.UserID,
		Username:  in.Username,
		AvatarURL: in.AvatarURL,
		Text:      in.Text,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, comment)
}

// LikeComment — POST /comments/{commentId}/like, тело {viewerId} опционально.
func (h *Handlers) LikeComment(w http.ResponseWriter, r *http.Request) {
	var in viewerRequest
	if err := decodeOptional(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	comment, err := h.svc.LikeComment(r.Context(), chi.URLParam(r, "commentId"), in.ViewerID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, comment)
}

// UnlikeComment — DELETE /comments/{commentId}/like {viewerId}
func (h *Handlers) UnlikeComment(w http.ResponseWriter, r *http.Request) {
	var in viewerRequest
	if err := decodeOptional(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	comment, err := h.svc.UnlikeComment(r.Context(), chi.URLParam(r, "commentId"), in.ViewerID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, comment)
}
