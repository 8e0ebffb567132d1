package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-shortvideo-feed/internal/service"
	"github.com/pribylovaa/go-shortvideo-feed/internal/transport/http/apierrors"
)

type createVideoRequest struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	AvatarURL   string `json:"avatarUrl"`
	VideoURL    string `json:"videoUrl"`
	Description string `json:"description"`
	SoundName   string `json:"soundName"`
}

type viewerRequest struct {
	ViewerID string `json:"viewerId"`
}

// ListVideos — GET /videos?viewerId=
func (h *Handlers) ListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := h.svc.Videos(r.Context(), r.URL.Query().Get("viewerId"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, videos)
}

// GetVideo — GET /videos/{videoId}?viewerId=
func (h *Handlers) GetVideo(w http.ResponseWriter, r *http.Request) {
	video, err := h.svc.Video(r.Context(), chi.URLParam(r, "videoId"), r.URL.Query().Get("viewerId"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, video)
}

// CreateVideo — POST /videos
func (h *Handlers) CreateVideo(w http.ResponseWriter, r *http.Request) {
	var in createVideoRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	video, err := h.svc.CreateVideo(r.Context(), service.CreateVideoInput(in))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, video)
}

// LikeVideo — POST /videos/{videoId}/like {viewerId}
func (h *Handlers) LikeVideo(w http.ResponseWriter, r *http.Request) {
	var in viewerRequest
	if err := decodeOptional(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	video, err := h.svc.LikeVideo(r.Context(), chi.URLParam(r, "videoId"), in.ViewerID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, video)
}

// UnlikeVideo — DELETE /videos/{videoId}/like {viewerId}
func (h *Handlers) UnlikeVideo(w http.ResponseWriter, r *http.Request) {
	var in viewerRequest
	if err := decodeOptional(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	video, err := h.svc.UnlikeVideo(r.Context(), chi.URLParam(r, "videoId"), in.ViewerID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, video)
}
