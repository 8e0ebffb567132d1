package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-shortvideo-feed/internal/service"
	"github.com/pribylovaa/go-shortvideo-feed/internal/transport/http/apierrors"
)

type createProfileRequest struct {
	Username  string  `json:"username"`
	AvatarURL string  `json:"avatarUrl"`
	Bio       *string `json:"bio"`
}

// updateProfileRequest — отсутствующее поле означает «не менять».
type updateProfileRequest struct {
	Username  *string `json:"username"`
	AvatarURL *string `json:"avatarUrl"`
	Bio       *string `json:"bio"`
}

type avatarPresignRequest struct {
	ContentType   string `json:"contentType"`
	ContentLength int64  `json:"contentLength"`
}

type avatarPresignResponse struct {
	UploadURL       string            `json:"uploadUrl"`
	AvatarKey       string            `json:"avatarKey"`
	ExpiresAt       time.Time         `json:"expiresAt"`
	RequiredHeaders map[string]string `json:"requiredHeaders,omitempty"`
}

type avatarConfirmRequest struct {
	AvatarKey string `json:"avatarKey"`
}

// GetProfile — GET /users/{userId}/profile
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.Profile(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// CreateProfile — POST /users/{userId}/profile
func (h *Handlers) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var in createProfileRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	profile, err := h.svc.CreateProfile(r.Context(), service.CreateProfileInput{
		UserID:    chi.URLParam(r, "userId"),
		Username:  in.Username,
		AvatarURL: in.AvatarURL,
		Bio:       in.Bio,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, profile)
}

// UpdateProfile — PATCH /users/{userId}/profile
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in updateProfileRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	profile, err := h.svc.UpdateProfile(r.Context(), service.UpdateProfileInput{
		UserID:    chi.URLParam(r, "userId"),
		Username:  in.Username,
		AvatarURL: in.AvatarURL,
		Bio:       in.Bio,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// AvatarPresign — POST /users/{userId}/avatar/presign
func (h *Handlers) AvatarPresign(w http.ResponseWriter, r *http.Request) {
	var in avatarPresignRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	info, err := h.svc.AvatarUploadURL(r.Context(), service.AvatarUploadURLInput{
		UserID:        chi.URLParam(r, "userId"),
		ContentType:   in.ContentType,
		ContentLength: in.ContentLength,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, avatarPresignResponse{
		UploadURL:       info.UploadURL,
		AvatarKey:       info.AvatarKey,
		ExpiresAt:       time.Now().UTC().Add(info.Expires),
		RequiredHeaders: info.RequiredHeader,
	})
}

// AvatarConfirm — POST /users/{userId}/avatar/confirm
func (h *Handlers) AvatarConfirm(w http.ResponseWriter, r *http.Request) {
	var in avatarConfirmRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	profile, err := h.svc.ConfirmAvatarUpload(r.Context(), service.ConfirmAvatarUploadInput{
		UserID:    chi.URLParam(r, "userId"),
		AvatarKey: in.AvatarKey,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
