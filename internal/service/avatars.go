package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
	"github.com/pribylovaa/go-shortvideo-feed/internal/storage"
	"github.com/pribylovaa/go-shortvideo-feed/pkg/log"
)

// AvatarUploadURLInput — запрос presigned PUT для аватара.
type AvatarUploadURLInput struct {
	UserID        string `json:"userId" validate:"required"`
	ContentType   string `json:"contentType" validate:"required"`
	ContentLength int64  `json:"contentLength" validate:"gt=0"`
}

// ConfirmAvatarUploadInput — подтверждение загрузки аватара.
type ConfirmAvatarUploadInput struct {
	UserID    string `json:"userId" validate:"required"`
	AvatarKey string `json:"avatarKey" validate:"required"`
}

// AvatarUploadURL генерирует presigned PUT URL для загрузки аватара в S3/MinIO.
//
// Валидация:
//   - userId и contentType обязательны, contentLength > 0;
//   - ограничения типа/размера проверяет storage.Avatars.
//
// Ошибки:
//   - ErrUnavailable — S3 не сконфигурирован;
//   - ErrInvalidArgument — нарушены ограничения.
func (s *Service) AvatarUploadURL(ctx context.Context, in AvatarUploadURLInput) (*storage.UploadInfo, error) {
	const op = "service/avatars/AvatarUploadURL"

	in.UserID = strings.TrimSpace(in.UserID)
	in.ContentType = strings.TrimSpace(in.ContentType)
	lg := log.From(ctx).With("op", op, "user_id", in.UserID)

	if s.avatars == nil {
		lg.Warn("avatars storage is not configured")
		return nil, fmt.Errorf("%s: %w", op, ErrUnavailable)
	}

	if err := check(in).err(); err != nil {
		lg.Warn("invalid argument for presign", "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result, err := s.avatars.AvatarUploadURL(ctx, in.UserID, in.ContentType, in.ContentLength)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidAvatar) {
			lg.Warn("avatar constraints violated", "content_type", in.ContentType, "content_length", in.ContentLength)
			return nil, fmt.Errorf("%s: %w", op, &ValidationError{Fields: []FieldError{
				{Field: "contentType", Reason: "unsupported type or size"},
			}})
		}

		return nil, internalError(lg, op, "AvatarUploadURL", err)
	}

	return result, nil
}

// ConfirmAvatarUpload подтверждает загрузку аватара и записывает его URL в профиль.
//
// Поведение:
//  1. storage.Avatars проверяет ключ (принадлежность userId, наличие, тип/размер);
//  2. профиль обновляется публичным URL объекта.
//
// Ошибки:
//   - ErrUnavailable — S3 не сконфигурирован;
//   - ErrNotFound — объекта или профиля нет;
//   - ErrInvalidArgument — ключ чужой или объект нарушает ограничения.
func (s *Service) ConfirmAvatarUpload(ctx context.Context, in ConfirmAvatarUploadInput) (*models.UserProfile, error) {
	const op = "service/avatars/ConfirmAvatarUpload"

	in.UserID = strings.TrimSpace(in.UserID)
	in.AvatarKey = strings.TrimSpace(in.AvatarKey)
	lg := log.From(ctx).With("op", op, "user_id", in.UserID, "avatar_key", in.AvatarKey)

	if s.avatars == nil {
		lg.Warn("avatars storage is not configured")
		return nil, fmt.Errorf("%s: %w", op, ErrUnavailable)
	}

	if err := check(in).err(); err != nil {
		lg.Warn("invalid argument", "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	publicURL, err := s.avatars.CheckAvatarUpload(ctx, in.UserID, in.AvatarKey)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidAvatar):
			lg.Warn("avatar object rejected")
			return nil, fmt.Errorf("%s: %w", op, &ValidationError{Fields: []FieldError{
				{Field: "avatarKey", Reason: "object does not satisfy avatar constraints"},
			}})
		case errors.Is(err, storage.ErrNotFoundAvatar):
			lg.Warn("avatar object not found")
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		default:
			return nil, internalError(lg, op, "CheckAvatarUpload", err)
		}
	}

	result, err := s.storage.UpdateUserProfile(ctx, in.UserID, models.ProfileUpdate{AvatarURL: &publicURL})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("profile not found")
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, internalError(lg, op, "UpdateUserProfile", err)
	}

	s.invalidateProfiles(ctx, lg, in.UserID)

	return result, nil
}
