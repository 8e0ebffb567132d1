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

// CreateProfileInput — создание профиля. Счётчики вычисляет storage.
type CreateProfileInput struct {
	UserID    string  `json:"userId" validate:"required"`
	Username  string  `json:"username" validate:"required"`
	AvatarURL string  `json:"avatarUrl"`
	Bio       *string `json:"bio"`
}

// UpdateProfileInput — частичный апдейт описательных полей; nil — «не менять».
type UpdateProfileInput struct {
	UserID    string  `json:"userId" validate:"required"`
	Username  *string `json:"username"`
	AvatarURL *string `json:"avatarUrl"`
	Bio       *string `json:"bio"`
}

// Profile возвращает профиль пользователя.
//
// Поведение:
//   - при сконфигурированном кэше — read-through: промах читает storage и кладёт в кэш;
//   - ошибки кэша не ломают запрос (логируются, чтение идёт из storage);
//   - ErrNotFound — профиля нет (отсутствие не кэшируется).
func (s *Service) Profile(ctx context.Context, userID string) (*models.UserProfile, error) {
	const op = "service/profiles/Profile"

	userID = strings.TrimSpace(userID)
	lg := log.From(ctx).With("op", op, "user_id", userID)

	if err := check(userRef{UserID: userID}).err(); err != nil {
		lg.Warn("invalid argument: empty user_id")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.profiles != nil {
		cached, ok, err := s.profiles.Get(ctx, userID)
		switch {
		case err != nil:
			lg.Warn("profile cache get failed", "err", err)
		case ok:
			return cached, nil
		}
	}

	result, err := s.storage.UserProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("profile not found")
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, internalError(lg, op, "UserProfile", err)
	}

	if s.profiles != nil {
		if err := s.profiles.Set(ctx, result); err != nil {
			lg.Warn("profile cache set failed", "err", err)
		}
	}

	return result, nil
}

// CreateProfile создаёт профиль пользователя.
//
// Валидация:
//   - userId и username обязательны (после TrimSpace).
//
// Поведение/ошибки:
//   - счётчики followers/following/videos/likes вычисляются по текущему состоянию;
//   - ErrConflict — профиль уже существует.
func (s *Service) CreateProfile(ctx context.Context, in CreateProfileInput) (*models.UserProfile, error) {
	const op = "service/profiles/CreateProfile"

	in.UserID = strings.TrimSpace(in.UserID)
	in.Username = strings.TrimSpace(in.Username)
	lg := log.From(ctx).With("op", op, "user_id", in.UserID)

	if err := check(in).err(); err != nil {
		lg.Warn("invalid argument", "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result, err := s.storage.CreateUserProfile(ctx, models.UserProfile{
		UserID:    in.UserID,
		Username:  in.Username,
		AvatarURL: strings.TrimSpace(in.AvatarURL),
		Bio:       in.Bio,
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			lg.Warn("profile already exists")
			return nil, fmt.Errorf("%s: %w", op, ErrConflict)
		}

		return nil, internalError(lg, op, "CreateUserProfile", err)
	}

	s.invalidateProfiles(ctx, lg, in.UserID)

	return result, nil
}

// UpdateProfile частично обновляет описательные поля профиля.
//
// Валидация:
//   - userId обязателен;
//   - хотя бы одно поле должно быть задано;
//   - username, если задан, не может быть пустым после TrimSpace.
//
// Поведение/ошибки:
//   - счётчики через этот метод не меняются;
//   - ErrNotFound — профиля нет.
func (s *Service) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.UserProfile, error) {
	const op = "service/profiles/UpdateProfile"

	in.UserID = strings.TrimSpace(in.UserID)
	lg := log.From(ctx).With("op", op, "user_id", in.UserID)

	v := check(in)

	upd := models.ProfileUpdate{Bio: in.Bio}
	if in.Username != nil {
		val := strings.TrimSpace(*in.Username)
		if val == "" {
			v.add("username", "must not be empty")
		}
		upd.Username = &val
	}

	if in.AvatarURL != nil {
		val := strings.TrimSpace(*in.AvatarURL)
		upd.AvatarURL = &val
	}

	if upd.Empty() {
		v.add("body", "no fields to update")
	}

	if err := v.err(); err != nil {
		lg.Warn("invalid argument", "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result, err := s.storage.UpdateUserProfile(ctx, in.UserID, upd)
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
