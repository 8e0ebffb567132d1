package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
	"github.com/pribylovaa/go-shortvideo-feed/internal/storage"
	"github.com/pribylovaa/go-shortvideo-feed/pkg/log"
)

// CreateUserInput — регистрация учётной записи.
type CreateUserInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// CreateUser создаёт пользователя; пароль хранится только в виде bcrypt-хэша.
//
// Валидация:
//   - username обязателен (после TrimSpace);
//   - password обязателен и не длиннее 72 байт (ограничение bcrypt).
//
// Поведение/ошибки:
//   - ErrConflict — username занят;
//   - ErrInternal — ошибки хэширования/стораджа.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	const op = "service/users/CreateUser"

	in.Username = strings.TrimSpace(in.Username)
	lg := log.From(ctx).With("op", op, "username", in.Username)

	v := check(in)
	if !v.has("password") && len(in.Password) > 72 {
		v.add("password", "must be at most 72 bytes")
	}
	if err := v.err(); err != nil {
		lg.Warn("invalid argument", "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		lg.Error("password hashing failed", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	result, err := s.storage.CreateUser(ctx, models.User{Username: in.Username, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			lg.Warn("username already taken")
			return nil, fmt.Errorf("%s: %w", op, ErrConflict)
		}

		return nil, internalError(lg, op, "CreateUser", err)
	}

	lg.Info("user created", "user_id", result.ID)

	return result, nil
}

// User возвращает пользователя по ID. ErrNotFound — если его нет.
func (s *Service) User(ctx context.Context, id string) (*models.User, error) {
	const op = "service/users/User"

	id = strings.TrimSpace(id)
	lg := log.From(ctx).With("op", op, "user_id", id)

	if err := check(userRef{UserID: id}).err(); err != nil {
		lg.Warn("invalid argument: empty user_id")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result, err := s.storage.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("user not found")
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, internalError(lg, op, "UserByID", err)
	}

	return result, nil
}

// UserByUsername возвращает пользователя по username. ErrNotFound — если его нет.
func (s *Service) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "service/users/UserByUsername"

	username = strings.TrimSpace(username)
	lg := log.From(ctx).With("op", op, "username", username)

	if err := check(usernameRef{Username: username}).err(); err != nil {
		lg.Warn("invalid argument: empty username")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result, err := s.storage.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("user not found")
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, internalError(lg, op, "UserByUsername", err)
	}

	return result, nil
}
