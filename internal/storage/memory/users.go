package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
	"github.com/pribylovaa/go-shortvideo-feed/internal/storage"
)

// CreateUser сохраняет учётную запись; пустой ID назначается uuid.
// Занятый ID или username -> storage.ErrConflict.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "storage/memory/CreateUser"

	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	if _, ok := s.users[user.ID]; ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrConflict)
	}

	if _, ok := s.usernames[user.Username]; ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrConflict)
	}

	s.users[user.ID] = user
	s.usernames[user.Username] = user.ID

	return &user, nil
}

// UserByID — storage.ErrNotFound, если пользователя нет.
func (s *Storage) UserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage/memory/UserByID"

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return &user, nil
}

// UserByUsername ищет пользователя по точному username. Нет -> storage.ErrNotFound.
func (s *Storage) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage/memory/UserByUsername"

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernames[username]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	user := s.users[id]

	return &user, nil
}
