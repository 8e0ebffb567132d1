package memory

import (
	"context"
	"fmt"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
	"github.com/pribylovaa/go-shortvideo-feed/internal/storage"
)

// copyProfile возвращает независимую копию профиля (вместе с Bio).
func copyProfile(p *models.UserProfile) *models.UserProfile {
	out := *p
	if p.Bio != nil {
		bio := *p.Bio
		out.Bio = &bio
	}

	return &out
}

// UserProfile возвращает копию профиля. Профиля нет -> storage.ErrNotFound.
func (s *Storage) UserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	const op = "storage/memory/UserProfile"

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return copyProfile(p), nil
}

// CreateUserProfile создаёт профиль; счётчики из входа игнорируются и вычисляются
// по текущим рёбрам подписок и видео владельца.
// Профиль уже есть -> storage.ErrConflict.
func (s *Storage) CreateUserProfile(ctx context.Context, in models.UserProfile) (*models.UserProfile, error) {
	const op = "storage/memory/CreateUserProfile"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[in.UserID]; ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrConflict)
	}

	p := copyProfile(&in)
	p.FollowersCount, p.FollowingCount = s.followCounts(p.UserID)
	p.VideosCount, p.LikesCount = 0, 0
	for _, v := range s.videos {
		if v.UserID == p.UserID {
			p.VideosCount++
			p.LikesCount += v.Likes
		}
	}
	s.profiles[p.UserID] = p

	return copyProfile(p), nil
}

// UpdateUserProfile применяет частичный апдейт описательных полей; счётчики не меняются.
// Профиля нет -> storage.ErrNotFound.
func (s *Storage) UpdateUserProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.UserProfile, error) {
	const op = "storage/memory/UpdateUserProfile"

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	update.Apply(p)

	return copyProfile(p), nil
}
