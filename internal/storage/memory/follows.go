package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
	"github.com/pribylovaa/go-shortvideo-feed/internal/storage"
)

// FollowUser атомарно проверяет и вставляет ребро follower -> following;
// following_count у follower и followers_count у following растут в той же
// критической секции (у отсутствующих профилей счётчики не трогаются).
// Ребро уже есть -> storage.ErrConflict.
func (s *Storage) FollowUser(ctx context.Context, followerID, followingID string) (*models.Follow, error) {
	const op = "storage/memory/FollowUser"

	s.mu.Lock()
	defer s.mu.Unlock()

	key := pair{followerID, followingID}
	if _, ok := s.follows[key]; ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrConflict)
	}

	f := models.Follow{
		ID:          uuid.NewString(),
		FollowerID:  followerID,
		FollowingID: followingID,
		CreatedAt:   s.now(),
	}
	s.follows[key] = f

	if p, ok := s.profiles[followerID]; ok {
		p.FollowingCount++
	}

	if p, ok := s.profiles[followingID]; ok {
		p.FollowersCount++
	}

	return &f, nil
}

// UnfollowUser удаляет ребро и уменьшает оба счётчика (не ниже нуля).
// false без ошибки — ребра не было.
func (s *Storage) UnfollowUser(ctx context.Context, followerID, followingID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pair{followerID, followingID}
	if _, ok := s.follows[key]; !ok {
		return false, nil
	}

	delete(s.follows, key)

	if p, ok := s.profiles[followerID]; ok {
		decr(&p.FollowingCount)
	}

	if p, ok := s.profiles[followingID]; ok {
		decr(&p.FollowersCount)
	}

	return true, nil
}

// IsFollowing сообщает, есть ли ребро followerID -> followingID.
func (s *Storage) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.follows[pair{followerID, followingID}]

	return ok, nil
}

// followCounts считает рёбра пользователя. Вызывать под s.mu.
func (s *Storage) followCounts(userID string) (followers, following int64) {
	for key := range s.follows {
		if key.b == userID {
			followers++
		}

		if key.a == userID {
			following++
		}
	}

	return followers, following
}

// RecountFollowCounters пересчитывает followers/following всех профилей по рёбрам
// и возвращает исправления, отсортированные по UserID.
func (s *Storage) RecountFollowCounters(ctx context.Context) ([]models.CounterRepair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	followers := make(map[string]int64, len(s.profiles))
	following := make(map[string]int64, len(s.profiles))
	for key := range s.follows {
		following[key.a]++
		followers[key.b]++
	}

	var repairs []models.CounterRepair
	for id, p := range s.profiles {
		if p.FollowersCount == followers[id] && p.FollowingCount == following[id] {
			continue
		}

		repairs = append(repairs, models.CounterRepair{
			UserID:          id,
			FollowersBefore: p.FollowersCount,
			FollowersAfter:  followers[id],
			FollowingBefore: p.FollowingCount,
			FollowingAfter:  following[id],
		})
		p.FollowersCount = followers[id]
		p.FollowingCount = following[id]
	}

	sort.Slice(repairs, func(i, j int) bool { return repairs[i].UserID < repairs[j].UserID })

	return repairs, nil
}
