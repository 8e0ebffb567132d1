package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
	"github.com/pribylovaa/go-shortvideo-feed/internal/storage"
)

// viewVideo возвращает копию видео с IsLiked для viewerID. Вызывать под s.mu.
func (s *Storage) viewVideo(v *models.Video, viewerID string) *models.Video {
	out := *v
	out.IsLiked = false
	if viewerID != "" {
		_, out.IsLiked = s.videoLikes[pair{v.ID, viewerID}]
	}

	return &out
}

// Videos возвращает все видео в порядке публикации;
// IsLiked заполняется для непустого viewerID.
func (s *Storage) Videos(ctx context.Context, viewerID string) ([]models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Video, 0, len(s.videoOrder))
	for _, id := range s.videoOrder {
		out = append(out, *s.viewVideo(s.videos[id], viewerID))
	}

	return out, nil
}

// VideoByID возвращает видео с IsLiked для viewerID. Видео нет -> storage.ErrNotFound.
func (s *Storage) VideoByID(ctx context.Context, id, viewerID string) (*models.Video, error) {
	const op = "storage/memory/VideoByID"

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.videos[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return s.viewVideo(v, viewerID), nil
}

// CreateVideo сохраняет видео; пустой ID назначается uuid, занятый -> storage.ErrConflict.
// Отрицательные стартовые счётчики приводятся к нулю. Профиль владельца, если он есть,
// получает +1 к videos_count и стартовые likes к likes_count.
func (s *Storage) CreateVideo(ctx context.Context, in storage.NewVideo) (*models.Video, error) {
	const op = "storage/memory/CreateVideo"

	s.mu.Lock()
	defer s.mu.Unlock()

	if in.ID == "" {
		in.ID = uuid.NewString()
	}

	if _, ok := s.videos[in.ID]; ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrConflict)
	}

	v := &models.Video{
		ID:          in.ID,
		UserID:      in.UserID,
		Username:    in.Username,
		AvatarURL:   in.AvatarURL,
		VideoURL:    in.VideoURL,
		Description: in.Description,
		SoundName:   in.SoundName,
		Likes:       max(in.Likes, 0),
		Comments:    max(in.Comments, 0),
		Shares:      max(in.Shares, 0),
	}
	s.videos[v.ID] = v
	s.videoOrder = append(s.videoOrder, v.ID)

	if p, ok := s.profiles[v.UserID]; ok {
		p.VideosCount++
		p.LikesCount += v.Likes
	}

	return s.viewVideo(v, ""), nil
}

// LikeVideo ставит лайк viewerID идемпотентно; вместе с likes видео растёт
// likes_count профиля владельца. Видео нет -> storage.ErrNotFound.
func (s *Storage) LikeVideo(ctx context.Context, videoID, viewerID string) (*models.Video, error) {
	const op = "storage/memory/LikeVideo"

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.videos[videoID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	key := pair{videoID, viewerID}
	if _, liked := s.videoLikes[key]; !liked {
		s.videoLikes[key] = struct{}{}
		v.Likes++
		if p, ok := s.profiles[v.UserID]; ok {
			p.LikesCount++
		}
	}

	return s.viewVideo(v, viewerID), nil
}

// UnlikeVideo снимает лайк viewerID (если был) и уменьшает оба счётчика, не ниже нуля.
// Видео нет -> storage.ErrNotFound.
func (s *Storage) UnlikeVideo(ctx context.Context, videoID, viewerID string) (*models.Video, error) {
	const op = "storage/memory/UnlikeVideo"

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.videos[videoID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	key := pair{videoID, viewerID}
	if _, liked := s.videoLikes[key]; liked {
		delete(s.videoLikes, key)
		decr(&v.Likes)
		if p, ok := s.profiles[v.UserID]; ok {
			decr(&p.LikesCount)
		}
	}

	return s.viewVideo(v, viewerID), nil
}
