package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
	"github.com/pribylovaa/go-shortvideo-feed/internal/storage"
)

// CreateComment добавляет комментарий и в той же критической секции увеличивает
// comments у видео. ID и CreatedAt назначаются здесь.
// Видео нет -> storage.ErrInvalidReference, состояние не меняется.
func (s *Storage) CreateComment(ctx context.Context, in storage.NewComment) (*models.Comment, error) {
	const op = "storage/memory/CreateComment"

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.videos[in.VideoID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidReference)
	}

	c := &models.Comment{
		ID:        uuid.NewString(),
		VideoID:   in.VideoID,
		UserID:    in.UserID,
		Username:  in.Username,
		AvatarURL: in.AvatarURL,
		Text:      in.Text,
		CreatedAt: s.now(),
	}
	s.comments[c.ID] = c
	s.videoComments[c.VideoID] = append(s.videoComments[c.VideoID], c.ID)
	v.Comments++

	out := *c

	return &out, nil
}

// LikeComment — «сырой» инкремент likes без учёта зрителя: каждый вызов +1.
// Комментария нет -> storage.ErrNotFound.
func (s *Storage) LikeComment(ctx context.Context, commentID string) (*models.Comment, error) {
	const op = "storage/memory/LikeComment"

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	c.Likes++
	out := *c

	return &out, nil
}

// LikeCommentAs ставит лайк от viewerID идемпотентно: повторный вызов
// возвращает комментарий без изменения likes.
// Комментария нет -> storage.ErrNotFound.
func (s *Storage) LikeCommentAs(ctx context.Context, commentID, viewerID string) (*models.Comment, error) {
	const op = "storage/memory/LikeCommentAs"

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	key := pair{commentID, viewerID}
	if _, liked := s.commentLikes[key]; !liked {
		s.commentLikes[key] = struct{}{}
		c.Likes++
	}

	out := *c

	return &out, nil
}

// UnlikeCommentAs снимает лайк viewerID и уменьшает likes (не ниже нуля).
// Комментария нет или зритель его не лайкал -> storage.ErrNotFound.
func (s *Storage) UnlikeCommentAs(ctx context.Context, commentID, viewerID string) (*models.Comment, error) {
	const op = "storage/memory/UnlikeCommentAs"

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	key := pair{commentID, viewerID}
	if _, liked := s.commentLikes[key]; !liked {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	delete(s.commentLikes, key)
	decr(&c.Likes)
	out := *c

	return &out, nil
}

// CommentsByVideoID возвращает комментарии видео по created_at DESC.
// Для видео без комментариев (или несуществующего) — пустой список.
func (s *Storage) CommentsByVideoID(ctx context.Context, videoID string) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.videoComments[videoID]
	out := make([]models.Comment, 0, len(ids))
	// обратный порядок вставки: при равных created_at новее тот, что создан позже.
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, *s.comments[ids[i]])
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}
