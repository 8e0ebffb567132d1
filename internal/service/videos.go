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

// CreateVideoInput — публикация видео.
type CreateVideoInput struct {
	UserID      string `json:"userId" validate:"required"`
	Username    string `json:"username" validate:"required"`
	AvatarURL   string `json:"avatarUrl"`
	VideoURL    string `json:"videoUrl" validate:"required"`
	Description string `json:"description"`
	SoundName   string `json:"soundName"`
}

// Videos возвращает ленту видео в порядке публикации.
// viewerID опционален: при непустом значении заполняется IsLiked для этого зрителя.
func (s *Service) Videos(ctx context.Context, viewerID string) ([]models.Video, error) {
	const op = "service/videos/Videos"

	viewerID = strings.TrimSpace(viewerID)
	lg := log.From(ctx).With("op", op, "viewer_id", viewerID)

	result, err := s.storage.Videos(ctx, viewerID)
	if err != nil {
		return nil, internalError(lg, op, "Videos", err)
	}

	return result, nil
}

// Video возвращает видео по ID.
//
// Валидация:
//   - id не должен быть пустым.
//
// Поведение/ошибки:
//   - ErrNotFound — если видео нет;
//   - ErrInternal — иные ошибки стораджа.
func (s *Service) Video(ctx context.Context, id, viewerID string) (*models.Video, error) {
	const op = "service/videos/Video"

	id = strings.TrimSpace(id)
	viewerID = strings.TrimSpace(viewerID)
	lg := log.From(ctx).With("op", op, "video_id", id)

	if err := check(videoRef{VideoID: id}).err(); err != nil {
		lg.Warn("invalid argument: empty video_id")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result, err := s.storage.VideoByID(ctx, id, viewerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("video not found")
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, internalError(lg, op, "VideoByID", err)
	}

	return result, nil
}

// CreateVideo публикует видео.
//
// Валидация:
//   - userId, username, videoUrl обязательны (после TrimSpace);
//   - остальные поля опциональны.
//
// Поведение/ошибки:
//   - счётчики нового видео равны нулю, ID назначает storage;
//   - videos_count владельца увеличивается, если у него есть профиль;
//   - ErrInternal — ошибки стораджа.
func (s *Service) CreateVideo(ctx context.Context, in CreateVideoInput) (*models.Video, error) {
	const op = "service/videos/CreateVideo"

	in.UserID = strings.TrimSpace(in.UserID)
	in.Username = strings.TrimSpace(in.Username)
	in.VideoURL = strings.TrimSpace(in.VideoURL)
	lg := log.From(ctx).With("op", op, "user_id", in.UserID)

	if err := check(in).err(); err != nil {
		lg.Warn("invalid argument", "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result, err := s.storage.CreateVideo(ctx, storage.NewVideo{
		UserID:      in.UserID,
		Username:    in.Username,
		AvatarURL:   strings.TrimSpace(in.AvatarURL),
		VideoURL:    in.VideoURL,
		Description: strings.TrimSpace(in.Description),
		SoundName:   strings.TrimSpace(in.SoundName),
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			lg.Warn("video id conflict")
			return nil, fmt.Errorf("%s: %w", op, ErrConflict)
		}

		return nil, internalError(lg, op, "CreateVideo", err)
	}

	s.invalidateProfiles(ctx, lg, result.UserID)

	return result, nil
}

// LikeVideo ставит лайк видео от зрителя (идемпотентно по паре viewerId/videoId).
//
// Валидация:
//   - videoId и viewerId обязательны.
//
// Поведение/ошибки:
//   - повторный лайк того же зрителя не меняет счётчик;
//   - ErrNotFound — если видео нет.
func (s *Service) LikeVideo(ctx context.Context, videoID, viewerID string) (_ *models.Video, err error) {
	defer func() { s.record("like_video", err) }()

	return s.toggleVideoLike(ctx, "service/videos/LikeVideo", videoID, viewerID, true)
}

// UnlikeVideo снимает лайк зрителя (идемпотентно; счётчик не уходит ниже нуля).
// Ошибки — как у LikeVideo.
func (s *Service) UnlikeVideo(ctx context.Context, videoID, viewerID string) (_ *models.Video, err error) {
	defer func() { s.record("unlike_video", err) }()

	return s.toggleVideoLike(ctx, "service/videos/UnlikeVideo", videoID, viewerID, false)
}

func (s *Service) toggleVideoLike(ctx context.Context, op, videoID, viewerID string, like bool) (*models.Video, error) {
	videoID = strings.TrimSpace(videoID)
	viewerID = strings.TrimSpace(viewerID)
	lg := log.From(ctx).With("op", op, "video_id", videoID, "viewer_id", viewerID)

	if err := check(viewerVideoRef{VideoID: videoID, ViewerID: viewerID}).err(); err != nil {
		lg.Warn("invalid argument", "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		result *models.Video
		err    error
		method string
	)
	if like {
		method = "LikeVideo"
		result, err = s.storage.LikeVideo(ctx, videoID, viewerID)
	} else {
		method = "UnlikeVideo"
		result, err = s.storage.UnlikeVideo(ctx, videoID, viewerID)
	}

	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("video not found")
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, internalError(lg, op, method, err)
	}

	s.invalidateProfiles(ctx, lg, result.UserID)

	return result, nil
}
