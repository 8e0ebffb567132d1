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

// CreateCommentInput — создание комментария к видео.
// ID и CreatedAt назначает сервер и никогда не принимаются от клиента.
type CreateCommentInput struct {
	VideoID   string `json:"videoId" validate:"required"`
	UserID    string `json:"userId" validate:"required"`
	Username  string `json:"username" validate:"required"`
	AvatarURL string `json:"avatarUrl"`
	Text      string `json:"text" validate:"required"`
}

// Comments возвращает комментарии видео, сначала новые.
//
// Валидация:
//   - videoId не должен быть пустым.
//
// Поведение: для видео без комментариев (или несуществующего) — пустой список.
func (s *Service) Comments(ctx context.Context, videoID string) ([]models.Comment, error) {
	const op = "service/comments/Comments"

	videoID = strings.TrimSpace(videoID)
	lg := log.From(ctx).With("op", op, "video_id", videoID)

	if err := check(videoRef{VideoID: videoID}).err(); err != nil {
		lg.Warn("invalid argument: empty video_id")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result, err := s.storage.CommentsByVideoID(ctx, videoID)
	if err != nil {
		return nil, internalError(lg, op, "CommentsByVideoID", err)
	}

	return result, nil
}

// CreateComment — бизнес-операция создания комментария.
//
// Валидация:
//   - videoId, userId, username, text обязательны (после TrimSpace);
//   - avatarUrl опционален.
//
// Поведение/ошибки:
//   - comments у видео увеличивается ровно один раз;
//   - ErrInvalidReference — если видео не существует (комментарий не создаётся);
//   - ErrInternal — прочие ошибки стораджа.
func (s *Service) CreateComment(ctx context.Context, in CreateCommentInput) (_ *models.Comment, err error) {
	const op = "service/comments/CreateComment"
	defer func() { s.record("comment", err) }()

	in.VideoID = strings.TrimSpace(in.VideoID)
	in.UserID = strings.TrimSpace(in.UserID)
	in.Username = strings.TrimSpace(in.Username)
	in.Text = strings.TrimSpace(in.Text)
	lg := log.From(ctx).With("op", op, "video_id", in.VideoID, "user_id", in.UserID)

	if verr := check(in).err(); verr != nil {
		lg.Warn("invalid argument", "err", verr)
		return nil, fmt.Errorf("%s: %w", op, verr)
	}

	result, err := s.storage.CreateComment(ctx, storage.NewComment{
		VideoID:   in.VideoID,
		UserID:    in.UserID,
		Username:  in.Username,
		AvatarURL: strings.TrimSpace(in.AvatarURL),
		Text:      in.Text,
	})
	if err != nil {
		if errors.Is(err, storage.ErrInvalidReference) {
			lg.Warn("video not found for comment")
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidReference)
		}

		return nil, internalError(lg, op, "CreateComment", err)
	}

	return result, nil
}

// LikeComment ставит лайк комментарию.
//
// Поведение:
//   - viewerID пуст — «сырой» инкремент likes (каждый вызов +1);
//   - viewerID задан — идемпотентный лайк через таблицу (viewer, comment).
//
// Ошибки:
//   - commentId пуст — ErrInvalidArgument;
//   - ErrNotFound — если комментария нет.
func (s *Service) LikeComment(ctx context.Context, commentID, viewerID string) (_ *models.Comment, err error) {
	const op = "service/comments/LikeComment"
	defer func() { s.record("like_comment", err) }()

	commentID = strings.TrimSpace(commentID)
	viewerID = strings.TrimSpace(viewerID)
	lg := log.From(ctx).With("op", op, "comment_id", commentID, "viewer_id", viewerID)

	if verr := check(commentRef{CommentID: commentID}).err(); verr != nil {
		lg.Warn("invalid argument: empty comment_id")
		return nil, fmt.Errorf("%s: %w", op, verr)
	}

	var result *models.Comment
	if viewerID == "" {
		result, err = s.storage.LikeComment(ctx, commentID)
	} else {
		result, err = s.storage.LikeCommentAs(ctx, commentID, viewerID)
	}

	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("comment not found")
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, internalError(lg, op, "LikeComment", err)
	}

	return result, nil
}

// UnlikeComment снимает лайк зрителя с комментария.
//
// Валидация:
//   - commentId и viewerId обязательны.
//
// Ошибки:
//   - ErrNotFound — комментария нет или зритель его не лайкал.
func (s *Service) UnlikeComment(ctx context.Context, commentID, viewerID string) (_ *models.Comment, err error) {
	const op = "service/comments/UnlikeComment"
	defer func() { s.record("unlike_comment", err) }()

	commentID = strings.TrimSpace(commentID)
	viewerID = strings.TrimSpace(viewerID)
	lg := log.From(ctx).With("op", op, "comment_id", commentID, "viewer_id", viewerID)

	if verr := check(viewerCommentRef{CommentID: commentID, ViewerID: viewerID}).err(); verr != nil {
		lg.Warn("invalid argument", "err", verr)
		return nil, fmt.Errorf("%s: %w", op, verr)
	}

	result, err := s.storage.UnlikeCommentAs(ctx, commentID, viewerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("comment like not found")
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, internalError(lg, op, "UnlikeCommentAs", err)
	}

	return result, nil
}
