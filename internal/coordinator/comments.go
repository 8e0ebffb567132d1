package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/pribylovaa/go-shortvideo-feed/internal/client"
	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
	"github.com/pribylovaa/go-shortvideo-feed/pkg/log"
)

// AddComment оптимистично добавляет комментарий зрителя в начало списка видео.
//
// Поведение:
//   - временный комментарий получает ID мутации (Op.ID), likes 0 и локальное время;
//   - comments видео (если оно загружено) увеличивается на 1;
//   - успех — временный комментарий заменяется серверным (id, createdAt от сервера),
//     comments видео перечитывается с сервера с учётом других незавершённых добавлений;
//   - ошибка — временный комментарий удаляется, comments уменьшается обратно,
//     список совпадает с исходным по составу и порядку.
//
// Ошибки: ErrInvalidInput (пустой текст или зритель не задан), ErrClosed.
func (c *Coordinator) AddComment(ctx context.Context, videoID, text string) (*Op, error) {
	const op = "coordinator/AddComment"

	text = strings.TrimSpace(text)
	if text == "" || videoID == "" || c.viewer.ID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id := newOpID()
	temp := models.Comment{
		ID:        id,
		VideoID:   videoID,
		UserID:    c.viewer.ID,
		Username:  c.viewer.Username,
		AvatarURL: c.viewer.AvatarURL,
		Text:      text,
		CreatedAt: c.now().UTC(),
	}

	o := newOp(id, KindCommentAdd, videoID, nil, temp)
	if err := c.begin(o, false); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, hadList := c.comments[videoID]
	c.comments[videoID] = append([]models.Comment{temp}, c.comments[videoID]...)
	if v := c.videos[videoID]; v != nil {
		v.Comments++
	}

	in := client.CommentInput{
		UserID:    c.viewer.ID,
		Username:  c.viewer.Username,
		AvatarURL: c.viewer.AvatarURL,
		Text:      text,
	}
	c.dispatch(ctx, o, false,
		func(ctx context.Context) (func(), error) {
			res, err := c.api.CreateComment(ctx, videoID, in)
			if err != nil {
				return nil, err
			}

			// Комментарий уже создан: сбой перечитывания не откатывает мутацию.
			fresh, verr := c.api.Video(ctx, videoID, in.UserID)
			if verr != nil {
				log.From(ctx).Warn("video resync after comment failed",
					slog.String("op", op),
					slog.String("video_id", videoID),
					slog.String("err", verr.Error()),
				)
			}

			return func() {
				if v := c.videos[videoID]; v != nil && fresh != nil {
					v.Comments = fresh.Comments + c.pendingCommentAddsLocked(videoID, id)
				}

				list := c.comments[videoID]
				if slices.ContainsFunc(list, func(cm models.Comment) bool { return cm.ID == res.ID }) {
					// Серверный комментарий уже пришёл с LoadComments.
					c.comments[videoID] = slices.DeleteFunc(list, func(cm models.Comment) bool { return cm.ID == id })
					return
				}
				if i := slices.IndexFunc(list, func(cm models.Comment) bool { return cm.ID == id }); i >= 0 {
					list[i] = *res
				}
			}, nil
		},
		func() {
			list := slices.DeleteFunc(c.comments[videoID], func(cm models.Comment) bool { return cm.ID == id })
			if len(list) == 0 && !hadList {
				delete(c.comments, videoID)
			} else {
				c.comments[videoID] = list
			}
			if v := c.videos[videoID]; v != nil {
				v.Comments = max(v.Comments-1, 0)
			}
		},
	)

	return o, nil
}

// ToggleCommentLike переключает лайк зрителя на комментарий.
//
// Поведение:
//   - оптимистично меняет признак лайка и likes (+1/-1, не ниже нуля);
//   - успех — likes из ответа сервера;
//   - ошибка — признак и likes возвращаются к исходным.
//
// Ошибки: ErrUnknownEntity (комментарий не загружен), ErrPending (в том числе
// для ещё не подтверждённого комментария), ErrInvalidInput (зритель не задан), ErrClosed.
func (c *Coordinator) ToggleCommentLike(ctx context.Context, commentID string) (*Op, error) {
	const op = "coordinator/ToggleCommentLike"

	if c.viewer.ID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cm, ok := c.findCommentLocked(commentID)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrUnknownEntity)
	}

	if add := c.inflight[commentID]; add != nil && add.Kind == KindCommentAdd {
		return nil, fmt.Errorf("%s: %w", op, ErrPending)
	}

	before := LikeState{Liked: c.likedComments[commentID], Likes: cm.Likes}
	after := LikeState{Liked: !before.Liked, Likes: before.Likes + 1}
	if before.Liked {
		after.Likes = max(before.Likes-1, 0)
	}

	o := newOp(newOpID(), KindCommentLike, commentID, before, after)
	if err := c.begin(o, true); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c.setCommentLikeLocked(commentID, after)

	viewerID := c.viewer.ID
	c.dispatch(ctx, o, true,
		func(ctx context.Context) (func(), error) {
			var (
				res *models.Comment
				err error
			)
			if after.Liked {
				res, err = c.api.LikeComment(ctx, commentID, viewerID)
			} else {
				res, err = c.api.UnlikeComment(ctx, commentID, viewerID)
			}
			if err != nil {
				return nil, err
			}

			return func() {
				c.setCommentLikeLocked(commentID, LikeState{Liked: after.Liked, Likes: res.Likes})
			}, nil
		},
		func() {
			c.setCommentLikeLocked(commentID, before)
		},
	)

	return o, nil
}

// setCommentLikeLocked записывает признак и счётчик лайков комментария. Вызывать под c.mu.
func (c *Coordinator) setCommentLikeLocked(commentID string, st LikeState) {
	if st.Liked {
		c.likedComments[commentID] = true
	} else {
		delete(c.likedComments, commentID)
	}

	if cm, ok := c.findCommentLocked(commentID); ok {
		cm.Likes = st.Likes
	}
}
