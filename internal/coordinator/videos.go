package coordinator

import (
	"context"
	"fmt"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
)

// ToggleLike переключает лайк зрителя на видео (обычный тап).
//
// Поведение:
//   - оптимистично меняет IsLiked и likes (+1/-1, не ниже нуля);
//   - успех — likes/IsLiked берутся из ответа сервера;
//   - ошибка — likes/IsLiked возвращаются к значениям до тапа.
//
// Ошибки: ErrUnknownEntity (видео не загружено), ErrPending, ErrClosed.
// ctx ограничивает и удалённый вызов.
func (c *Coordinator) ToggleLike(ctx context.Context, videoID string) (*Op, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.videos[videoID]
	if !ok {
		return nil, fmt.Errorf("coordinator/ToggleLike: %w", ErrUnknownEntity)
	}

	return c.toggleLikeLocked(ctx, v)
}

// DoubleTapLike — жест двойного тапа: ставит лайк, но никогда не снимает.
// Если видео уже лайкнуто (в том числе оптимистично), жест ничего не меняет
// и возвращает (nil, nil).
func (c *Coordinator) DoubleTapLike(ctx context.Context, videoID string) (*Op, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.videos[videoID]
	if !ok {
		return nil, fmt.Errorf("coordinator/DoubleTapLike: %w", ErrUnknownEntity)
	}

	if v.IsLiked {
		return nil, nil
	}

	return c.toggleLikeLocked(ctx, v)
}

// toggleLikeLocked применяет переключение и запускает удалённый вызов. Вызывать под c.mu.
func (c *Coordinator) toggleLikeLocked(ctx context.Context, v *models.Video) (*Op, error) {
	before := LikeState{Liked: v.IsLiked, Likes: v.Likes}
	after := LikeState{Liked: !before.Liked, Likes: before.Likes + 1}
	if before.Liked {
		after.Likes = max(before.Likes-1, 0)
	}

	o := newOp(newOpID(), KindVideoLike, v.ID, before, after)
	if err := c.begin(o, true); err != nil {
		return nil, fmt.Errorf("coordinator/ToggleLike: %w", err)
	}

	v.IsLiked, v.Likes = after.Liked, after.Likes

	videoID, viewerID := v.ID, c.viewer.ID
	c.dispatch(ctx, o, true,
		func(ctx context.Context) (func(), error) {
			var (
				res *models.Video
				err error
			)
			if after.Liked {
				res, err = c.api.LikeVideo(ctx, videoID, viewerID)
			} else {
				res, err = c.api.UnlikeVideo(ctx, videoID, viewerID)
			}
			if err != nil {
				return nil, err
			}

			return func() {
				if cur := c.videos[videoID]; cur != nil {
					cur.Likes, cur.IsLiked = res.Likes, res.IsLiked
				}
			}, nil
		},
		func() {
			if cur := c.videos[videoID]; cur != nil {
				cur.Likes, cur.IsLiked = before.Likes, before.Liked
			}
		},
	)

	return o, nil
}
