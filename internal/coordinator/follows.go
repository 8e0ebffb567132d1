package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pribylovaa/go-shortvideo-feed/pkg/log"
)

// ToggleFollow переключает подписку зрителя на userID.
//
// Поведение:
//   - оптимистично меняет признак подписки и followers загруженного профиля (+1/-1, не ниже нуля);
//   - успех — профиль перечитывается с сервера (followers берутся оттуда);
//   - ошибка (включая already_exists на дубль) — признак и followers возвращаются к исходным.
//
// Ошибки: ErrInvalidInput (зритель не задан или подписка на себя), ErrPending, ErrClosed.
func (c *Coordinator) ToggleFollow(ctx context.Context, userID string) (*Op, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.setFollowLocked(ctx, userID, !c.following[userID])
}

// Follow подписывает зрителя; при уже существующей подписке возвращает (nil, nil).
func (c *Coordinator) Follow(ctx context.Context, userID string) (*Op, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.following[userID] && c.pending[key(KindFollow, userID)] == nil {
		return nil, nil
	}

	return c.setFollowLocked(ctx, userID, true)
}

// Unfollow отписывает зрителя; без подписки возвращает (nil, nil).
func (c *Coordinator) Unfollow(ctx context.Context, userID string) (*Op, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.following[userID] && c.pending[key(KindFollow, userID)] == nil {
		return nil, nil
	}

	return c.setFollowLocked(ctx, userID, false)
}

// setFollowLocked применяет желаемое состояние подписки. Вызывать под c.mu.
func (c *Coordinator) setFollowLocked(ctx context.Context, userID string, follow bool) (*Op, error) {
	const op = "coordinator/Follow"

	if c.viewer.ID == "" || userID == "" || userID == c.viewer.ID {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}

	before := FollowState{Following: c.following[userID]}
	if p := c.profiles[userID]; p != nil {
		before.HasProfile, before.Followers = true, p.FollowersCount
	}

	after := before
	after.Following = follow
	if before.HasProfile && follow != before.Following {
		if follow {
			after.Followers++
		} else {
			after.Followers = max(after.Followers-1, 0)
		}
	}

	o := newOp(newOpID(), KindFollow, userID, before, after)
	if err := c.begin(o, true); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c.applyFollowLocked(userID, after)

	followerID := c.viewer.ID
	c.dispatch(ctx, o, true,
		func(ctx context.Context) (func(), error) {
			var err error
			if follow {
				_, err = c.api.Follow(ctx, userID, followerID)
			} else {
				err = c.api.Unfollow(ctx, userID, followerID)
			}
			if err != nil {
				return nil, err
			}

			profile, perr := c.api.Profile(ctx, userID)
			if perr != nil {
				log.From(ctx).Warn("profile resync after follow failed",
					slog.String("op", op),
					slog.String("user_id", userID),
					slog.String("err", perr.Error()),
				)
			}

			return func() {
				c.following[userID] = follow
				if profile != nil {
					c.profiles[userID] = profile
				}
			}, nil
		},
		func() {
			c.applyFollowLocked(userID, before)
		},
	)

	return o, nil
}

// applyFollowLocked записывает признак подписки и followers. Вызывать под c.mu.
func (c *Coordinator) applyFollowLocked(userID string, st FollowState) {
	c.following[userID] = st.Following
	if !st.HasProfile {
		return
	}

	if p := c.profiles[userID]; p != nil {
		p.FollowersCount = st.Followers
	}
}
