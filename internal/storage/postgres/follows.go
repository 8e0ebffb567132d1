package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
	"github.com/pribylovaa/go-shortvideo-feed/internal/storage"
)

// FollowUser вставляет ребро (ON CONFLICT DO NOTHING) и в той же транзакции
// увеличивает following_count у follower и followers_count у following.
// Уже существующее ребро -> storage.ErrConflict, счётчики не трогаются.
func (s *Storage) FollowUser(ctx context.Context, followerID, followingID string) (*models.Follow, error) {
	const op = "storage/postgres/follows/FollowUser"

	var out models.Follow
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
		INSERT INTO follows (id, follower_id, following_id) VALUES ($1, $2, $3)
		ON CONFLICT (follower_id, following_id) DO NOTHING
		RETURNING id, follower_id, following_id, created_at
		`, uuid.NewString(), followerID, followingID).Scan(&out.ID, &out.FollowerID, &out.FollowingID, &out.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrConflict
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `UPDATE profiles SET following_count = following_count + 1 WHERE user_id = $1`, followerID); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `UPDATE profiles SET followers_count = followers_count + 1 WHERE user_id = $1`, followingID)
		return err
	})
	if err != nil {
		return nil, mapErr(op, err)
	}

	out.CreatedAt = out.CreatedAt.UTC()

	return &out, nil
}

// UnfollowUser удаляет ребро и уменьшает оба счётчика (не ниже нуля).
func (s *Storage) UnfollowUser(ctx context.Context, followerID, followingID string) (bool, error) {
	const op = "storage/postgres/follows/UnfollowUser"

	var removed bool
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM follows WHERE follower_id = $1 AND following_id = $2`, followerID, followingID)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return nil
		}
		removed = true

		if _, err := tx.Exec(ctx, `UPDATE profiles SET following_count = GREATEST(following_count - 1, 0) WHERE user_id = $1`, followerID); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `UPDATE profiles SET followers_count = GREATEST(followers_count - 1, 0) WHERE user_id = $1`, followingID)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return removed, nil
}

func (s *Storage) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	const op = "storage/postgres/follows/IsFollowing"

	var ok bool
	err := s.db.QueryRow(ctx, `
	SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = $1 AND following_id = $2)
	`, followerID, followingID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return ok, nil
}

// RecountFollowCounters пересчитывает счётчики подписок по таблице follows.
// На время пересчёта follows блокируется в SHARE MODE: параллельные
// follow/unfollow ждут, и пересчитанные значения не затирают их изменения.
func (s *Storage) RecountFollowCounters(ctx context.Context) ([]models.CounterRepair, error) {
	const op = "storage/postgres/follows/RecountFollowCounters"

	var repairs []models.CounterRepair
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `LOCK TABLE follows IN SHARE MODE`); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, `
		WITH actual AS (
			SELECT p.user_id,
				p.followers_count AS followers_before,
				p.following_count AS following_before,
				(SELECT count(*) FROM follows f WHERE f.following_id = p.user_id) AS followers_after,
				(SELECT count(*) FROM follows f WHERE f.follower_id = p.user_id) AS following_after
			FROM profiles p
		)
		UPDATE profiles p
		SET followers_count = a.followers_after, following_count = a.following_after
		FROM actual a
		WHERE p.user_id = a.user_id
			AND (a.followers_before <> a.followers_after OR a.following_before <> a.following_after)
		RETURNING p.user_id, a.followers_before, a.followers_after, a.following_before, a.following_after
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var r models.CounterRepair
			if err := rows.Scan(&r.UserID, &r.FollowersBefore, &r.FollowersAfter, &r.FollowingBefore, &r.FollowingAfter); err != nil {
				return err
			}
			repairs = append(repairs, r)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	slices.SortFunc(repairs, func(a, b models.CounterRepair) int {
		return strings.Compare(a.UserID, b.UserID)
	})

	return repairs, nil
}
