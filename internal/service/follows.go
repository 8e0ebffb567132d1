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

// validateEdge проверяет пару (follower -> following) для follow/unfollow.
func validateEdge(userID, followerID string) error {
	v := check(followEdge{UserID: userID, FollowerID: followerID})
	if !v.has("followerId") && userID != "" && userID == followerID {
		v.add("followerId", "cannot follow self")
	}

	return v.err()
}

// Follow подписывает followerID на userID.
//
// Валидация:
//   - userId и followerId обязательны;
//   - подписка на самого себя запрещена.
//
// Поведение/ошибки:
//   - ребро и оба счётчика профилей меняются атомарно на уровне storage;
//   - ErrConflict — подписка уже существует (в том числе при гонке дублей);
//   - ErrInternal — прочие ошибки стораджа.
func (s *Service) Follow(ctx context.Context, userID, followerID string) (_ *models.Follow, err error) {
	const op = "service/follows/Follow"
	defer func() { s.record("follow", err) }()

	userID = strings.TrimSpace(userID)
	followerID = strings.TrimSpace(followerID)
	lg := log.From(ctx).With("op", op, "user_id", userID, "follower_id", followerID)

	if verr := validateEdge(userID, followerID); verr != nil {
		lg.Warn("invalid argument", "err", verr)
		return nil, fmt.Errorf("%s: %w", op, verr)
	}

	result, err := s.storage.FollowUser(ctx, followerID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			lg.Warn("already following")
			return nil, fmt.Errorf("%s: %w", op, ErrConflict)
		}

		return nil, internalError(lg, op, "FollowUser", err)
	}

	s.invalidateProfiles(ctx, lg, followerID, userID)

	return result, nil
}

// Unfollow удаляет подписку followerID на userID.
//
// Валидация:
//   - followerId обязателен (при отсутствии — ValidationError, состояние не меняется).
//
// Поведение/ошибки:
//   - оба счётчика уменьшаются атомарно вместе с удалением ребра (clamp 0);
//   - ErrNotFound — подписки не было.
func (s *Service) Unfollow(ctx context.Context, userID, followerID string) (err error) {
	const op = "service/follows/Unfollow"
	defer func() { s.record("unfollow", err) }()

	userID = strings.TrimSpace(userID)
	followerID = strings.TrimSpace(followerID)
	lg := log.From(ctx).With("op", op, "user_id", userID, "follower_id", followerID)

	if verr := check(followEdge{UserID: userID, FollowerID: followerID}).err(); verr != nil {
		lg.Warn("invalid argument", "err", verr)
		return fmt.Errorf("%s: %w", op, verr)
	}

	removed, err := s.storage.UnfollowUser(ctx, followerID, userID)
	if err != nil {
		return internalError(lg, op, "UnfollowUser", err)
	}

	if !removed {
		lg.Warn("follow relationship not found")
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	s.invalidateProfiles(ctx, lg, followerID, userID)

	return nil
}

// IsFollowing — чистый запрос: подписан ли userID на targetUserID.
// Пустые идентификаторы дают ValidationError.
func (s *Service) IsFollowing(ctx context.Context, userID, targetUserID string) (bool, error) {
	const op = "service/follows/IsFollowing"

	userID = strings.TrimSpace(userID)
	targetUserID = strings.TrimSpace(targetUserID)
	lg := log.From(ctx).With("op", op, "user_id", userID, "target_user_id", targetUserID)

	if err := check(followingRef{UserID: userID, TargetUserID: targetUserID}).err(); err != nil {
		lg.Warn("invalid argument", "err", err)
		return false, fmt.Errorf("%s: %w", op, err)
	}

	ok, err := s.storage.IsFollowing(ctx, userID, targetUserID)
	if err != nil {
		return false, internalError(lg, op, "IsFollowing", err)
	}

	return ok, nil
}

// ReconcileFollowCounters пересчитывает счётчики подписок по рёбрам
// и сбрасывает кэш исправленных профилей.
func (s *Service) ReconcileFollowCounters(ctx context.Context) ([]models.CounterRepair, error) {
	const op = "service/follows/ReconcileFollowCounters"

	lg := log.From(ctx).With("op", op)

	repairs, err := s.storage.RecountFollowCounters(ctx)
	if err != nil {
		return nil, internalError(lg, op, "RecountFollowCounters", err)
	}

	ids := make([]string, 0, len(repairs))
	for _, r := range repairs {
		ids = append(ids, r.UserID)
	}
	s.invalidateProfiles(ctx, lg, ids...)

	return repairs, nil
}
