package mongo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
	"github.com/pribylovaa/go-shortvideo-feed/pkg/log"
)

// FollowUser вставляет ребро под уникальным индексом (дубль -> storage.ErrConflict),
// затем одним упорядоченным BulkWrite увеличивает following_count у follower
// и followers_count у following.
//
// Сбой BulkWrite компенсируется: ребро удаляется, уже применённый $inc откатывается.
// Если исход записи неизвестен (сеть, отмена) или сама компенсация не удалась,
// счётчики расходятся с рёбрами до ближайшего прохода RecountFollowCounters.
func (s *Storage) FollowUser(ctx context.Context, followerID, followingID string) (*models.Follow, error) {
	const op = "storage/mongo/FollowUser"

	d := followDoc{
		ID:          uuid.NewString(),
		FollowerID:  followerID,
		FollowingID: followingID,
		CreatedAt:   s.now(),
	}

	if _, err := s.follows.InsertOne(ctx, d); err != nil {
		return nil, mapErr(op, err)
	}

	res, err := s.profiles.BulkWrite(ctx, []mongodriver.WriteModel{
		mongodriver.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "_id", Value: followerID}}).
			SetUpdate(bson.D{{Key: "$inc", Value: bson.D{{Key: "following_count", Value: 1}}}}),
		mongodriver.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "_id", Value: followingID}}).
			SetUpdate(bson.D{{Key: "$inc", Value: bson.D{{Key: "followers_count", Value: 1}}}}),
	}, options.BulkWrite().SetOrdered(true))
	if err != nil {
		s.undoFollow(ctx, d, followerIncApplied(res, err))
		return nil, fmt.Errorf("%s: counters: %w", op, err)
	}

	return &models.Follow{
		ID:          d.ID,
		FollowerID:  d.FollowerID,
		FollowingID: d.FollowingID,
		CreatedAt:   d.CreatedAt,
	}, nil
}

// undoFollow удаляет ребро после сбоя счётчиков и, если followerInc,
// возвращает following_count follower-а.
func (s *Storage) undoFollow(ctx context.Context, d followDoc, followerInc bool) {
	const op = "storage/mongo/undoFollow"

	ctx = context.WithoutCancel(ctx)
	lg := log.From(ctx).With("op", op, "follower_id", d.FollowerID, "following_id", d.FollowingID)

	if _, err := s.follows.DeleteOne(ctx, bson.D{{Key: "_id", Value: d.ID}}); err != nil {
		lg.Error("follow edge compensation failed, left to reconciler", "err", err)
	}

	if !followerInc {
		return
	}

	if _, err := s.profiles.UpdateOne(ctx, bson.D{{Key: "_id", Value: d.FollowerID}}, decrement("following_count")); err != nil {
		lg.Error("following_count compensation failed, left to reconciler", "err", err)
	}
}

// followerIncApplied сообщает, успел ли упорядоченный BulkWrite применить первую
// модель ($inc following_count) до ошибки на второй.
func followerIncApplied(res *mongodriver.BulkWriteResult, err error) bool {
	var bwe mongodriver.BulkWriteException
	if !errors.As(err, &bwe) || len(bwe.WriteErrors) == 0 {
		return false
	}

	return bwe.WriteErrors[0].Index > 0 && res != nil && res.MatchedCount > 0
}

// UnfollowUser удаляет ребро и уменьшает оба счётчика (не ниже нуля).
func (s *Storage) UnfollowUser(ctx context.Context, followerID, followingID string) (bool, error) {
	const op = "storage/mongo/UnfollowUser"

	res, err := s.follows.DeleteOne(ctx, bson.D{{Key: "follower_id", Value: followerID}, {Key: "following_id", Value: followingID}})
	if err != nil {
		return false, fmt.Errorf("%s: delete: %w", op, err)
	}

	if res.DeletedCount == 0 {
		return false, nil
	}

	_, err = s.profiles.BulkWrite(ctx, []mongodriver.WriteModel{
		mongodriver.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "_id", Value: followerID}}).
			SetUpdate(decrement("following_count")),
		mongodriver.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "_id", Value: followingID}}).
			SetUpdate(decrement("followers_count")),
	})
	if err != nil {
		return true, fmt.Errorf("%s: counters: %w", op, err)
	}

	return true, nil
}

func (s *Storage) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	const op = "storage/mongo/IsFollowing"

	n, err := s.follows.CountDocuments(ctx,
		bson.D{{Key: "follower_id", Value: followerID}, {Key: "following_id", Value: followingID}},
		options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return n > 0, nil
}

// RecountFollowCounters пересчитывает счётчики по коллекции follows.
// Исправление — compare-and-set по прочитанным значениям: профиль, изменённый
// параллельным follow/unfollow, пропускается до следующего прохода.
func (s *Storage) RecountFollowCounters(ctx context.Context) ([]models.CounterRepair, error) {
	const op = "storage/mongo/RecountFollowCounters"

	followers, err := s.countEdges(ctx, "following_id")
	if err != nil {
		return nil, fmt.Errorf("%s: followers: %w", op, err)
	}

	following, err := s.countEdges(ctx, "follower_id")
	if err != nil {
		return nil, fmt.Errorf("%s: following: %w", op, err)
	}

	cur, err := s.profiles.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("%s: find profiles: %w", op, err)
	}
	defer cur.Close(ctx)

	var repairs []models.CounterRepair
	for cur.Next(ctx) {
		var p profileDoc
		if err := cur.Decode(&p); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}

		want := models.CounterRepair{
			UserID:          p.UserID,
			FollowersBefore: p.FollowersCount,
			FollowersAfter:  followers[p.UserID],
			FollowingBefore: p.FollowingCount,
			FollowingAfter:  following[p.UserID],
		}
		if want.FollowersBefore == want.FollowersAfter && want.FollowingBefore == want.FollowingAfter {
			continue
		}

		res, err := s.profiles.UpdateOne(ctx,
			bson.D{
				{Key: "_id", Value: p.UserID},
				{Key: "followers_count", Value: p.FollowersCount},
				{Key: "following_count", Value: p.FollowingCount},
			},
			bson.D{{Key: "$set", Value: bson.D{
				{Key: "followers_count", Value: want.FollowersAfter},
				{Key: "following_count", Value: want.FollowingAfter},
			}}})
		if err != nil {
			return nil, fmt.Errorf("%s: update %s: %w", op, p.UserID, err)
		}

		if res.ModifiedCount == 1 {
			repairs = append(repairs, want)
		}
	}

	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%s: cursor: %w", op, err)
	}

	slices.SortFunc(repairs, func(a, b models.CounterRepair) int {
		return strings.Compare(a.UserID, b.UserID)
	})

	return repairs, nil
}

// countEdges группирует рёбра по полю и возвращает userID -> количество.
func (s *Storage) countEdges(ctx context.Context, field string) (map[string]int64, error) {
	cur, err := s.follows.Aggregate(ctx, mongodriver.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + field},
			{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]int64)
	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
			N  int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.N
	}

	return out, cur.Err()
}
