package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
)

func (s *Storage) UserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	const op = "storage/mongo/UserProfile"

	var d profileDoc
	if err := s.profiles.FindOne(ctx, bson.D{{Key: "_id", Value: userID}}).Decode(&d); err != nil {
		return nil, mapErr(op, err)
	}

	return d.model(), nil
}

// CreateUserProfile вставляет профиль; счётчики вычисляются по рёбрам подписок
// и видео владельца. Уже существующий профиль -> storage.ErrConflict.
func (s *Storage) CreateUserProfile(ctx context.Context, in models.UserProfile) (*models.UserProfile, error) {
	const op = "storage/mongo/CreateUserProfile"

	d := profileDoc{
		UserID:    in.UserID,
		Username:  in.Username,
		AvatarURL: in.AvatarURL,
		Bio:       in.Bio,
	}

	var err error
	if d.FollowersCount, err = s.follows.CountDocuments(ctx, bson.D{{Key: "following_id", Value: in.UserID}}); err != nil {
		return nil, fmt.Errorf("%s: followers: %w", op, err)
	}

	if d.FollowingCount, err = s.follows.CountDocuments(ctx, bson.D{{Key: "follower_id", Value: in.UserID}}); err != nil {
		return nil, fmt.Errorf("%s: following: %w", op, err)
	}

	if d.VideosCount, d.LikesCount, err = s.ownerVideoStats(ctx, in.UserID); err != nil {
		return nil, fmt.Errorf("%s: videos: %w", op, err)
	}

	if _, err := s.profiles.InsertOne(ctx, d); err != nil {
		return nil, mapErr(op, err)
	}

	return d.model(), nil
}

// UpdateUserProfile меняет только описательные поля. Нет профиля -> storage.ErrNotFound.
func (s *Storage) UpdateUserProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.UserProfile, error) {
	const op = "storage/mongo/UpdateUserProfile"

	set := bson.D{}
	if update.Username != nil {
		set = append(set, bson.E{Key: "username", Value: *update.Username})
	}
	if update.AvatarURL != nil {
		set = append(set, bson.E{Key: "avatar_url", Value: *update.AvatarURL})
	}
	if update.Bio != nil {
		set = append(set, bson.E{Key: "bio", Value: *update.Bio})
	}

	if len(set) == 0 {
		return s.UserProfile(ctx, userID)
	}

	var d profileDoc
	err := s.profiles.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: userID}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&d)
	if err != nil {
		return nil, mapErr(op, err)
	}

	return d.model(), nil
}

// ownerVideoStats — число видео владельца и сумма их лайков.
func (s *Storage) ownerVideoStats(ctx context.Context, userID string) (videos, likes int64, err error) {
	cur, err := s.videos.Aggregate(ctx, mongodriver.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "user_id", Value: userID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "videos", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "likes", Value: bson.D{{Key: "$sum", Value: "$likes"}}},
		}}},
	})
	if err != nil {
		return 0, 0, err
	}
	defer cur.Close(ctx)

	if cur.Next(ctx) {
		var row struct {
			Videos int64 `bson:"videos"`
			Likes  int64 `bson:"likes"`
		}
		if err := cur.Decode(&row); err != nil {
			return 0, 0, err
		}
		videos, likes = row.Videos, row.Likes
	}

	return videos, likes, cur.Err()
}
