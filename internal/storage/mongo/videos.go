package mongo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
	"github.com/pribylovaa/go-shortvideo-feed/internal/storage"
)

// Videos возвращает ленту в порядке публикации; IsLiked — одним запросом по рёбрам зрителя.
func (s *Storage) Videos(ctx context.Context, viewerID string) ([]models.Video, error) {
	const op = "storage/mongo/Videos"

	cur, err := s.videos.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%s: find: %w", op, err)
	}
	defer cur.Close(ctx)

	var docs []videoDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	liked := make(map[string]bool)
	if viewerID != "" {
		lcur, err := s.videoLikes.Find(ctx, bson.D{{Key: "viewer_id", Value: viewerID}})
		if err != nil {
			return nil, fmt.Errorf("%s: find likes: %w", op, err)
		}
		defer lcur.Close(ctx)

		for lcur.Next(ctx) {
			var e edgeDoc
			if err := lcur.Decode(&e); err != nil {
				return nil, fmt.Errorf("%s: decode like: %w", op, err)
			}
			liked[e.VideoID] = true
		}

		if err := lcur.Err(); err != nil {
			return nil, fmt.Errorf("%s: cursor: %w", op, err)
		}
	}

	out := make([]models.Video, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model(liked[d.ID]))
	}

	return out, nil
}

func (s *Storage) VideoByID(ctx context.Context, id, viewerID string) (*models.Video, error) {
	const op = "storage/mongo/VideoByID"

	v, err := s.viewVideo(ctx, id, viewerID)
	if err != nil {
		return nil, mapErr(op, err)
	}

	return v, nil
}

// viewVideo читает видео и вычисляет IsLiked для viewerID.
func (s *Storage) viewVideo(ctx context.Context, id, viewerID string) (*models.Video, error) {
	var d videoDoc
	if err := s.videos.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&d); err != nil {
		return nil, err
	}

	var liked bool
	if viewerID != "" {
		n, err := s.videoLikes.CountDocuments(ctx,
			bson.D{{Key: "video_id", Value: id}, {Key: "viewer_id", Value: viewerID}},
			options.Count().SetLimit(1))
		if err != nil {
			return nil, err
		}
		liked = n > 0
	}

	v := d.model(liked)
	return &v, nil
}

// CreateVideo вставляет видео и увеличивает videos_count/likes_count владельца.
func (s *Storage) CreateVideo(ctx context.Context, in storage.NewVideo) (*models.Video, error) {
	const op = "storage/mongo/CreateVideo"

	if in.ID == "" {
		in.ID = uuid.NewString()
	}

	d := videoDoc{
		ID:          in.ID,
		Seq:         primitive.NewObjectID(),
		UserID:      in.UserID,
		Username:    in.Username,
		AvatarURL:   in.AvatarURL,
		VideoURL:    in.VideoURL,
		Description: in.Description,
		SoundName:   in.SoundName,
		Likes:       max(in.Likes, 0),
		Comments:    max(in.Comments, 0),
		Shares:      max(in.Shares, 0),
		CreatedAt:   s.now(),
	}

	if _, err := s.videos.InsertOne(ctx, d); err != nil {
		return nil, mapErr(op, err)
	}

	_, err := s.profiles.UpdateByID(ctx, d.UserID, bson.D{{Key: "$inc", Value: bson.D{
		{Key: "videos_count", Value: 1},
		{Key: "likes_count", Value: d.Likes},
	}}})
	if err != nil {
		_, _ = s.videos.DeleteOne(context.WithoutCancel(ctx), bson.D{{Key: "_id", Value: d.ID}})
		return nil, fmt.Errorf("%s: owner counters: %w", op, err)
	}

	v := d.model(false)
	return &v, nil
}

// LikeVideo идемпотентно ставит лайк: счётчики растут только при вставке нового ребра.
func (s *Storage) LikeVideo(ctx context.Context, videoID, viewerID string) (*models.Video, error) {
	const op = "storage/mongo/LikeVideo"

	owner, err := s.videoOwner(ctx, videoID)
	if err != nil {
		return nil, mapErr(op, err)
	}

	_, err = s.videoLikes.InsertOne(ctx, edgeDoc{VideoID: videoID, ViewerID: viewerID, CreatedAt: s.now()})
	switch {
	case mongodriver.IsDuplicateKeyError(err):
		// Лайк уже стоит.
	case err != nil:
		return nil, fmt.Errorf("%s: insert like: %w", op, err)
	default:
		if err := s.incLikes(ctx, videoID, owner); err != nil {
			_, _ = s.videoLikes.DeleteOne(context.WithoutCancel(ctx),
				bson.D{{Key: "video_id", Value: videoID}, {Key: "viewer_id", Value: viewerID}})
			return nil, fmt.Errorf("%s: counters: %w", op, err)
		}
	}

	v, err := s.viewVideo(ctx, videoID, viewerID)
	if err != nil {
		return nil, mapErr(op, err)
	}

	return v, nil
}

// UnlikeVideo идемпотентно снимает лайк; счётчики не уходят ниже нуля.
func (s *Storage) UnlikeVideo(ctx context.Context, videoID, viewerID string) (*models.Video, error) {
	const op = "storage/mongo/UnlikeVideo"

	owner, err := s.videoOwner(ctx, videoID)
	if err != nil {
		return nil, mapErr(op, err)
	}

	res, err := s.videoLikes.DeleteOne(ctx, bson.D{{Key: "video_id", Value: videoID}, {Key: "viewer_id", Value: viewerID}})
	if err != nil {
		return nil, fmt.Errorf("%s: delete like: %w", op, err)
	}

	if res.DeletedCount == 1 {
		if _, err := s.videos.UpdateByID(ctx, videoID, decrement("likes")); err != nil {
			return nil, fmt.Errorf("%s: video counter: %w", op, err)
		}
		if _, err := s.profiles.UpdateByID(ctx, owner, decrement("likes_count")); err != nil {
			return nil, fmt.Errorf("%s: owner counter: %w", op, err)
		}
	}

	v, err := s.viewVideo(ctx, videoID, viewerID)
	if err != nil {
		return nil, mapErr(op, err)
	}

	return v, nil
}

func (s *Storage) videoOwner(ctx context.Context, videoID string) (string, error) {
	var d struct {
		UserID string `bson:"user_id"`
	}
	err := s.videos.FindOne(ctx, bson.D{{Key: "_id", Value: videoID}},
		options.FindOne().SetProjection(bson.D{{Key: "user_id", Value: 1}})).Decode(&d)

	return d.UserID, err
}

// incLikes увеличивает likes видео и likes_count владельца.
func (s *Storage) incLikes(ctx context.Context, videoID, owner string) error {
	inc := func(field string) bson.D {
		return bson.D{{Key: "$inc", Value: bson.D{{Key: field, Value: 1}}}}
	}

	if _, err := s.videos.UpdateByID(ctx, videoID, inc("likes")); err != nil {
		return err
	}

	_, err := s.profiles.UpdateByID(ctx, owner, inc("likes_count"))
	if err != nil {
		_, _ = s.videos.UpdateByID(context.WithoutCancel(ctx), videoID, decrement("likes"))
	}

	return err
}
