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

// CreateComment сначала увеличивает comments у видео (проверка существования и счётчик
// одним $inc), затем вставляет комментарий. Ошибка вставки откатывает счётчик.
// Отсутствующее видео -> storage.ErrInvalidReference.
func (s *Storage) CreateComment(ctx context.Context, in storage.NewComment) (*models.Comment, error) {
	const op = "storage/mongo/CreateComment"

	res, err := s.videos.UpdateByID(ctx, in.VideoID, bson.D{{Key: "$inc", Value: bson.D{{Key: "comments", Value: 1}}}})
	if err != nil {
		return nil, fmt.Errorf("%s: video counter: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidReference)
	}

	d := commentDoc{
		ID:        uuid.NewString(),
		Seq:       primitive.NewObjectID(),
		VideoID:   in.VideoID,
		UserID:    in.UserID,
		Username:  in.Username,
		AvatarURL: in.AvatarURL,
		Text:      in.Text,
		CreatedAt: s.now(),
	}

	if _, err := s.comments.InsertOne(ctx, d); err != nil {
		_, _ = s.videos.UpdateByID(context.WithoutCancel(ctx), in.VideoID, decrement("comments"))
		return nil, fmt.Errorf("%s: insert: %w", op, err)
	}

	return d.model(), nil
}

// LikeComment — «сырой» атомарный $inc likes.
func (s *Storage) LikeComment(ctx context.Context, commentID string) (*models.Comment, error) {
	const op = "storage/mongo/LikeComment"

	c, err := s.updateComment(ctx, commentID, bson.D{{Key: "$inc", Value: bson.D{{Key: "likes", Value: 1}}}})
	if err != nil {
		return nil, mapErr(op, err)
	}

	return c, nil
}

// LikeCommentAs — идемпотентный лайк через уникальное ребро (comment_id, viewer_id).
func (s *Storage) LikeCommentAs(ctx context.Context, commentID, viewerID string) (*models.Comment, error) {
	const op = "storage/mongo/LikeCommentAs"

	if _, err := s.commentByID(ctx, commentID); err != nil {
		return nil, mapErr(op, err)
	}

	_, err := s.commentLikes.InsertOne(ctx, edgeDoc{CommentID: commentID, ViewerID: viewerID, CreatedAt: s.now()})
	if mongodriver.IsDuplicateKeyError(err) {
		c, err := s.commentByID(ctx, commentID)
		if err != nil {
			return nil, mapErr(op, err)
		}
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: insert like: %w", op, err)
	}

	c, err := s.updateComment(ctx, commentID, bson.D{{Key: "$inc", Value: bson.D{{Key: "likes", Value: 1}}}})
	if err != nil {
		_, _ = s.commentLikes.DeleteOne(context.WithoutCancel(ctx),
			bson.D{{Key: "comment_id", Value: commentID}, {Key: "viewer_id", Value: viewerID}})
		return nil, mapErr(op, err)
	}

	return c, nil
}

// UnlikeCommentAs снимает лайк зрителя; без лайка -> storage.ErrNotFound.
func (s *Storage) UnlikeCommentAs(ctx context.Context, commentID, viewerID string) (*models.Comment, error) {
	const op = "storage/mongo/UnlikeCommentAs"

	if _, err := s.commentByID(ctx, commentID); err != nil {
		return nil, mapErr(op, err)
	}

	res, err := s.commentLikes.DeleteOne(ctx, bson.D{{Key: "comment_id", Value: commentID}, {Key: "viewer_id", Value: viewerID}})
	if err != nil {
		return nil, fmt.Errorf("%s: delete like: %w", op, err)
	}

	if res.DeletedCount == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	c, err := s.updateComment(ctx, commentID, decrement("likes"))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return c, nil
}

// CommentsByVideoID — комментарии видео. Сортировка: created_at DESC, seq DESC.
func (s *Storage) CommentsByVideoID(ctx context.Context, videoID string) ([]models.Comment, error) {
	const op = "storage/mongo/CommentsByVideoID"

	cur, err := s.comments.Find(ctx, bson.D{{Key: "video_id", Value: videoID}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("%s: find: %w", op, err)
	}
	defer cur.Close(ctx)

	out := make([]models.Comment, 0)
	for cur.Next(ctx) {
		var d commentDoc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}
		out = append(out, *d.model())
	}

	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%s: cursor: %w", op, err)
	}

	return out, nil
}

func (s *Storage) commentByID(ctx context.Context, id string) (*models.Comment, error) {
	var d commentDoc
	if err := s.comments.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&d); err != nil {
		return nil, err
	}

	return d.model(), nil
}

// updateComment применяет update и возвращает документ после изменения.
func (s *Storage) updateComment(ctx context.Context, id string, update any) (*models.Comment, error) {
	var d commentDoc
	err := s.comments.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&d)
	if err != nil {
		return nil, err
	}

	return d.model(), nil
}
