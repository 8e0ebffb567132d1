package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
)

// Документы коллекций. _id — строковые идентификаторы домена (uuid или заданные явно),
// seq — ObjectID для стабильного порядка вставки.

type userDoc struct {
	ID           string `bson:"_id"`
	Username     string `bson:"username"`
	PasswordHash []byte `bson:"password_hash"`
}

func (d userDoc) model() *models.User {
	return &models.User{ID: d.ID, Username: d.Username, PasswordHash: d.PasswordHash}
}

type videoDoc struct {
	ID          string             `bson:"_id"`
	Seq         primitive.ObjectID `bson:"seq"`
	UserID      string             `bson:"user_id"`
	Username    string             `bson:"username"`
	AvatarURL   string             `bson:"avatar_url"`
	VideoURL    string             `bson:"video_url"`
	Description string             `bson:"description"`
	SoundName   string             `bson:"sound_name"`
	Likes       int64              `bson:"likes"`
	Comments    int64              `bson:"comments"`
	Shares      int64              `bson:"shares"`
	CreatedAt   time.Time          `bson:"created_at"`
}

func (d videoDoc) model(isLiked bool) models.Video {
	return models.Video{
		ID:          d.ID,
		UserID:      d.UserID,
		Username:    d.Username,
		AvatarURL:   d.AvatarURL,
		VideoURL:    d.VideoURL,
		Description: d.Description,
		SoundName:   d.SoundName,
		Likes:       d.Likes,
		Comments:    d.Comments,
		Shares:      d.Shares,
		IsLiked:     isLiked,
	}
}

// edgeDoc — ребро лайка (видео или комментария).
type edgeDoc struct {
	VideoID   string    `bson:"video_id,omitempty"`
	CommentID string    `bson:"comment_id,omitempty"`
	ViewerID  string    `bson:"viewer_id"`
	CreatedAt time.Time `bson:"created_at"`
}

type commentDoc struct {
	ID        string             `bson:"_id"`
	Seq       primitive.ObjectID `bson:"seq"`
	VideoID   string             `bson:"video_id"`
	UserID    string             `bson:"user_id"`
	Username  string             `bson:"username"`
	AvatarURL string             `bson:"avatar_url"`
	Text      string             `bson:"text"`
	Likes     int64              `bson:"likes"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d commentDoc) model() *models.Comment {
	return &models.Comment{
		ID:        d.ID,
		VideoID:   d.VideoID,
		UserID:    d.UserID,
		Username:  d.Username,
		AvatarURL: d.AvatarURL,
		Text:      d.Text,
		Likes:     d.Likes,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

type followDoc struct {
	ID          string    `bson:"_id"`
	FollowerID  string    `bson:"follower_id"`
	FollowingID string    `bson:"following_id"`
	CreatedAt   time.Time `bson:"created_at"`
}

type profileDoc struct {
	UserID         string  `bson:"_id"`
	Username       string  `bson:"username"`
	AvatarURL      string  `bson:"avatar_url"`
	Bio            *string `bson:"bio"`
	FollowersCount int64   `bson:"followers_count"`
	FollowingCount int64   `bson:"following_count"`
	LikesCount     int64   `bson:"likes_count"`
	VideosCount    int64   `bson:"videos_count"`
}

func (d profileDoc) model() *models.UserProfile {
	return &models.UserProfile{
		UserID:         d.UserID,
		Username:       d.Username,
		AvatarURL:      d.AvatarURL,
		Bio:            d.Bio,
		FollowersCount: d.FollowersCount,
		FollowingCount: d.FollowingCount,
		LikesCount:     d.LikesCount,
		VideosCount:    d.VideosCount,
	}
}
