// mongo предоставляет реализацию storage.Storage на базе MongoDB.
//
// Транзакции не используются (достаточно standalone-инстанса), поэтому:
//   - уникальность рёбер (лайки, подписки) обеспечивают уникальные индексы;
//   - счётчики меняются атомарным $inc после успешной вставки ребра;
//   - если обновление счётчиков не удалось, вставленное ребро удаляется (компенсация);
//   - уменьшение счётчиков — pipeline-апдейт с $max(0, x-1).
package mongo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/pribylovaa/go-shortvideo-feed/internal/storage"
)

const (
	usersCollection        = "users"
	videosCollection       = "videos"
	videoLikesCollection   = "video_likes"
	commentsCollection     = "comments"
	commentLikesCollection = "comment_likes"
	followsCollection      = "follows"
	profilesCollection     = "profiles"
	defaultDBName          = "feed"
)

// Storage — адаптер MongoDB: подключение и коллекции.
type Storage struct {
	client *mongodriver.Client
	db     *mongodriver.Database

	users        *mongodriver.Collection
	videos       *mongodriver.Collection
	videoLikes   *mongodriver.Collection
	comments     *mongodriver.Collection
	commentLikes *mongodriver.Collection
	follows      *mongodriver.Collection
	profiles     *mongodriver.Collection

	now func() time.Time
}

// New подключается к MongoDB, проверяет его, подготавливает коллекции и обеспечивает индексацию.
func New(ctx context.Context, uri string) (*Storage, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo: empty uri")
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := cli.Database(databaseFromURI(uri))

	s := &Storage{
		client:       cli,
		db:           db,
		users:        db.Collection(usersCollection),
		videos:       db.Collection(videosCollection),
		videoLikes:   db.Collection(videoLikesCollection),
		comments:     db.Collection(commentsCollection),
		commentLikes: db.Collection(commentLikesCollection),
		follows:      db.Collection(followsCollection),
		profiles:     db.Collection(profilesCollection),
		// MongoDB DateTime хранит миллисекунды.
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}

	return s, nil
}

// Ping проверяет доступность primary (используется /healthz).
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// ensureIndexes создает индексы хранилища ленты.
// - уникальный username пользователя;
// - порядок ленты: seq (ObjectID, монотонен при вставке);
// - уникальные рёбра лайков (video_id+viewer_id, comment_id+viewer_id) и подписок;
// - список комментариев видео: video_id + created_at(desc) + seq(desc).
func (s *Storage) ensureIndexes(ctx context.Context) error {
	type spec struct {
		coll   *mongodriver.Collection
		models []mongodriver.IndexModel
	}

	specs := []spec{
		{s.users, []mongodriver.IndexModel{{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName("username_unique").SetUnique(true),
		}}},
		{s.videos, []mongodriver.IndexModel{
			{Keys: bson.D{{Key: "seq", Value: 1}}, Options: options.Index().SetName("seq_asc")},
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetName("user_id")},
		}},
		{s.videoLikes, []mongodriver.IndexModel{{
			Keys:    bson.D{{Key: "video_id", Value: 1}, {Key: "viewer_id", Value: 1}},
			Options: options.Index().SetName("video_viewer_unique").SetUnique(true),
		}}},
		{s.comments, []mongodriver.IndexModel{{
			Keys:    bson.D{{Key: "video_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "seq", Value: -1}},
			Options: options.Index().SetName("video_created_desc"),
		}}},
		{s.commentLikes, []mongodriver.IndexModel{{
			Keys:    bson.D{{Key: "comment_id", Value: 1}, {Key: "viewer_id", Value: 1}},
			Options: options.Index().SetName("comment_viewer_unique").SetUnique(true),
		}}},
		{s.follows, []mongodriver.IndexModel{
			{
				Keys:    bson.D{{Key: "follower_id", Value: 1}, {Key: "following_id", Value: 1}},
				Options: options.Index().SetName("follower_following_unique").SetUnique(true),
			},
			{Keys: bson.D{{Key: "following_id", Value: 1}}, Options: options.Index().SetName("following_id")},
		}},
	}

	for _, sp := range specs {
		if _, err := sp.coll.Indexes().CreateMany(ctx, sp.models); err != nil {
			return fmt.Errorf("mongo ensure indexes %s: %w", sp.coll.Name(), err)
		}
	}

	return nil
}

// databaseFromURI извлекает имя базы данных из URI-пути mongodb.
// Если оно отсутствует или не поддается расшифровке, возвращает значение по умолчанию.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}
	return defaultDBName
}

// mapErr переводит ошибки драйвера в ошибки уровня storage.
func mapErr(op string, err error) error {
	switch {
	case mongodriver.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, storage.ErrConflict)
	case errors.Is(err, mongodriver.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// decrement — pipeline-апдейт field = max(0, field - 1).
func decrement(fields ...string) mongodriver.Pipeline {
	set := bson.D{}
	for _, f := range fields {
		set = append(set, bson.E{Key: f, Value: bson.D{{Key: "$max", Value: bson.A{
			0, bson.D{{Key: "$subtract", Value: bson.A{"$" + f, 1}}},
		}}}})
	}

	return mongodriver.Pipeline{{{Key: "$set", Value: set}}}
}

// Проверка выполнения контракта верхнего уровня.
var _ storage.Storage = (*Storage)(nil)
