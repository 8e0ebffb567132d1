// storage описывает контракт хранилища ленты и ошибки уровня storage.
// Хранилище — единственный владелец канонических счётчиков: лайков, комментариев,
// подписчиков и подписок. Все реализации (memory, postgres, mongo) обязаны:
//   - создавать ребро подписки атомарно (check-and-insert) и возвращать ErrConflict на дубль;
//   - менять счётчики обоих профилей в той же транзакции/критической секции, что и ребро;
//   - не уводить счётчики ниже нуля;
//   - отдавать комментарии видео в порядке created_at DESC.
package storage

import (
	"context"
	"errors"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
)

var (
	// ErrNotFound — сущность отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrConflict — конфликт уникальности (повторная подписка, занятый username/id).
	ErrConflict = errors.New("conflict")
	// ErrInvalidReference — ссылка на несуществующую сущность (комментарий к отсутствующему видео).
	ErrInvalidReference = errors.New("invalid reference")
)

// NewVideo — данные для публикации видео.
// ID опционален: пустой ID генерируется хранилищем (сид задаёт ID явно).
type NewVideo struct {
	ID          string
	UserID      string
	Username    string
	AvatarURL   string
	VideoURL    string
	Description string
	SoundName   string
	Likes       int64
	Comments    int64
	Shares      int64
}

// NewComment — данные для создания комментария; ID и CreatedAt назначает хранилище.
type NewComment struct {
	VideoID   string
	UserID    string
	Username  string
	AvatarURL string
	Text      string
}

// Users — учётные записи.
type Users interface {
	// CreateUser сохраняет пользователя; пустой ID генерируется.
	// Занятый username или ID — ErrConflict.
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	// UserByID — ErrNotFound, если пользователя нет.
	UserByID(ctx context.Context, id string) (*models.User, error)
	// UserByUsername — ErrNotFound, если пользователя нет.
	UserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Videos — каталог видео и лайки видео от зрителей.
type Videos interface {
	// Videos возвращает все видео в порядке публикации.
	// IsLiked вычисляется для viewerID (пустой viewerID -> false).
	Videos(ctx context.Context, viewerID string) ([]models.Video, error)
	// VideoByID — ErrNotFound, если видео нет.
	VideoByID(ctx context.Context, id, viewerID string) (*models.Video, error)
	// CreateVideo публикует видео и увеличивает videos_count владельца, если профиль существует.
	// Занятый явный ID — ErrConflict.
	CreateVideo(ctx context.Context, video NewVideo) (*models.Video, error)
	// LikeVideo идемпотентно ставит лайк от viewerID: повторный вызов ничего не меняет.
	// ErrNotFound, если видео нет.
	LikeVideo(ctx context.Context, videoID, viewerID string) (*models.Video, error)
	// UnlikeVideo идемпотентно снимает лайк viewerID (счётчик не уходит ниже нуля).
	// ErrNotFound, если видео нет.
	UnlikeVideo(ctx context.Context, videoID, viewerID string) (*models.Video, error)
}

// Comments — комментарии и лайки комментариев.
type Comments interface {
	// CreateComment создаёт комментарий и ровно один раз увеличивает comments у видео.
	// ErrInvalidReference, если видео не существует (комментарий не создаётся).
	CreateComment(ctx context.Context, comment NewComment) (*models.Comment, error)
	// LikeComment — «сырой» инкремент likes без учёта автора лайка.
	// ErrNotFound, если комментария нет.
	LikeComment(ctx context.Context, commentID string) (*models.Comment, error)
	// LikeCommentAs — идемпотентный лайк от viewerID через таблицу рёбер (viewer, comment).
	// ErrNotFound, если комментария нет.
	LikeCommentAs(ctx context.Context, commentID, viewerID string) (*models.Comment, error)
	// UnlikeCommentAs снимает лайк viewerID.
	// ErrNotFound, если комментария нет или viewerID его не лайкал.
	UnlikeCommentAs(ctx context.Context, commentID, viewerID string) (*models.Comment, error)
	// CommentsByVideoID возвращает комментарии видео, сначала новые (created_at DESC).
	CommentsByVideoID(ctx context.Context, videoID string) ([]models.Comment, error)
}

// Follows — граф подписок.
type Follows interface {
	// FollowUser атомарно создаёт ребро и увеличивает following_count у follower
	// и followers_count у following (для существующих профилей).
	// ErrConflict, если ребро уже есть.
	FollowUser(ctx context.Context, followerID, followingID string) (*models.Follow, error)
	// UnfollowUser удаляет ребро и уменьшает оба счётчика (clamp 0).
	// false — ребра не было, состояние не менялось.
	UnfollowUser(ctx context.Context, followerID, followingID string) (bool, error)
	// IsFollowing — проверка существования ребра.
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	// RecountFollowCounters пересчитывает followers/following всех профилей по рёбрам
	// и возвращает только исправленные профили.
	RecountFollowCounters(ctx context.Context) ([]models.CounterRepair, error)
}

// Profiles — публичные профили.
type Profiles interface {
	// UserProfile — ErrNotFound, если профиля нет.
	UserProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	// CreateUserProfile создаёт профиль; счётчики входа игнорируются и вычисляются
	// по текущим рёбрам подписок и видео владельца. ErrConflict, если профиль есть.
	CreateUserProfile(ctx context.Context, profile models.UserProfile) (*models.UserProfile, error)
	// UpdateUserProfile меняет только описательные поля. ErrNotFound, если профиля нет.
	UpdateUserProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.UserProfile, error)
}

// Storage — полный контракт хранилища ленты.
type Storage interface {
	Users
	Videos
	Comments
	Follows
	Profiles

	// Close закрывает соединения/ресурсы хранилища.
	Close(ctx context.Context) error
}
