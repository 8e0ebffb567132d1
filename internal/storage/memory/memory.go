// memory — эталонная in-memory реализация storage.Storage.
// Все карты защищены одним RWMutex: мутации счётчиков и рёбер выполняются
// в одной критической секции, поэтому follow/unfollow атомарны относительно
// конкурентных запросов. Наружу отдаются только копии сущностей.
// Данные не переживают рестарт процесса.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
	"github.com/pribylovaa/go-shortvideo-feed/internal/storage"
)

// pair — ключ ребра (лайк видео/комментария, подписка).
type pair struct {
	a, b string
}

// Storage — хранилище в памяти процесса.
type Storage struct {
	mu  sync.RWMutex
	now func() time.Time

	users     map[string]models.User
	usernames map[string]string // username -> id

	videos     map[string]*models.Video
	videoOrder []string
	videoLikes map[pair]struct{} // (videoID, viewerID)

	comments      map[string]*models.Comment
	videoComments map[string][]string // videoID -> commentIDs в порядке создания
	commentLikes  map[pair]struct{}   // (commentID, viewerID)

	follows  map[pair]models.Follow // (followerID, followingID)
	profiles map[string]*models.UserProfile
}

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		now:           func() time.Time { return time.Now().UTC() },
		users:         make(map[string]models.User),
		usernames:     make(map[string]string),
		videos:        make(map[string]*models.Video),
		videoLikes:    make(map[pair]struct{}),
		comments:      make(map[string]*models.Comment),
		videoComments: make(map[string][]string),
		commentLikes:  make(map[pair]struct{}),
		follows:       make(map[pair]models.Follow),
		profiles:      make(map[string]*models.UserProfile),
	}
}

// Close ничего не освобождает; метод нужен для контракта storage.Storage.
func (s *Storage) Close(context.Context) error { return nil }

// decr уменьшает счётчик, не уводя его ниже нуля.
func decr(v *int64) {
	if *v > 0 {
		*v--
	}
}

// Проверка выполнения контракта верхнего уровня.
var _ storage.Storage = (*Storage)(nil)
