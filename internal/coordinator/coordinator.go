// coordinator — клиентский координатор мутаций ленты.
//
// Каждое взаимодействие (лайк видео, комментарий, лайк комментария, подписка)
// проходит один протокол:
//  1. оптимистично меняет локальное состояние и сразу возвращает *Op;
//  2. асинхронно вызывает API;
//  3. при успехе сверяет локальное состояние с ответом сервера;
//  4. при ошибке точно откатывает оптимистичное изменение.
//
// Переключатели одной сущности (лайк видео, лайк комментария, подписка)
// взаимоисключающие: пока мутация не завершена, новая возвращает ErrPending.
// Добавления комментариев коммутативны и могут идти параллельно.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-shortvideo-feed/internal/client"
	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
	"github.com/pribylovaa/go-shortvideo-feed/pkg/log"
)

var (
	// ErrPending — по сущности уже идёт мутация.
	ErrPending = errors.New("mutation pending")
	// ErrUnknownEntity — сущность не загружена в локальное состояние.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrInvalidInput — вход отклонён до оптимистичного применения.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTimeout — удалённый вызов не уложился в таймаут.
	ErrTimeout = errors.New("timeout")
	// ErrClosed — координатор закрыт.
	ErrClosed = errors.New("coordinator closed")
)

// API — удалённая сторона координатора (реализуется *client.Client).
type API interface {
	Videos(ctx context.Context, viewerID string) ([]models.Video, error)
	Video(ctx context.Context, id, viewerID string) (*models.Video, error)
	LikeVideo(ctx context.Context, videoID, viewerID string) (*models.Video, error)
	UnlikeVideo(ctx context.Context, videoID, viewerID string) (*models.Video, error)
	Comments(ctx context.Context, videoID string) ([]models.Comment, error)
	CreateComment(ctx context.Context, videoID string, in client.CommentInput) (*models.Comment, error)
	LikeComment(ctx context.Context, commentID, viewerID string) (*models.Comment, error)
	UnlikeComment(ctx context.Context, commentID, viewerID string) (*models.Comment, error)
	Follow(ctx context.Context, userID, followerID string) (*models.Follow, error)
	Unfollow(ctx context.Context, userID, followerID string) error
	IsFollowing(ctx context.Context, userID, targetUserID string) (bool, error)
	Profile(ctx context.Context, userID string) (*models.UserProfile, error)
}

var _ API = (*client.Client)(nil)

// Viewer — текущий пользователь клиента.
type Viewer struct {
	ID        string
	Username  string
	AvatarURL string
}

// Options — параметры координатора.
type Options struct {
	Viewer  Viewer
	Timeout time.Duration // таймаут одного удалённого вызова; <= 0 — без таймаута
}

// Coordinator владеет локальным представлением ленты и отложенными мутациями.
type Coordinator struct {
	api     API
	viewer  Viewer
	timeout time.Duration
	now     func() time.Time

	mu            sync.Mutex
	closed        bool
	videos        map[string]*models.Video
	videoOrder    []string
	comments      map[string][]models.Comment // videoID -> newest first
	likedComments map[string]bool
	following     map[string]bool
	profiles      map[string]*models.UserProfile
	pending       map[string]*Op // ключ kind:entityID для переключателей
	inflight      map[string]*Op // все незавершённые мутации по Op.ID

	wg sync.WaitGroup
}

// New создаёт координатор с пустым локальным состоянием.
func New(api API, opts Options) *Coordinator {
	return &Coordinator{
		api:           api,
		viewer:        opts.Viewer,
		timeout:       opts.Timeout,
		now:           time.Now,
		videos:        make(map[string]*models.Video),
		comments:      make(map[string][]models.Comment),
		likedComments: make(map[string]bool),
		following:     make(map[string]bool),
		profiles:      make(map[string]*models.UserProfile),
		pending:       make(map[string]*Op),
		inflight:      make(map[string]*Op),
	}
}

// LoadFeed загружает ленту с IsLiked для зрителя и заменяет локальные видео.
func (c *Coordinator) LoadFeed(ctx context.Context) ([]models.Video, error) {
	const op = "coordinator/LoadFeed"

	rctx, cancel := c.requestContext(ctx)
	defer cancel()

	videos, err := c.api.Videos(rctx, c.viewer.ID)
	if err != nil {
		return nil, c.remoteError(op, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.videoOrder = c.videoOrder[:0]
	for i := range videos {
		v := videos[i]
		if p := c.pending[key(KindVideoLike, v.ID)]; p != nil {
			// Локальное оптимистичное значение главнее до завершения мутации.
			if cur := c.videos[v.ID]; cur != nil {
				v.Likes, v.IsLiked = cur.Likes, cur.IsLiked
			}
		}
		// Незавершённые добавления комментариев сервер ещё не учёл.
		v.Comments += c.pendingCommentAddsLocked(v.ID, "")
		c.videos[v.ID] = &v
		c.videoOrder = append(c.videoOrder, v.ID)
	}

	return c.videosLocked(), nil
}

// pendingCommentAddsLocked — число незавершённых добавлений комментария к видео,
// не считая мутации skipID.
func (c *Coordinator) pendingCommentAddsLocked(videoID, skipID string) int64 {
	var n int64
	for _, o := range c.inflight {
		if o.Kind == KindCommentAdd && o.EntityID == videoID && o.ID != skipID {
			n++
		}
	}
	return n
}

// LoadComments загружает комментарии видео; временные комментарии незавершённых
// добавлений сохраняются в начале списка.
func (c *Coordinator) LoadComments(ctx context.Context, videoID string) ([]models.Comment, error) {
	const op = "coordinator/LoadComments"

	rctx, cancel := c.requestContext(ctx)
	defer cancel()

	list, err := c.api.Comments(rctx, videoID)
	if err != nil {
		return nil, c.remoteError(op, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	merged := make([]models.Comment, 0, len(list))
	for _, cm := range c.comments[videoID] {
		if o := c.inflight[cm.ID]; o != nil && o.Kind == KindCommentAdd {
			merged = append(merged, cm)
		}
	}
	for _, cm := range list {
		if cur, ok := c.findCommentLocked(cm.ID); ok && c.pending[key(KindCommentLike, cm.ID)] != nil {
			cm.Likes = cur.Likes
		}
		merged = append(merged, cm)
	}
	c.comments[videoID] = merged

	return slices.Clone(merged), nil
}

// LoadProfile загружает профиль и состояние подписки зрителя на userID.
func (c *Coordinator) LoadProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	const op = "coordinator/LoadProfile"

	rctx, cancel := c.requestContext(ctx)
	defer cancel()

	p, err := c.api.Profile(rctx, userID)
	if err != nil {
		return nil, c.remoteError(op, err)
	}

	var following bool
	if c.viewer.ID != "" && c.viewer.ID != userID {
		following, err = c.api.IsFollowing(rctx, c.viewer.ID, userID)
		if err != nil {
			return nil, c.remoteError(op, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	pending := c.pending[key(KindFollow, userID)] != nil
	if !pending {
		c.following[userID] = following
	}
	if !pending || c.profiles[userID] == nil {
		c.profiles[userID] = p
	}

	out := *c.profiles[userID]
	return &out, nil
}

// Video — локальная копия видео.
func (c *Coordinator) Video(id string) (models.Video, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.videos[id]
	if !ok {
		return models.Video{}, false
	}
	return *v, true
}

// Videos — локальная лента в порядке загрузки.
func (c *Coordinator) Videos() []models.Video {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.videosLocked()
}

// Comments — локальный список комментариев видео (сначала новые).
func (c *Coordinator) Comments(videoID string) []models.Comment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.comments[videoID])
}

// CommentLiked — лайкнул ли зритель комментарий (локально).
func (c *Coordinator) CommentLiked(commentID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.likedComments[commentID]
}

// IsFollowing — подписан ли зритель на userID (локально).
func (c *Coordinator) IsFollowing(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.following[userID]
}

// Profile — локальная копия профиля.
func (c *Coordinator) Profile(userID string) (models.UserProfile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.profiles[userID]
	if !ok {
		return models.UserProfile{}, false
	}
	return *p, true
}

// Pending — число незавершённых мутаций.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

// Close запрещает новые мутации и ждёт завершения уже запущенных (или отмены ctx).
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func key(kind Kind, entityID string) string {
	return string(kind) + ":" + entityID
}

func newOpID() string {
	return "local-" + uuid.NewString()
}

func (c *Coordinator) videosLocked() []models.Video {
	out := make([]models.Video, 0, len(c.videoOrder))
	for _, id := range c.videoOrder {
		out = append(out, *c.videos[id])
	}
	return out
}

// findCommentLocked ищет комментарий во всех загруженных списках. Вызывать под c.mu.
func (c *Coordinator) findCommentLocked(id string) (*models.Comment, bool) {
	for videoID, list := range c.comments {
		for i := range list {
			if list[i].ID == id {
				return &c.comments[videoID][i], true
			}
		}
	}
	return nil, false
}

func (c *Coordinator) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

// remoteError оборачивает ошибку API; истёкший дедлайн -> ErrTimeout.
func (c *Coordinator) remoteError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, client.ErrTimeout) {
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// begin регистрирует мутацию. Для переключателей (exclusive) занимает ключ сущности.
// Вызывать под c.mu.
func (c *Coordinator) begin(o *Op, exclusive bool) error {
	if c.closed {
		return ErrClosed
	}

	if exclusive {
		k := key(o.Kind, o.EntityID)
		if c.pending[k] != nil {
			return ErrPending
		}
		c.pending[k] = o
	}

	c.inflight[o.ID] = o
	c.wg.Add(1)

	return nil
}

// dispatch асинхронно выполняет remote и завершает мутацию.
//   - remote возвращает функцию сверки, применяемую под c.mu;
//   - rollback выполняется под c.mu при любой ошибке remote.
func (c *Coordinator) dispatch(ctx context.Context, o *Op, exclusive bool, remote func(ctx context.Context) (func(), error), rollback func()) {
	go func() {
		defer c.wg.Done()

		lg := log.From(ctx).With("op", "coordinator/dispatch", "kind", string(o.Kind), "entity_id", o.EntityID, "op_id", o.ID)

		rctx, cancel := c.requestContext(ctx)
		reconcile, err := remote(rctx)
		cancel()

		if err != nil {
			err = c.remoteError("coordinator/"+string(o.Kind), err)
		}

		c.mu.Lock()
		if err != nil {
			rollback()
		} else if reconcile != nil {
			reconcile()
		}
		if exclusive {
			delete(c.pending, key(o.Kind, o.EntityID))
		}
		delete(c.inflight, o.ID)
		c.mu.Unlock()

		if err != nil {
			lg.Warn("optimistic update rolled back", slog.String("err", err.Error()))
			o.finish(StateRolledBack, err)
			return
		}

		lg.Debug("optimistic update reconciled")
		o.finish(StateReconciled, nil)
	}()
}
