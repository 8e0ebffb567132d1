package coordinator

// Тесты координатора мутаций (internal/coordinator).
//
//  Проверяем:
//  - оптимистичный комментарий + отказ сервера -> список идентичен исходному;
//  - замену временного комментария серверным;
//  - перезагрузку ленты во время добавления: +1 сохраняется, после отказа
//    счётчик равен серверному, после успеха перечитывается с сервера;
//  - сверку лайка видео со значением сервера и точный откат;
//  - ErrPending для переключателя с незавершённой мутацией;
//  - защиту двойного тапа (повторный жест не ставит второй лайк);
//  - подписку: ±1 к followers, перечитывание профиля, откат на дубль (already_exists);
//  - таймаут удалённого вызова -> ErrTimeout и откат;
//  - Close: новые мутации отклоняются, запущенные дожидаются;
//  - сквозной сценарий с настоящим клиентом и сервером.

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-shortvideo-feed/internal/client"
	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
	"github.com/pribylovaa/go-shortvideo-feed/internal/seed"
	"github.com/pribylovaa/go-shortvideo-feed/internal/service"
	"github.com/pribylovaa/go-shortvideo-feed/internal/storage/memory"
	transporthttp "github.com/pribylovaa/go-shortvideo-feed/internal/transport/http"
)

var errRemote = errors.New("remote failure")

// fakeAPI — управляемая удалённая сторона: gate задерживает мутации до release,
// fail принудительно возвращает ошибку.
type fakeAPI struct {
	mu       sync.Mutex
	gate     chan struct{}
	fail     error
	videoErr error // ошибка перечитывания видео
	videos   []models.Video
	comments map[string][]models.Comment
	profiles map[string]models.UserProfile
	likes    map[string]int64 // videoID -> likes на сервере
	calls    []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		videos: []models.Video{
			{ID: "1", UserID: "u1", Likes: 10, Comments: 2},
			{ID: "2", UserID: "u2", Likes: 0},
		},
		comments: map[string][]models.Comment{
			"1": {
				{ID: "c2", VideoID: "1", Text: "second", Likes: 1},
				{ID: "c1", VideoID: "1", Text: "first"},
			},
		},
		profiles: map[string]models.UserProfile{
			"u1": {UserID: "u1", Username: "one", FollowersCount: 5},
		},
		likes: map[string]int64{"1": 10, "2": 0},
	}
}

func (f *fakeAPI) hold() { f.mu.Lock(); f.gate = make(chan struct{}); f.mu.Unlock() }

func (f *fakeAPI) release() { f.mu.Lock(); close(f.gate); f.gate = nil; f.mu.Unlock() }

func (f *fakeAPI) setFail(err error) { f.mu.Lock(); f.fail = err; f.mu.Unlock() }

// mutate фиксирует вызов, ждёт gate и возвращает принудительную ошибку.
func (f *fakeAPI) mutate(ctx context.Context, name string) error {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail
}

func (f *fakeAPI) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeAPI) Videos(context.Context, string) ([]models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Video(nil), f.videos...), nil
}

func (f *fakeAPI) Video(_ context.Context, id, _ string) (*models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.videoErr != nil {
		return nil, f.videoErr
	}
	for _, v := range f.videos {
		if v.ID == id {
			return &v, nil
		}
	}
	return nil, client.ErrNotFound
}

// addServerComments имитирует комментарии других пользователей, пришедшие на сервер.
func (f *fakeAPI) addServerComments(videoID string, n int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.videos {
		if f.videos[i].ID == videoID {
			f.videos[i].Comments += n
		}
	}
}

func (f *fakeAPI) LikeVideo(ctx context.Context, videoID, _ string) (*models.Video, error) {
	if err := f.mutate(ctx, "LikeVideo"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	// Сервер видел лайки других зрителей.
	f.likes[videoID] += 50
	return &models.Video{ID: videoID, Likes: f.likes[videoID], IsLiked: true}, nil
}

func (f *fakeAPI) UnlikeVideo(ctx context.Context, videoID, _ string) (*models.Video, error) {
	if err := f.mutate(ctx, "UnlikeVideo"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.likes[videoID] = max(f.likes[videoID]-1, 0)
	return &models.Video{ID: videoID, Likes: f.likes[videoID]}, nil
}

func (f *fakeAPI) Comments(_ context.Context, videoID string) ([]models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Comment(nil), f.comments[videoID]...), nil
}

func (f *fakeAPI) CreateComment(ctx context.Context, videoID string, in client.CommentInput) (*models.Comment, error) {
	if err := f.mutate(ctx, "CreateComment"); err != nil {
		return nil, err
	}
	f.addServerComments(videoID, 1)
	return &models.Comment{
		ID: "srv-1", VideoID: videoID, UserID: in.UserID, Username: in.Username,
		Text: in.Text, CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (f *fakeAPI) LikeComment(ctx context.Context, commentID, _ string) (*models.Comment, error) {
	if err := f.mutate(ctx, "LikeComment"); err != nil {
		return nil, err
	}
	return &models.Comment{ID: commentID, Likes: 7}, nil
}

func (f *fakeAPI) UnlikeComment(ctx context.Context, commentID, _ string) (*models.Comment, error) {
	if err := f.mutate(ctx, "UnlikeComment"); err != nil {
		return nil, err
	}
	return &models.Comment{ID: commentID, Likes: 6}, nil
}

func (f *fakeAPI) Follow(ctx context.Context, userID, followerID string) (*models.Follow, error) {
	if err := f.mutate(ctx, "Follow"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.profiles[userID]
	p.FollowersCount += 10 // чужие подписки, пришедшие параллельно
	f.profiles[userID] = p
	return &models.Follow{ID: "f1", FollowerID: followerID, FollowingID: userID}, nil
}

func (f *fakeAPI) Unfollow(ctx context.Context, _, _ string) error {
	return f.mutate(ctx, "Unfollow")
}

func (f *fakeAPI) IsFollowing(context.Context, string, string) (bool, error) {
	return false, nil
}

func (f *fakeAPI) Profile(_ context.Context, userID string) (*models.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, client.ErrNotFound
	}
	return &p, nil
}

func newTestCoordinator(t *testing.T, api API, timeout time.Duration) *Coordinator {
	t.Helper()

	c := New(api, Options{Viewer: Viewer{ID: "me", Username: "Me"}, Timeout: timeout})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = c.Close(ctx)
	})

	_, err := c.LoadFeed(context.Background())
	require.NoError(t, err)

	return c
}

func waitOp(t *testing.T, o *Op) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return o.Wait(ctx)
}

func TestAddComment_RollbackRestoresList(t *testing.T) {
	api := newFakeAPI()
	c := newTestCoordinator(t, api, time.Second)

	_, err := c.LoadComments(context.Background(), "1")
	require.NoError(t, err)
	before := c.Comments("1")
	videoBefore, _ := c.Video("1")

	api.hold()
	api.setFail(errRemote)

	o, err := c.AddComment(context.Background(), "1", " Bravo! ")
	require.NoError(t, err)
	require.Equal(t, StateOptimistic, o.State())
	require.Nil(t, o.Before)

	optimistic := c.Comments("1")
	require.Len(t, optimistic, len(before)+1)
	require.Equal(t, o.ID, optimistic[0].ID)
	require.Equal(t, "Bravo!", optimistic[0].Text)
	require.Zero(t, optimistic[0].Likes)
	v, _ := c.Video("1")
	require.Equal(t, videoBefore.Comments+1, v.Comments)

	api.release()
	require.ErrorIs(t, waitOp(t, o), errRemote)
	require.Equal(t, StateRolledBack, o.State())

	require.Equal(t, before, c.Comments("1"))
	v, _ = c.Video("1")
	require.Equal(t, videoBefore, v)
	require.Zero(t, c.Pending())
}

// Список, не загруженный до попытки, после отката тоже отсутствует.
func TestAddComment_RollbackOnUnloadedList(t *testing.T) {
	api := newFakeAPI()
	api.setFail(errRemote)
	c := newTestCoordinator(t, api, time.Second)

	o, err := c.AddComment(context.Background(), "2", "hi")
	require.NoError(t, err)
	require.Error(t, waitOp(t, o))
	require.Nil(t, c.Comments("2"))
}

func TestAddComment_Reconcile(t *testing.T) {
	api := newFakeAPI()
	c := newTestCoordinator(t, api, time.Second)

	_, err := c.LoadComments(context.Background(), "1")
	require.NoError(t, err)

	o, err := c.AddComment(context.Background(), "1", "Bravo!")
	require.NoError(t, err)
	require.NoError(t, waitOp(t, o))
	require.Equal(t, StateReconciled, o.State())

	list := c.Comments("1")
	require.Len(t, list, 3)
	require.Equal(t, "srv-1", list[0].ID)
	require.Equal(t, "me", list[0].UserID)
	require.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), list[0].CreatedAt)
}

// Перезагрузка ленты во время добавления сохраняет +1; после отказа
// счётчик равен серверному.
func TestAddComment_ReloadThenRollback(t *testing.T) {
	api := newFakeAPI()
	c := newTestCoordinator(t, api, time.Second)

	api.hold()
	api.setFail(errRemote)

	o, err := c.AddComment(context.Background(), "1", "hi")
	require.NoError(t, err)

	_, err = c.LoadFeed(context.Background())
	require.NoError(t, err)
	v, _ := c.Video("1")
	require.EqualValues(t, 3, v.Comments)

	api.release()
	require.ErrorIs(t, waitOp(t, o), errRemote)

	v, _ = c.Video("1")
	require.EqualValues(t, 2, v.Comments)
}

// Успех после перезагрузки: comments перечитывается с сервера, включая чужие комментарии.
func TestAddComment_ReloadThenReconcile(t *testing.T) {
	api := newFakeAPI()
	c := newTestCoordinator(t, api, time.Second)

	api.hold()
	o, err := c.AddComment(context.Background(), "1", "hi")
	require.NoError(t, err)

	_, err = c.LoadFeed(context.Background())
	require.NoError(t, err)
	v, _ := c.Video("1")
	require.EqualValues(t, 3, v.Comments)

	api.addServerComments("1", 5)
	api.release()
	require.NoError(t, waitOp(t, o))

	v, _ = c.Video("1")
	require.EqualValues(t, 8, v.Comments)
}

// Сбой перечитывания видео не откатывает созданный комментарий.
func TestAddComment_ResyncFailureKeepsComment(t *testing.T) {
	api := newFakeAPI()
	api.videoErr = errRemote
	c := newTestCoordinator(t, api, time.Second)

	_, err := c.LoadComments(context.Background(), "1")
	require.NoError(t, err)

	o, err := c.AddComment(context.Background(), "1", "hi")
	require.NoError(t, err)
	require.NoError(t, waitOp(t, o))
	require.Equal(t, StateReconciled, o.State())

	require.Equal(t, "srv-1", c.Comments("1")[0].ID)
	v, _ := c.Video("1")
	require.EqualValues(t, 3, v.Comments)
}

// Последовательные добавления: счётчик после каждой сверки совпадает с сервером.
func TestAddComment_SequentialAddsMatchServer(t *testing.T) {
	api := newFakeAPI()
	c := newTestCoordinator(t, api, time.Second)

	first, err := c.AddComment(context.Background(), "1", "one")
	require.NoError(t, err)
	require.NoError(t, waitOp(t, first))

	api.hold()
	second, err := c.AddComment(context.Background(), "1", "two")
	require.NoError(t, err)
	v, _ := c.Video("1")
	require.EqualValues(t, 4, v.Comments)

	api.release()
	require.NoError(t, waitOp(t, second))
	v, _ = c.Video("1")
	require.EqualValues(t, 4, v.Comments)
}

func TestAddComment_InvalidInput(t *testing.T) {
	c := newTestCoordinator(t, newFakeAPI(), time.Second)

	_, err := c.AddComment(context.Background(), "1", "   ")
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Zero(t, c.Pending())

	anon := New(newFakeAPI(), Options{})
	_, err = anon.AddComment(context.Background(), "1", "hi")
	require.ErrorIs(t, err, ErrInvalidInput)
}

// Успех: likes берутся с сервера, а не из локальной арифметики.
func TestToggleLike_ReconcileToServer(t *testing.T) {
	api := newFakeAPI()
	c := newTestCoordinator(t, api, time.Second)

	api.hold()
	o, err := c.ToggleLike(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, LikeState{Liked: false, Likes: 10}, o.Before)
	require.Equal(t, LikeState{Liked: true, Likes: 11}, o.After)

	v, _ := c.Video("1")
	require.True(t, v.IsLiked)
	require.EqualValues(t, 11, v.Likes)

	_, err = c.ToggleLike(context.Background(), "1")
	require.ErrorIs(t, err, ErrPending)

	api.release()
	require.NoError(t, waitOp(t, o))

	v, _ = c.Video("1")
	require.True(t, v.IsLiked)
	require.EqualValues(t, 60, v.Likes)
}

func TestToggleLike_Rollback(t *testing.T) {
	api := newFakeAPI()
	api.setFail(errRemote)
	c := newTestCoordinator(t, api, time.Second)

	before, _ := c.Video("1")

	o, err := c.ToggleLike(context.Background(), "1")
	require.NoError(t, err)
	require.ErrorIs(t, waitOp(t, o), errRemote)

	after, _ := c.Video("1")
	require.Equal(t, before, after)

	_, err = c.ToggleLike(context.Background(), "nope")
	require.ErrorIs(t, err, ErrUnknownEntity)
}

// Сверка лайка не затирает рост comments от параллельного комментария.
func TestToggleLike_ReconcileKeepsConcurrentCommentCount(t *testing.T) {
	api := newFakeAPI()
	c := newTestCoordinator(t, api, time.Second)

	api.hold()
	like, err := c.ToggleLike(context.Background(), "1")
	require.NoError(t, err)
	add, err := c.AddComment(context.Background(), "1", "hi")
	require.NoError(t, err)

	api.release()
	require.NoError(t, waitOp(t, like))
	require.NoError(t, waitOp(t, add))

	v, _ := c.Video("1")
	require.EqualValues(t, 3, v.Comments)
}

func TestDoubleTapLike_Guard(t *testing.T) {
	api := newFakeAPI()
	c := newTestCoordinator(t, api, time.Second)

	api.hold()
	o, err := c.DoubleTapLike(context.Background(), "2")
	require.NoError(t, err)
	require.NotNil(t, o)

	// Второй двойной тап по уже (оптимистично) лайкнутому видео — no-op.
	again, err := c.DoubleTapLike(context.Background(), "2")
	require.NoError(t, err)
	require.Nil(t, again)

	v, _ := c.Video("2")
	require.EqualValues(t, 1, v.Likes)

	api.release()
	require.NoError(t, waitOp(t, o))

	again, err = c.DoubleTapLike(context.Background(), "2")
	require.NoError(t, err)
	require.Nil(t, again)
	require.Equal(t, 1, api.callCount("LikeVideo"))
	require.Zero(t, api.callCount("UnlikeVideo"))
}

func TestToggleCommentLike(t *testing.T) {
	api := newFakeAPI()
	c := newTestCoordinator(t, api, time.Second)

	_, err := c.LoadComments(context.Background(), "1")
	require.NoError(t, err)

	api.hold()
	o, err := c.ToggleCommentLike(context.Background(), "c2")
	require.NoError(t, err)
	require.True(t, c.CommentLiked("c2"))
	require.EqualValues(t, 2, c.Comments("1")[0].Likes)

	_, err = c.ToggleCommentLike(context.Background(), "c2")
	require.ErrorIs(t, err, ErrPending)

	api.release()
	require.NoError(t, waitOp(t, o))
	require.EqualValues(t, 7, c.Comments("1")[0].Likes)

	api.setFail(errRemote)
	o, err = c.ToggleCommentLike(context.Background(), "c2")
	require.NoError(t, err)
	require.Error(t, waitOp(t, o))
	require.True(t, c.CommentLiked("c2"))
	require.EqualValues(t, 7, c.Comments("1")[0].Likes)

	_, err = c.ToggleCommentLike(context.Background(), "missing")
	require.ErrorIs(t, err, ErrUnknownEntity)
}

// Неподтверждённый комментарий нельзя лайкнуть.
func TestToggleCommentLike_TempComment(t *testing.T) {
	api := newFakeAPI()
	c := newTestCoordinator(t, api, time.Second)

	api.hold()
	add, err := c.AddComment(context.Background(), "1", "hi")
	require.NoError(t, err)

	_, err = c.ToggleCommentLike(context.Background(), add.ID)
	require.ErrorIs(t, err, ErrPending)

	api.release()
	require.NoError(t, waitOp(t, add))
}

func TestFollow_ReconcileFromProfile(t *testing.T) {
	api := newFakeAPI()
	c := newTestCoordinator(t, api, time.Second)

	_, err := c.LoadProfile(context.Background(), "u1")
	require.NoError(t, err)

	api.hold()
	o, err := c.ToggleFollow(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, c.IsFollowing("u1"))
	p, _ := c.Profile("u1")
	require.EqualValues(t, 6, p.FollowersCount)

	_, err = c.Unfollow(context.Background(), "u1")
	require.ErrorIs(t, err, ErrPending)

	api.release()
	require.NoError(t, waitOp(t, o))

	p, _ = c.Profile("u1")
	require.EqualValues(t, 15, p.FollowersCount)
	require.True(t, c.IsFollowing("u1"))

	noop, err := c.Follow(context.Background(), "u1")
	require.NoError(t, err)
	require.Nil(t, noop)
}

func TestFollow_RollbackOnConflict(t *testing.T) {
	api := newFakeAPI()
	c := newTestCoordinator(t, api, time.Second)

	_, err := c.LoadProfile(context.Background(), "u1")
	require.NoError(t, err)
	before, _ := c.Profile("u1")

	api.setFail(&client.APIError{Status: 400, Code: "already_exists"})
	o, err := c.Follow(context.Background(), "u1")
	require.NoError(t, err)
	require.ErrorIs(t, waitOp(t, o), client.ErrConflict)

	after, _ := c.Profile("u1")
	require.Equal(t, before, after)
	require.False(t, c.IsFollowing("u1"))

	_, err = c.ToggleFollow(context.Background(), "me")
	require.ErrorIs(t, err, ErrInvalidInput)

	noop, err := c.Unfollow(context.Background(), "u1")
	require.NoError(t, err)
	require.Nil(t, noop)
}

func TestTimeout_RollsBack(t *testing.T) {
	api := newFakeAPI()
	c := newTestCoordinator(t, api, 20*time.Millisecond)

	api.hold()
	defer api.release()

	o, err := c.ToggleLike(context.Background(), "1")
	require.NoError(t, err)
	require.ErrorIs(t, waitOp(t, o), ErrTimeout)

	v, _ := c.Video("1")
	require.False(t, v.IsLiked)
	require.EqualValues(t, 10, v.Likes)
}

func TestClose_WaitsAndRejects(t *testing.T) {
	api := newFakeAPI()
	c := newTestCoordinator(t, api, time.Second)

	api.hold()
	o, err := c.ToggleLike(context.Background(), "1")
	require.NoError(t, err)

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, c.Close(short), context.DeadlineExceeded)

	_, err = c.ToggleLike(context.Background(), "2")
	require.ErrorIs(t, err, ErrClosed)

	api.release()
	require.NoError(t, c.Close(context.Background()))
	require.Equal(t, StateReconciled, o.State())
}

func TestState_String(t *testing.T) {
	require.Equal(t, "idle", StateIdle.String())
	require.Equal(t, "optimistic", StateOptimistic.String())
	require.Equal(t, "reconciled", StateReconciled.String())
	require.Equal(t, "rolled_back", StateRolledBack.String())
}

// Сквозной сценарий: настоящий клиент, роутер и memory-хранилище.
func TestCoordinator_EndToEnd(t *testing.T) {
	st := memory.New()
	require.NoError(t, seed.Apply(context.Background(), st))

	srv := httptest.NewServer(transporthttp.NewRouter(service.New(st), transporthttp.Options{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		BasePath: "/api",
	}))
	defer srv.Close()

	api := client.New(srv.URL+"/api", time.Second, srv.Client())
	c := newTestCoordinator(t, api, time.Second)
	ctx := context.Background()

	require.Len(t, c.Videos(), 5)

	like, err := c.DoubleTapLike(ctx, "1")
	require.NoError(t, err)
	require.NoError(t, waitOp(t, like))
	v, _ := c.Video("1")
	require.True(t, v.IsLiked)
	require.EqualValues(t, 12501, v.Likes)

	_, err = c.LoadComments(ctx, "1")
	require.NoError(t, err)
	add, err := c.AddComment(ctx, "1", "Bravo!")
	require.NoError(t, err)
	require.NoError(t, waitOp(t, add))
	first := c.Comments("1")[0]
	require.NotEqual(t, add.ID, first.ID)
	require.Equal(t, "Bravo!", first.Text)
	v, _ = c.Video("1")
	remote, err := api.Video(ctx, "1", "me")
	require.NoError(t, err)
	require.Equal(t, remote.Comments, v.Comments)

	_, err = c.LoadProfile(ctx, "user1")
	require.NoError(t, err)
	follow, err := c.Follow(ctx, "user1")
	require.NoError(t, err)
	require.NoError(t, waitOp(t, follow))
	p, _ := c.Profile("user1")
	require.EqualValues(t, 1, p.FollowersCount)

	// Комментарий к несуществующему видео откатывается.
	bad, err := c.AddComment(ctx, "xyz", "hello")
	require.NoError(t, err)
	require.ErrorIs(t, waitOp(t, bad), client.ErrNotFound)
	require.Nil(t, c.Comments("xyz"))
}
