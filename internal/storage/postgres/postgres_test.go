package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
	"github.com/pribylovaa/go-shortvideo-feed/internal/storage"
)

// Интеграционные тесты для пакета postgres:
// — поднимают реальный PostgreSQL через testcontainers-go (образ postgres:16-alpine);
// — применяют встроенную схему через Migrate (дважды: схема идемпотентна);
// — проверяют:
//    CreateComment: +1 к comments на каждый комментарий, ErrInvalidReference без побочных эффектов,
//      порядок created_at DESC;
//    LikeComment / LikeCommentAs / UnlikeCommentAs: «сырой» и идемпотентный лайк;
//    LikeVideo / UnlikeVideo: идемпотентность, IsLiked по зрителю, clamp в ноль;
//    FollowUser / UnfollowUser: оба счётчика в одной транзакции, ErrConflict на дубль,
//      атомарность при конкурентных запросах;
//    RecountFollowCounters: исправление рассинхронизированных счётчиков;
//    профили и пользователи: вычисляемые счётчики, частичный апдейт, ErrConflict/ErrNotFound;
//    поведение при истёкшем контексте (context deadline exceeded).
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

// startPostgres — поднимает PostgreSQL через testcontainers-go,
// применяет схему и возвращает инициализированное хранилище и функцию очистки.
// Если переменная окружения GO_TEST_INTEGRATION не установлена — тест пропускается.
func startPostgres(t *testing.T) (*Storage, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "docker.io/postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "5432/tcp")
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	st, err := New(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	require.NoError(t, st.Migrate(ctx))

	cleanup := func() {
		_ = st.Close(context.Background())
		_ = c.Terminate(context.Background())
	}
	return st, cleanup
}

func mustVideo(t *testing.T, st *Storage, id, owner string, likes int64) {
	t.Helper()
	_, err := st.CreateVideo(context.Background(), storage.NewVideo{
		ID: id, UserID: owner, Username: owner, VideoURL: "https://cdn/" + id + ".mp4", Likes: likes,
	})
	require.NoError(t, err)
}

func mustProfile(t *testing.T, st *Storage, userID string) {
	t.Helper()
	_, err := st.CreateUserProfile(context.Background(), models.UserProfile{UserID: userID, Username: userID})
	require.NoError(t, err)
}

func TestIntegration_Comments(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	mustVideo(t, st, "1", "user1", 0)

	const n = 5
	for i := 0; i < n; i++ {
		_, err := st.CreateComment(ctx, storage.NewComment{VideoID: "1", UserID: "u", Username: "u", Text: fmt.Sprintf("c%d", i)})
		require.NoError(t, err)
	}

	v, err := st.VideoByID(ctx, "1", "")
	require.NoError(t, err)
	require.EqualValues(t, n, v.Comments)

	list, err := st.CommentsByVideoID(ctx, "1")
	require.NoError(t, err)
	require.Len(t, list, n)
	require.Equal(t, "c4", list[0].Text)
	require.Equal(t, "c0", list[n-1].Text)

	// Ссылочная целостность: ни комментария, ни счётчика.
	_, err = st.CreateComment(ctx, storage.NewComment{VideoID: "xyz", UserID: "u", Username: "u", Text: "hi"})
	require.ErrorIs(t, err, storage.ErrInvalidReference)
	list, err = st.CommentsByVideoID(ctx, "xyz")
	require.NoError(t, err)
	require.Empty(t, list)

	id := list0(t, st, "1")
	for i := 0; i < 3; i++ {
		_, err = st.LikeComment(ctx, id)
		require.NoError(t, err)
	}
	c, err := st.LikeCommentAs(ctx, id, "viewer")
	require.NoError(t, err)
	require.EqualValues(t, 4, c.Likes)
	c, err = st.LikeCommentAs(ctx, id, "viewer")
	require.NoError(t, err)
	require.EqualValues(t, 4, c.Likes)

	c, err = st.UnlikeCommentAs(ctx, id, "viewer")
	require.NoError(t, err)
	require.EqualValues(t, 3, c.Likes)
	_, err = st.UnlikeCommentAs(ctx, id, "viewer")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.LikeComment(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = st.LikeCommentAs(ctx, "missing", "viewer")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func list0(t *testing.T, st *Storage, videoID string) string {
	t.Helper()
	list, err := st.CommentsByVideoID(context.Background(), videoID)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	return list[0].ID
}

func TestIntegration_VideoLikes(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	mustProfile(t, st, "owner")
	mustVideo(t, st, "1", "owner", 10)
	mustVideo(t, st, "2", "owner", 0)

	_, err := st.CreateVideo(ctx, storage.NewVideo{ID: "1", UserID: "owner", Username: "owner", VideoURL: "x"})
	require.ErrorIs(t, err, storage.ErrConflict)

	v, err := st.LikeVideo(ctx, "1", "viewer")
	require.NoError(t, err)
	require.True(t, v.IsLiked)
	require.EqualValues(t, 11, v.Likes)

	v, err = st.LikeVideo(ctx, "1", "viewer")
	require.NoError(t, err)
	require.EqualValues(t, 11, v.Likes)

	videos, err := st.Videos(ctx, "viewer")
	require.NoError(t, err)
	require.Len(t, videos, 2)
	require.Equal(t, "1", videos[0].ID)
	require.True(t, videos[0].IsLiked)
	require.False(t, videos[1].IsLiked)

	videos, err = st.Videos(ctx, "")
	require.NoError(t, err)
	require.False(t, videos[0].IsLiked)

	p, err := st.UserProfile(ctx, "owner")
	require.NoError(t, err)
	require.EqualValues(t, 2, p.VideosCount)
	require.EqualValues(t, 11, p.LikesCount)

	v, err = st.UnlikeVideo(ctx, "1", "viewer")
	require.NoError(t, err)
	require.False(t, v.IsLiked)
	require.EqualValues(t, 10, v.Likes)

	// Снятие несуществующего лайка ничего не меняет.
	v, err = st.UnlikeVideo(ctx, "2", "viewer")
	require.NoError(t, err)
	require.Zero(t, v.Likes)

	_, err = st.LikeVideo(ctx, "xyz", "viewer")
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = st.VideoByID(ctx, "xyz", "")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_Follows(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	mustProfile(t, st, "a")
	mustProfile(t, st, "b")

	f, err := st.FollowUser(ctx, "a", "b")
	require.NoError(t, err)
	require.Equal(t, "a", f.FollowerID)
	require.Equal(t, "b", f.FollowingID)

	_, err = st.FollowUser(ctx, "a", "b")
	require.ErrorIs(t, err, storage.ErrConflict)

	a, _ := st.UserProfile(ctx, "a")
	b, _ := st.UserProfile(ctx, "b")
	require.EqualValues(t, 1, a.FollowingCount)
	require.EqualValues(t, 1, b.FollowersCount)

	ok, err := st.IsFollowing(ctx, "a", "b")
	require.NoError(t, err)
	require.True(t, ok)

	removed, err := st.UnfollowUser(ctx, "a", "b")
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = st.UnfollowUser(ctx, "a", "b")
	require.NoError(t, err)
	require.False(t, removed)

	a, _ = st.UserProfile(ctx, "a")
	b, _ = st.UserProfile(ctx, "b")
	require.Zero(t, a.FollowingCount)
	require.Zero(t, b.FollowersCount)
}

// Конкурентные FollowUser одной пары: ровно одно ребро и +1 к счётчикам.
func TestIntegration_FollowUser_Concurrent(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	mustProfile(t, st, "a")
	mustProfile(t, st, "b")

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, confl int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.FollowUser(ctx, "a", "b")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, storage.ErrConflict):
				confl++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, ok)
	require.Equal(t, n-1, confl)

	b, err := st.UserProfile(ctx, "b")
	require.NoError(t, err)
	require.EqualValues(t, 1, b.FollowersCount)
}

func TestIntegration_RecountFollowCounters(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	mustProfile(t, st, "a")
	mustProfile(t, st, "b")
	_, err := st.FollowUser(ctx, "a", "b")
	require.NoError(t, err)

	_, err = st.db.Exec(ctx, `UPDATE profiles SET followers_count = 7 WHERE user_id = 'b'`)
	require.NoError(t, err)

	repairs, err := st.RecountFollowCounters(ctx)
	require.NoError(t, err)
	require.Equal(t, []models.CounterRepair{
		{UserID: "b", FollowersBefore: 7, FollowersAfter: 1},
	}, repairs)

	repairs, err = st.RecountFollowCounters(ctx)
	require.NoError(t, err)
	require.Empty(t, repairs)
}

func TestIntegration_ProfilesAndUsers(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()

	// Рёбра и видео до профиля учитываются при создании профиля.
	mustVideo(t, st, "1", "late", 5)
	_, err := st.FollowUser(ctx, "x", "late")
	require.NoError(t, err)

	bio := "hi"
	p, err := st.CreateUserProfile(ctx, models.UserProfile{UserID: "late", Username: "late", Bio: &bio, FollowersCount: 99})
	require.NoError(t, err)
	require.EqualValues(t, 1, p.FollowersCount)
	require.EqualValues(t, 1, p.VideosCount)
	require.EqualValues(t, 5, p.LikesCount)
	require.Equal(t, "hi", *p.Bio)

	_, err = st.CreateUserProfile(ctx, models.UserProfile{UserID: "late", Username: "late"})
	require.ErrorIs(t, err, storage.ErrConflict)

	name := "renamed"
	p, err = st.UpdateUserProfile(ctx, "late", models.ProfileUpdate{Username: &name})
	require.NoError(t, err)
	require.Equal(t, "renamed", p.Username)
	require.Equal(t, "hi", *p.Bio)
	require.EqualValues(t, 1, p.FollowersCount)

	_, err = st.UpdateUserProfile(ctx, "ghost", models.ProfileUpdate{Username: &name})
	require.ErrorIs(t, err, storage.ErrNotFound)

	u, err := st.CreateUser(ctx, models.User{Username: "alice", PasswordHash: []byte("hash")})
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)

	_, err = st.CreateUser(ctx, models.User{Username: "alice", PasswordHash: []byte("hash")})
	require.ErrorIs(t, err, storage.ErrConflict)

	got, err := st.UserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, []byte("hash"), got.PasswordHash)

	_, err = st.UserByID(ctx, "ghost")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_ContextDeadlineExceeded(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()

	_, err := st.Videos(ctx, "")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), context.DeadlineExceeded.Error()))
}
