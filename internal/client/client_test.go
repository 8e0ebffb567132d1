package client

// Тесты HTTP-клиента (internal/client) против настоящего роутера на memory-хранилище.
//
//  Проверяем:
//  - happy-path всех вызовов Interaction API;
//  - errors.Is для ErrValidation / ErrNotFound / ErrConflict / ErrInternal;
//  - details и request_id в *APIError;
//  - клиентский таймаут -> ErrTimeout;
//  - проброс X-Request-Id из контекста или генерацию UUID;
//  - ответ без JSON-конверта.

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-shortvideo-feed/internal/seed"
	"github.com/pribylovaa/go-shortvideo-feed/internal/service"
	"github.com/pribylovaa/go-shortvideo-feed/internal/storage/memory"
	transporthttp "github.com/pribylovaa/go-shortvideo-feed/internal/transport/http"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	st := memory.New()
	require.NoError(t, seed.Apply(context.Background(), st))

	srv := httptest.NewServer(transporthttp.NewRouter(service.New(st), transporthttp.Options{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		BasePath: "/api",
	}))
	t.Cleanup(srv.Close)

	return New(srv.URL+"/api/", time.Second, srv.Client())
}

func TestClient_VideosAndLikes(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	videos, err := c.Videos(ctx, "")
	require.NoError(t, err)
	require.Len(t, videos, 5)

	v, err := c.LikeVideo(ctx, "1", "me")
	require.NoError(t, err)
	require.True(t, v.IsLiked)
	require.EqualValues(t, 12501, v.Likes)

	v, err = c.Video(ctx, "1", "me")
	require.NoError(t, err)
	require.True(t, v.IsLiked)

	v, err = c.UnlikeVideo(ctx, "1", "me")
	require.NoError(t, err)
	require.False(t, v.IsLiked)

	_, err = c.Video(ctx, "xyz", "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClient_Comments(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	created, err := c.CreateComment(ctx, "1", CommentInput{UserID: "me", Username: "Me", Text: "Bravo!"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	list, err := c.Comments(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, created.ID, list[0].ID)

	liked, err := c.LikeComment(ctx, created.ID, "me")
	require.NoError(t, err)
	require.EqualValues(t, 1, liked.Likes)

	unliked, err := c.UnlikeComment(ctx, created.ID, "me")
	require.NoError(t, err)
	require.Zero(t, unliked.Likes)

	_, err = c.LikeComment(ctx, "xyz", "")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = c.CreateComment(ctx, "1", CommentInput{UserID: "me"})
	require.ErrorIs(t, err, ErrValidation)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "invalid_argument", apiErr.Code)
	require.NotEmpty(t, apiErr.RequestID)
	require.Len(t, apiErr.Details, 2)
}

func TestClient_Follows(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	f, err := c.Follow(ctx, "user1", "user2")
	require.NoError(t, err)
	require.Equal(t, "user1", f.FollowingID)

	_, err = c.Follow(ctx, "user1", "user2")
	require.ErrorIs(t, err, ErrConflict)
	require.NotErrorIs(t, err, ErrValidation)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.Status)

	ok, err := c.IsFollowing(ctx, "user2", "user1")
	require.NoError(t, err)
	require.True(t, ok)

	p, err := c.Profile(ctx, "user1")
	require.NoError(t, err)
	require.EqualValues(t, 1, p.FollowersCount)

	require.NoError(t, c.Unfollow(ctx, "user1", "user2"))
	require.ErrorIs(t, c.Unfollow(ctx, "user1", "user2"), ErrNotFound)
	require.ErrorIs(t, c.Unfollow(ctx, "user1", ""), ErrValidation)
}

// Дубль и невалидный ввод приходят с одним статусом 400 и различаются кодом.
func TestAPIError_Is(t *testing.T) {
	dup := &APIError{Status: http.StatusBadRequest, Code: CodeAlreadyExists}
	require.ErrorIs(t, dup, ErrConflict)
	require.NotErrorIs(t, dup, ErrValidation)

	invalid := &APIError{Status: http.StatusBadRequest, Code: "invalid_argument"}
	require.ErrorIs(t, invalid, ErrValidation)
	require.NotErrorIs(t, invalid, ErrConflict)

	gone := &APIError{Status: http.StatusConflict, Code: "internal"}
	require.NotErrorIs(t, gone, ErrConflict)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(srv.URL, 20*time.Millisecond, srv.Client())

	_, err := c.Videos(context.Background(), "")
	require.ErrorIs(t, err, ErrTimeout)
}

func TestClient_ErrorWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, nil)

	_, err := c.Profile(context.Background(), "u1")
	require.ErrorIs(t, err, ErrInternal)
	require.NotErrorIs(t, err, ErrTimeout)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadGateway, apiErr.Status)
	require.Equal(t, "Bad Gateway", apiErr.Message)
}

// X-Request-Id из контекста доходит до сервера и возвращается в request_id ошибки.
func TestClient_RequestID(t *testing.T) {
	c := newTestClient(t)

	ctx := WithRequestID(context.Background(), "rid-cli-1")
	_, err := c.Video(ctx, "xyz", "")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "rid-cli-1", apiErr.RequestID)
}

func TestClient_RequestID_Generated(t *testing.T) {
	seen := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, srv.Client())

	_, err := c.Videos(context.Background(), "")
	require.NoError(t, err)

	h := <-seen
	_, parseErr := uuid.Parse(h.Get(HeaderRequestID))
	require.NoError(t, parseErr)
	require.Equal(t, userAgent, h.Get("User-Agent"))
}
