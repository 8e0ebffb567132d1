package http

// Сквозные тесты REST API (router + handlers + service + memory storage).
//
//  Проверяем:
//  - POST комментария "Bravo!" к видео "1" и его первое место в GET (newest first);
//  - лайк несуществующего комментария -> 404;
//  - DELETE follow без followerId -> 400, состояние не меняется;
//  - повторный follow -> 400/already_exists, счётчики профилей меняются ровно один раз;
//  - комментарий к несуществующему видео -> 404/invalid_reference;
//  - base path, per-viewer лайки видео, пользователи и профили;
//  - аватары без S3 -> 501.

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
	"github.com/pribylovaa/go-shortvideo-feed/internal/seed"
	"github.com/pribylovaa/go-shortvideo-feed/internal/service"
	"github.com/pribylovaa/go-shortvideo-feed/internal/storage/memory"
	"github.com/pribylovaa/go-shortvideo-feed/internal/transport/http/apierrors"
)

type testAPI struct {
	t   *testing.T
	srv *httptest.Server
	st  *memory.Storage
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	st := memory.New()
	require.NoError(t, seed.Apply(context.Background(), st))

	router := NewRouter(service.New(st), Options{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Timeout:  time.Second,
		BasePath: "/api",
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testAPI{t: t, srv: srv, st: st}
}

// do выполняет запрос и декодирует JSON-ответ в out (если out != nil).
func (a *testAPI) do(method, path string, body any, out any) int {
	a.t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	require.NoError(a.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.srv.Client().Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp.StatusCode
}

func TestAPI_CommentScenario(t *testing.T) {
	api := newTestAPI(t)

	var before models.Video
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/videos/1", nil, &before))

	var created models.Comment
	status := api.do(http.MethodPost, "/api/videos/1/comments", map[string]string{
		"userId":    "me",
		"username":  "Me",
		"avatarUrl": "",
		"text":      "Bravo!",
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "Bravo!", created.Text)
	require.Zero(t, created.Likes)
	require.WithinDuration(t, time.Now(), created.CreatedAt, 5*time.Second)

	var list []models.Comment
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/videos/1/comments", nil, &list))
	require.NotEmpty(t, list)
	require.Equal(t, created.ID, list[0].ID)

	var after models.Video
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/videos/1", nil, &after))
	require.Equal(t, before.Comments+1, after.Comments)
}

func TestAPI_CommentValidationAndReference(t *testing.T) {
	api := newTestAPI(t)

	var env apierrors.ErrorResponse
	status := api.do(http.MethodPost, "/api/videos/1/comments", map[string]string{"userId": "me"}, &env)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "invalid_argument", env.Error.Code)
	require.NotEmpty(t, env.Error.RequestID)
	require.Equal(t, []service.FieldError{
		{Field: "username", Reason: "is required"},
		{Field: "text", Reason: "is required"},
	}, env.Error.Details)

	env = apierrors.ErrorResponse{}
	status = api.do(http.MethodPost, "/api/videos/1/comments", map[string]string{"id": "client-id", "text": "x"}, &env)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "body", env.Error.Details[0].Field)

	env = apierrors.ErrorResponse{}
	status = api.do(http.MethodPost, "/api/videos/nope/comments", map[string]string{
		"userId": "me", "username": "Me", "text": "hi",
	}, &env)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "invalid_reference", env.Error.Code)
}

func TestAPI_LikeCommentNotFound(t *testing.T) {
	api := newTestAPI(t)

	var env apierrors.ErrorResponse
	require.Equal(t, http.StatusNotFound, api.do(http.MethodPost, "/api/comments/xyz/like", nil, &env))
	require.Equal(t, "not_found", env.Error.Code)
}

func TestAPI_LikeComment(t *testing.T) {
	api := newTestAPI(t)

	var c models.Comment
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/videos/2/comments", map[string]string{
		"userId": "me", "username": "Me", "text": "nice",
	}, &c))

	// «Сырой» лайк без зрителя — каждый вызов +1.
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/comments/"+c.ID+"/like", nil, &c))
	}
	require.EqualValues(t, 2, c.Likes)

	// Лайк зрителя идемпотентен.
	viewer := map[string]string{"viewerId": "v1"}
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/comments/"+c.ID+"/like", viewer, &c))
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/comments/"+c.ID+"/like", viewer, &c))
	require.EqualValues(t, 3, c.Likes)

	require.Equal(t, http.StatusOK, api.do(http.MethodDelete, "/api/comments/"+c.ID+"/like", viewer, &c))
	require.EqualValues(t, 2, c.Likes)
	require.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/api/comments/"+c.ID+"/like", viewer, nil))
}

func TestAPI_UnfollowWithoutFollowerID(t *testing.T) {
	api := newTestAPI(t)

	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/users/user1/follow", map[string]string{"followerId": "user2"}, nil))

	var before models.UserProfile
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/users/user1/profile", nil, &before))

	var env apierrors.ErrorResponse
	require.Equal(t, http.StatusBadRequest, api.do(http.MethodDelete, "/api/users/user1/follow", map[string]string{}, &env))
	require.Equal(t, []service.FieldError{{Field: "followerId", Reason: "is required"}}, env.Error.Details)

	require.Equal(t, http.StatusBadRequest, api.do(http.MethodDelete, "/api/users/user1/follow", nil, nil))

	var after models.UserProfile
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/users/user1/profile", nil, &after))
	require.Equal(t, before, after)

	var following struct {
		IsFollowing bool `json:"isFollowing"`
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/users/user2/following/user1", nil, &following))
	require.True(t, following.IsFollowing)
}

func TestAPI_FollowLifecycle(t *testing.T) {
	api := newTestAPI(t)

	var p1, p2 models.UserProfile
	api.do(http.MethodGet, "/api/users/user1/profile", nil, &p1)
	api.do(http.MethodGet, "/api/users/user2/profile", nil, &p2)

	var f models.Follow
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/users/user1/follow", map[string]string{"followerId": "user2"}, &f))
	require.Equal(t, "user2", f.FollowerID)
	require.Equal(t, "user1", f.FollowingID)

	var env apierrors.ErrorResponse
	require.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/users/user1/follow", map[string]string{"followerId": "user2"}, &env))
	require.Equal(t, "already_exists", env.Error.Code)

	var mid1, mid2 models.UserProfile
	api.do(http.MethodGet, "/api/users/user1/profile", nil, &mid1)
	api.do(http.MethodGet, "/api/users/user2/profile", nil, &mid2)
	require.Equal(t, p1.FollowersCount+1, mid1.FollowersCount)
	require.Equal(t, p2.FollowingCount+1, mid2.FollowingCount)

	var ack struct {
		Success bool `json:"success"`
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodDelete, "/api/users/user1/follow", map[string]string{"followerId": "user2"}, &ack))
	require.True(t, ack.Success)
	require.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/api/users/user1/follow", map[string]string{"followerId": "user2"}, nil))

	var end1, end2 models.UserProfile
	api.do(http.MethodGet, "/api/users/user1/profile", nil, &end1)
	api.do(http.MethodGet, "/api/users/user2/profile", nil, &end2)
	require.Equal(t, p1, end1)
	require.Equal(t, p2, end2)

	require.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/users/user1/follow", map[string]string{"followerId": "user1"}, nil))
}

func TestAPI_VideoLikesPerViewer(t *testing.T) {
	api := newTestAPI(t)

	var v models.Video
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/videos/3/like", map[string]string{"viewerId": "a"}, &v))
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/videos/3/like", map[string]string{"viewerId": "a"}, &v))
	require.EqualValues(t, 28901, v.Likes)
	require.True(t, v.IsLiked)

	var forB models.Video
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/videos/3?viewerId=b", nil, &forB))
	require.False(t, forB.IsLiked)

	var feed []models.Video
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/videos?viewerId=a", nil, &feed))
	require.Len(t, feed, 5)
	require.True(t, feed[2].IsLiked)
	require.False(t, feed[0].IsLiked)

	require.Equal(t, http.StatusOK, api.do(http.MethodDelete, "/api/videos/3/like", map[string]string{"viewerId": "a"}, &v))
	require.EqualValues(t, 28900, v.Likes)

	require.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/videos/3/like", nil, nil))
	require.Equal(t, http.StatusNotFound, api.do(http.MethodPost, "/api/videos/xyz/like", map[string]string{"viewerId": "a"}, nil))
}

func TestAPI_CreateVideoUpdatesOwnerProfile(t *testing.T) {
	api := newTestAPI(t)

	var v models.Video
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/videos", map[string]string{
		"userId": "user1", "username": "creativemind", "videoUrl": "https://cdn/new.mp4",
	}, &v))
	require.NotEmpty(t, v.ID)
	require.Zero(t, v.Likes)

	var p models.UserProfile
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/users/user1/profile", nil, &p))
	require.EqualValues(t, 2, p.VideosCount)
}

func TestAPI_UsersAndProfiles(t *testing.T) {
	api := newTestAPI(t)

	var u map[string]any
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/users", map[string]string{"username": "alice", "password": "pw"}, &u))
	require.NotEmpty(t, u["id"])
	require.NotContains(t, u, "passwordHash")
	id := u["id"].(string)

	var dup apierrors.ErrorResponse
	require.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/users", map[string]string{"username": "alice", "password": "pw"}, &dup))
	require.Equal(t, "already_exists", dup.Error.Code)

	var found models.User
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/users?username=alice", nil, &found))
	require.Equal(t, id, found.ID)
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/users/"+id, nil, &found))
	require.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/users/ghost", nil, nil))

	require.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/users/"+id+"/profile", nil, nil))

	var p models.UserProfile
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/users/"+id+"/profile", map[string]string{"username": "alice"}, &p))
	require.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/users/"+id+"/profile", map[string]string{"username": "alice"}, nil))

	require.Equal(t, http.StatusOK, api.do(http.MethodPatch, "/api/users/"+id+"/profile", map[string]string{"bio": "hi"}, &p))
	require.NotNil(t, p.Bio)
	require.Equal(t, "hi", *p.Bio)
	require.Equal(t, http.StatusBadRequest, api.do(http.MethodPatch, "/api/users/"+id+"/profile", map[string]string{}, nil))
}

func TestAPI_AvatarsNotConfigured(t *testing.T) {
	api := newTestAPI(t)

	var env apierrors.ErrorResponse
	status := api.do(http.MethodPost, "/api/users/user1/avatar/presign", map[string]any{"contentType": "image/png", "contentLength": 10}, &env)
	require.Equal(t, http.StatusNotImplemented, status)
	require.Equal(t, "unimplemented", env.Error.Code)
}

// Роуты без base path не обслуживаются.
func TestAPI_BasePath(t *testing.T) {
	api := newTestAPI(t)

	require.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/videos", nil, nil))

	rootOnly := httptest.NewServer(NewRouter(service.New(api.st), Options{}))
	defer rootOnly.Close()

	resp, err := rootOnly.Client().Get(rootOnly.URL + "/videos")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
