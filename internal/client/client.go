// client — типизированный HTTP-клиент Interaction API feed-service.
// Каждый вызов ограничен собственным таймаутом; ответы с ошибкой
// возвращаются как *APIError, сопоставимый с ErrValidation/ErrNotFound/... через errors.Is.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
	"github.com/pribylovaa/go-shortvideo-feed/pkg/log"
)

// Client — клиент REST API.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// New создаёт клиент. baseURL включает base path сервера (например, http://host:8080/api).
// timeout <= 0 — без собственного дедлайна; hc == nil — http.DefaultClient.
func New(baseURL string, timeout time.Duration, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    hc,
	}
}

// CommentInput — тело создания комментария.
type CommentInput struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
	Text      string `json:"text"`
}

type viewerBody struct {
	ViewerID string `json:"viewerId,omitempty"`
}

type followBody struct {
	FollowerID string `json:"followerId"`
}

func (c *Client) Videos(ctx context.Context, viewerID string) ([]models.Video, error) {
	var out []models.Video
	err := c.do(ctx, "client/Videos", http.MethodGet, "/videos"+viewerQuery(viewerID), nil, &out)
	return out, err
}

func (c *Client) Video(ctx context.Context, id, viewerID string) (*models.Video, error) {
	var out models.Video
	if err := c.do(ctx, "client/Video", http.MethodGet, "/videos/"+url.PathEscape(id)+viewerQuery(viewerID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LikeVideo(ctx context.Context, videoID, viewerID string) (*models.Video, error) {
	var out models.Video
	if err := c.do(ctx, "client/LikeVideo", http.MethodPost, "/videos/"+url.PathEscape(videoID)+"/like", viewerBody{viewerID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UnlikeVideo(ctx context.Context, videoID, viewerID string) (*models.Video, error) {
	var out models.Video
	if err := c.do(ctx, "client/UnlikeVideo", http.MethodDelete, "/videos/"+url.PathEscape(videoID)+"/like", viewerBody{viewerID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Comments(ctx context.Context, videoID string) ([]models.Comment, error) {
	var out []models.Comment
	err := c.do(ctx, "client/Comments", http.MethodGet, "/videos/"+url.PathEscape(videoID)+"/comments", nil, &out)
	return out, err
}

func (c *Client) CreateComment(ctx context.Context, videoID string, in CommentInput) (*models.Comment, error) {
	var out models.Comment
	if err := c.do(ctx, "client/CreateComment", http.MethodPost, "/videos/"+url.PathEscape(videoID)+"/comments", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LikeComment — пустой viewerID даёт «сырой» инкремент на сервере.
func (c *Client) LikeComment(ctx context.Context, commentID, viewerID string) (*models.Comment, error) {
	var out models.Comment
	if err := c.do(ctx, "client/LikeComment", http.MethodPost, "/comments/"+url.PathEscape(commentID)+"/like", viewerBody{viewerID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UnlikeComment(ctx context.Context, commentID, viewerID string) (*models.Comment, error) {
	var out models.Comment
	if err := c.do(ctx, "client/UnlikeComment", http.MethodDelete, "/comments/"+url.PathEscape(commentID)+"/like", viewerBody{viewerID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Follow подписывает followerID на userID.
func (c *Client) Follow(ctx context.Context, userID, followerID string) (*models.Follow, error) {
	var out models.Follow
	if err := c.do(ctx, "client/Follow", http.MethodPost, "/users/"+url.PathEscape(userID)+"/follow", followBody{followerID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Unfollow удаляет подписку followerID на userID.
func (c *Client) Unfollow(ctx context.Context, userID, followerID string) error {
	var out struct {
		Success bool `json:"success"`
	}
	return c.do(ctx, "client/Unfollow", http.MethodDelete, "/users/"+url.PathEscape(userID)+"/follow", followBody{followerID}, &out)
}

// IsFollowing — подписан ли userID на targetUserID.
func (c *Client) IsFollowing(ctx context.Context, userID, targetUserID string) (bool, error) {
	var out struct {
		IsFollowing bool `json:"isFollowing"`
	}
	err := c.do(ctx, "client/IsFollowing", http.MethodGet,
		"/users/"+url.PathEscape(userID)+"/following/"+url.PathEscape(targetUserID), nil, &out)
	return out.IsFollowing, err
}

func (c *Client) Profile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var out models.UserProfile
	if err := c.do(ctx, "client/Profile", http.MethodGet, "/users/"+url.PathEscape(userID)+"/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func viewerQuery(viewerID string) string {
	if viewerID == "" {
		return ""
	}
	return "?viewerId=" + url.QueryEscape(viewerID)
}

// do выполняет запрос с таймаутом клиента и декодирует JSON-ответ в out.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	rid := requestID(ctx)
	start := time.Now()
	status := 0

	defer func() {
		log.From(ctx).Debug("http_call",
			slog.String("op", op),
			slog.String("request_id", rid),
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("dur", time.Since(start)),
		)
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(HeaderRequestID, rid)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		var env errorEnvelope
		if json.NewDecoder(resp.Body).Decode(&env) == nil {
			env.Error.Status = resp.StatusCode
			apiErr = &env.Error
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%s: %w", op, apiErr)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
		}
		return fmt.Errorf("%s: decode response: %w", op, err)
	}

	return nil
}
