package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-shortvideo-feed/internal/service"
	"github.com/pribylovaa/go-shortvideo-feed/internal/transport/http/handlers"
	"github.com/pribylovaa/go-shortvideo-feed/internal/transport/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string                  // например, "/api"; если пустой — роуты регистрируются на корне.
	Metrics  middleware.HTTPObserver // может быть nil
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // ловим паники
		middleware.RequestID(),          // X-Request-Id до логирования
		middleware.Logging(opts.Logger), // request-scoped логгер в контексте
		middleware.Metrics(opts.Metrics),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	h := handlers.New(svc)

	if opts.BasePath != "" && opts.BasePath != "/" {
		sub := chi.NewRouter()
		registerRoutes(sub, h)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers) {
	// videos
	r.Get("/videos", h.ListVideos)
	r.Post("/videos", h.CreateVideo)
	r.Get("/videos/{videoId}", h.GetVideo)
	r.Post("/videos/{videoId}/like", h.LikeVideo)
	r.Delete("/videos/{videoId}/like", h.UnlikeVideo)

	// comments
	r.Get("/videos/{videoId}/comments", h.ListComments)
	r.Post("/videos/{videoId}/comments", h.CreateComment)
	r.Post("/comments/{commentId}/like", h.LikeComment)
	r.Delete("/comments/{commentId}/like", h.UnlikeComment)

	// users
	r.Post("/users", h.CreateUser)
	r.Get("/users", h.FindUser)
	r.Get("/users/{userId}", h.GetUser)

	// profiles
	r.Get("/users/{userId}/profile", h.GetProfile)
	r.Post("/users/{userId}/profile", h.CreateProfile)
	r.Patch("/users/{userId}/profile", h.UpdateProfile)
	r.Post("/users/{userId}/avatar/presign", h.AvatarPresign)
	r.Post("/users/{userId}/avatar/confirm", h.AvatarConfirm)

	// follows
	r.Post("/users/{userId}/follow", h.Follow)
	r.Delete("/users/{userId}/follow", h.Unfollow)
	r.Get("/users/{userId}/following/{targetUserId}", h.IsFollowing)
}
