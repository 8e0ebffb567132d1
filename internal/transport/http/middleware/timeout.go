package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/go-shortvideo-feed/pkg/log"
)

// Timeout ограничивает обработку запроса сроком d: более поздний дедлайн
// родителя урезается, более ранний остаётся. d <= 0 — без ограничения.
// Хендлер, вернувшийся по истёкшему дедлайну, отмечается в логе запроса;
// сам ответ 504 пишет apierrors.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))

			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				log.From(ctx).LogAttrs(ctx, slog.LevelWarn, "request deadline exceeded",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Duration("timeout", d),
				)
			}
		})
	}
}
