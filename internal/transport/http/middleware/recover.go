package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/pribylovaa/go-shortvideo-feed/internal/service"
	"github.com/pribylovaa/go-shortvideo-feed/internal/transport/http/apierrors"
	"github.com/pribylovaa/go-shortvideo-feed/pkg/log"
)

// Recover превращает панику хендлера в 500/internal в формате apierrors.
// Текст паники и стек пишутся только в лог. http.ErrAbortHandler пробрасывается
// дальше. Если ответ уже начат, статус не переписывается.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := wrap(w)

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				log.From(r.Context()).LogAttrs(r.Context(), slog.LevelError, "handler panic",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("reason", rec),
					slog.String("stack", string(debug.Stack())),
				)

				if !sw.started() {
					apierrors.WriteError(sw, r, service.ErrInternal)
				}
			}()

			next.ServeHTTP(sw, r)
		})
	}
}
