package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// HTTPObserver — приёмник HTTP-метрик (реализуется internal/metrics).
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, dur time.Duration)
}

// Metrics фиксирует метод, шаблон маршрута chi, статус и длительность запроса.
// Шаблон маршрута (а не сырой путь) ограничивает кардинальность меток.
// obs == nil делает мидлвар no-op.
func Metrics(obs HTTPObserver) Middleware {
	return func(next http.Handler) http.Handler {
		if obs == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := wrap(w)
			start := time.Now()
			next.ServeHTTP(sw, r)

			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			obs.ObserveHTTP(r.Method, route, sw.code(), time.Since(start))
		})
	}
}
