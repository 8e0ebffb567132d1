// Package middleware — net/http мидлвары REST API ленты: Recover, RequestID,
// Logging, Metrics и Timeout. Порядок сборки задаёт transporthttp.NewRouter.
package middleware

import (
	"net/http"
	"slices"
)

// Middleware — net/http мидлвар.
type Middleware func(http.Handler) http.Handler

// Chain оборачивает h так, что mws[0] получает запрос первым. nil пропускаются.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for _, mw := range slices.Backward(mws) {
		if mw != nil {
			h = mw(h)
		}
	}
	return h
}

// statusWriter запоминает первый статус и число записанных байт.
// Один экземпляр на запрос делят Recover, Logging и Metrics (см. wrap).
type statusWriter struct {
	http.ResponseWriter
	status int
	count  int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	n, err := w.ResponseWriter.Write(p)
	w.count += n
	return n, err
}

// Unwrap отдаёт исходный writer http.ResponseController-у (Flush, дедлайны записи).
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// started: заголовки уже ушли клиенту.
func (w *statusWriter) started() bool { return w.status != 0 }

// code — итоговый статус; хендлер без записи в ответ даёт 200.
func (w *statusWriter) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func wrap(w http.ResponseWriter) *statusWriter {
	if sw, ok := w.(*statusWriter); ok {
		return sw
	}
	return &statusWriter{ResponseWriter: w}
}
