package client

import (
	"context"

	"github.com/google/uuid"
)

// HeaderRequestID — заголовок трассировки, который сервер возвращает в request_id ошибок.
const HeaderRequestID = "X-Request-Id"

// userAgent исходящих вызовов клиента.
const userAgent = "go-shortvideo-feed-client"

type requestIDKey struct{}

// WithRequestID задаёт X-Request-Id для вызовов клиента с этим контекстом.
// Без него каждый вызов получает новый UUID.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

func requestID(ctx context.Context) string {
	if rid, _ := ctx.Value(requestIDKey{}).(string); rid != "" {
		return rid
	}

	return uuid.NewString()
}
