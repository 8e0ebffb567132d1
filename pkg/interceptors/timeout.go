// interceptors содержит unary-интерсепторы ops gRPC-сервера feed-service
// (health и reflection).
package interceptors

import (
	"context"
	"time"

	"google.golang.org/grpc"
)

// WithTimeout навешивает таймаут d на контекст вызова, если у него нет дедлайна.
//
// d <= 0 или уже заданный дедлайн -> handler вызывается с исходным контекстом.
// По истечении таймаута handler получает context.DeadlineExceeded,
// gRPC-рантайм отдаёт клиенту codes.DeadlineExceeded.
func WithTimeout(d time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if d <= 0 {
			return handler(ctx, req)
		}
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}

		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		return handler(ctx, req)
	}
}
