package interceptors

import (
	"context"
	"log/slog"
	"runtime/debug"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/go-shortvideo-feed/pkg/log"
)

// Recover перехватывает паники обработчиков и отвечает codes.Internal
// без деталей. Паника пишется уровнем Error с методом и стеком.
//
// Логгер берётся из контекста (его кладёт UnaryLogging); если там пусто,
// используется base, а при base == nil — slog.Default().
func Recover(base *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			lg := log.From(ctx)
			if lg == slog.Default() && base != nil {
				lg = base
			}
			lg.Error("grpc panic recovered",
				slog.String("method", info.FullMethod),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)

			resp, err = nil, status.Error(codes.Internal, "internal server error")
		}()

		return handler(ctx, req)
	}
}
