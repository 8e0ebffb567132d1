package interceptors

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/go-shortvideo-feed/pkg/log"
)

// MetadataRequestID — ключ metadata с идентификатором запроса
// (gRPC-аналог HTTP-заголовка X-Request-Id).
const MetadataRequestID = "x-request-id"

// healthPrefix — методы grpc.health.v1, которые дёргают пробы оркестратора.
const healthPrefix = "/grpc.health.v1.Health/"

// UnaryLogging кладёт в контекст логгер с request_id, method и peer
// и после вызова пишет одну запись msg="grpc" с кодом и длительностью.
//
// request_id берётся из metadata x-request-id, иначе генерируется UUID.
// Успешные health-пробы пишутся уровнем Debug, ошибки уровнем Warn.
func UnaryLogging(base *slog.Logger) grpc.UnaryServerInterceptor {
	if base == nil {
		base = slog.Default()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		lg := base.With(
			slog.String("request_id", requestID(ctx)),
			slog.String("method", info.FullMethod),
			slog.String("peer", peerAddr(ctx)),
		)

		resp, err := handler(log.Into(ctx, lg), req)

		code := status.Code(err)
		lvl := slog.LevelInfo
		switch {
		case code != codes.OK:
			lvl = slog.LevelWarn
		case strings.HasPrefix(info.FullMethod, healthPrefix):
			lvl = slog.LevelDebug
		}

		lg.Log(ctx, lvl, "grpc",
			slog.String("code", code.String()),
			slog.Duration("dur", time.Since(start)),
		)

		return resp, err
	}
}

func requestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(MetadataRequestID); len(v) > 0 && v[0] != "" {
			return v[0]
		}
	}

	return uuid.NewString()
}

func peerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p != nil && p.Addr != nil {
		return p.Addr.String()
	}

	return "-"
}
