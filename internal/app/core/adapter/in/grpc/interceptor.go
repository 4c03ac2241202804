package grpc

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
)

// CallerMetadataKey 傳輸層驗證後放入的呼叫者身分
const CallerMetadataKey = "x-caller-id"

type callerKey struct{}

// WithCaller 在 outgoing context 附上呼叫者身分 (客戶端使用)
func WithCaller(ctx context.Context, id domain.Identity) context.Context {
	return metadata.AppendToOutgoingContext(ctx, CallerMetadataKey, string(id))
}

// CallerFromContext 取出 CallerInterceptor 放入的身分
func CallerFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(callerKey{}).(domain.Identity)
	return id, ok && id != ""
}

// CallerInterceptor 從 metadata 取出呼叫者身分放進 context
func CallerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get(CallerMetadataKey); len(values) > 0 && values[0] != "" {
				ctx = context.WithValue(ctx, callerKey{}, domain.Identity(values[0]))
			}
		}
		return handler(ctx, req)
	}
}

// LoggingInterceptor 記錄每個請求的方法、狀態碼與耗時
func LoggingInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		ev := logger.Debug()
		if err != nil {
			ev = logger.Info().Err(err)
		}
		caller, _ := CallerFromContext(ctx)
		ev.Str("method", info.FullMethod).
			Str("caller", string(caller)).
			Str("code", status.Code(err).String()).
			Dur("elapsed", time.Since(start)).
			Msg("grpc request")
		return resp, err
	}
}
