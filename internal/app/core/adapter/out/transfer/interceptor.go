package transfer

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// CallLogger 記錄每一次對外部轉帳服務的呼叫 (成功也記錄，方便對帳)
func CallLogger(logger zerolog.Logger) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)

		ev := logger.Info()
		if err != nil {
			ev = logger.Warn().Err(err)
		}
		ev.Str("method", method).
			Str("target", cc.Target()).
			Str("code", status.Code(err).String()).
			Dur("elapsed", time.Since(start)).
			Msg("transfer call")
		return err
	}
}
