package grpc

import (
	"context"
	"log/slog"
	"time"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// RequestIDKey 追蹤請求用的 metadata key
const RequestIDKey = "x-request-id"

// UnaryLoggingInterceptor 記錄每個 unary 呼叫的 method、status code 與耗時
func UnaryLoggingInterceptor(logger *slog.Logger) gogrpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *gogrpc.UnaryServerInfo, handler gogrpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		attrs := []any{
			slog.String("method", info.FullMethod),
			slog.String("code", code.String()),
			slog.Duration("latency", time.Since(start)),
		}
		if id := requestID(ctx); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}

		switch code {
		case codes.OK:
			logger.Info("rpc", attrs...)
		case codes.Internal, codes.Unavailable:
			logger.Error("rpc", append(attrs, slog.Any("error", err))...)
		default:
			logger.Warn("rpc", append(attrs, slog.Any("error", err))...)
		}
		return resp, err
	}
}

func requestID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(RequestIDKey); len(v) > 0 {
		return v[0]
	}
	return ""
}
