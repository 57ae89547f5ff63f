package grpc

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// RequestIDHeader 伺服器端 log 會帶出的 metadata key
const RequestIDHeader = "x-request-id"

// RequestIDInterceptor 為沒有 request id 的呼叫補上一個新的 UUID
func RequestIDInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if md, ok := metadata.FromOutgoingContext(ctx); !ok || len(md.Get(RequestIDHeader)) == 0 {
			ctx = metadata.AppendToOutgoingContext(ctx, RequestIDHeader, uuid.NewString())
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
