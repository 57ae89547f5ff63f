package grpc

import (
	"context"

	gogrpc "google.golang.org/grpc"
)

// ServiceName 完整的 gRPC 服務名稱
const ServiceName = "ledger.v1.LedgerService"

const (
	methodOpenAccount = "/" + ServiceName + "/OpenAccount"
	methodTransfer    = "/" + ServiceName + "/Transfer"
	methodGetBalance  = "/" + ServiceName + "/GetBalance"
	methodGetHistory  = "/" + ServiceName + "/GetHistory"
)

// LedgerServiceServer LedgerService 的伺服器端介面
type LedgerServiceServer interface {
	OpenAccount(context.Context, *OpenAccountRequest) (*OpenAccountResponse, error)
	Transfer(context.Context, *TransferRequest) (*TransferResponse, error)
	GetBalance(context.Context, *GetBalanceRequest) (*GetBalanceResponse, error)
	GetHistory(context.Context, *GetHistoryRequest) (*GetHistoryResponse, error)
}

// RegisterLedgerServiceServer 將實作註冊到 gRPC Server
func RegisterLedgerServiceServer(s gogrpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerServiceDesc, srv)
}

// LedgerServiceDesc 手寫的 service descriptor，訊息以 JSON codec 編碼
var LedgerServiceDesc = gogrpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []gogrpc.MethodDesc{
		{MethodName: "OpenAccount", Handler: openAccountHandler},
		{MethodName: "Transfer", Handler: transferHandler},
		{MethodName: "GetBalance", Handler: getBalanceHandler},
		{MethodName: "GetHistory", Handler: getHistoryHandler},
	},
	Streams:  []gogrpc.StreamDesc{},
	Metadata: "ledger/v1/ledger.json",
}

func openAccountHandler(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
	in := new(OpenAccountRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerServiceServer).OpenAccount(ctx, in)
	}
	info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: methodOpenAccount}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LedgerServiceServer).OpenAccount(ctx, req.(*OpenAccountRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func transferHandler(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
	in := new(TransferRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerServiceServer).Transfer(ctx, in)
	}
	info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: methodTransfer}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LedgerServiceServer).Transfer(ctx, req.(*TransferRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getBalanceHandler(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
	in := new(GetBalanceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerServiceServer).GetBalance(ctx, in)
	}
	info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: methodGetBalance}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LedgerServiceServer).GetBalance(ctx, req.(*GetBalanceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getHistoryHandler(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
	in := new(GetHistoryRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerServiceServer).GetHistory(ctx, in)
	}
	info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: methodGetHistory}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LedgerServiceServer).GetHistory(ctx, req.(*GetHistoryRequest))
	}
	return interceptor(ctx, in, info, handler)
}
