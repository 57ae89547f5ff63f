package grpc

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/usecase"
)

type GrpcServer struct {
	core           *usecase.CoreUseCase
	openingBalance decimal.Decimal
}

// NewGrpcServer
//
// 參數:
//
//	core: 核心用例
//	openingBalance: OpenAccount 未指定金額時使用的開戶金額
func NewGrpcServer(core *usecase.CoreUseCase, openingBalance decimal.Decimal) *GrpcServer {
	return &GrpcServer{
		core:           core,
		openingBalance: openingBalance,
	}
}

// Register 註冊 LedgerService、health 與 reflection，回傳的 health.Server 由呼叫端切換狀態
func Register(s *gogrpc.Server, srv *GrpcServer) *health.Server {
	RegisterLedgerServiceServer(s, srv)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, healthServer)

	reflection.Register(s) // 方便 gRPC Client 測試 (如 grpcurl)
	return healthServer
}

func (s *GrpcServer) OpenAccount(ctx context.Context, req *OpenAccountRequest) (*OpenAccountResponse, error) {
	balance := s.openingBalance
	if req.OpeningBalance != "" {
		var err error
		if balance, err = domain.ParseAmount(req.OpeningBalance); err != nil {
			return nil, toStatus(err)
		}
	}

	id, err := s.core.OpenAccount(ctx, balance)
	if err != nil {
		return nil, toStatus(err)
	}
	return &OpenAccountResponse{AccountID: id}, nil
}

func (s *GrpcServer) Transfer(ctx context.Context, req *TransferRequest) (*TransferResponse, error) {
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		return nil, toStatus(err)
	}

	result, err := s.core.Transfer(ctx, req.SenderID, req.ReceiverID, amount)
	if err != nil {
		return nil, toStatus(err)
	}
	return &TransferResponse{
		TransactionID:    result.TransactionID.String(),
		NewSenderBalance: domain.FormatAmount(result.NewSenderBalance),
	}, nil
}

func (s *GrpcServer) GetBalance(ctx context.Context, req *GetBalanceRequest) (*GetBalanceResponse, error) {
	balance, err := s.core.GetAccountBalance(ctx, req.AccountID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GetBalanceResponse{
		AccountID: req.AccountID,
		Balance:   domain.FormatAmount(balance),
	}, nil
}

func (s *GrpcServer) GetHistory(ctx context.Context, req *GetHistoryRequest) (*GetHistoryResponse, error) {
	records, err := s.core.GetHistory(ctx, req.AccountID, int(req.Limit))
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]AuditRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, fromDomainRecord(rec))
	}
	return &GetHistoryResponse{Records: out}, nil
}

func fromDomainRecord(rec domain.AuditRecord) AuditRecord {
	return AuditRecord{
		TransactionID: rec.TransactionID.String(),
		Sequence:      rec.Sequence,
		SenderID:      rec.SenderID,
		ReceiverID:    rec.ReceiverID,
		Amount:        domain.FormatAmount(rec.Amount),
		Status:        string(rec.Status),
		ErrorReason:   rec.ErrorReason,
		CreatedAt:     rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		Checksum:      rec.Checksum,
	}
}

var _ LedgerServiceServer = (*GrpcServer)(nil)
