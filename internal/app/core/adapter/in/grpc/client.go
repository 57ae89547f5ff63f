package grpc

import (
	"context"
	"math"

	"github.com/shopspring/decimal"
	gogrpc "google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/domain"
)

// Client LedgerService 的客戶端，錯誤已轉回帳務錯誤
type Client struct {
	conn gogrpc.ClientConnInterface
}

func NewClient(conn gogrpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	err := c.conn.Invoke(ctx, method, req, resp, gogrpc.CallContentSubtype(CodecName))
	return FromStatus(err)
}

// OpenAccount 開戶；openingBalance 為 nil 時使用伺服器預設金額
func (c *Client) OpenAccount(ctx context.Context, openingBalance *decimal.Decimal) (int64, error) {
	req := &OpenAccountRequest{}
	if openingBalance != nil {
		req.OpeningBalance = openingBalance.String()
	}
	resp := new(OpenAccountResponse)
	if err := c.invoke(ctx, methodOpenAccount, req, resp); err != nil {
		return 0, err
	}
	return resp.AccountID, nil
}

// Transfer 轉帳並回傳交易 ID 與 sender 新餘額
func (c *Client) Transfer(ctx context.Context, senderID, receiverID int64, amount decimal.Decimal) (*TransferResponse, error) {
	resp := new(TransferResponse)
	err := c.invoke(ctx, methodTransfer, &TransferRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     amount.String(),
	}, resp)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	resp := new(GetBalanceResponse)
	if err := c.invoke(ctx, methodGetBalance, &GetBalanceRequest{AccountID: accountID}, resp); err != nil {
		return decimal.Zero, err
	}
	return domain.ParseAmount(resp.Balance)
}

// GetHistory limit 超過 int32 時視為 math.MaxInt32，<= 0 使用服務端預設
func (c *Client) GetHistory(ctx context.Context, accountID int64, limit int) ([]AuditRecord, error) {
	if limit > math.MaxInt32 {
		limit = math.MaxInt32
	}
	resp := new(GetHistoryResponse)
	if err := c.invoke(ctx, methodGetHistory, &GetHistoryRequest{AccountID: accountID, Limit: int32(limit)}, resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// Ping 查詢 LedgerService 的 health 狀態
func (c *Client) Ping(ctx context.Context) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx,
		&healthpb.HealthCheckRequest{Service: ServiceName},
		gogrpc.CallContentSubtype(CodecName),
	)
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}
