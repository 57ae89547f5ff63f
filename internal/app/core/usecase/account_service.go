package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/domain"
)

// AccountService 唯讀查詢 (餘額、歷史)，另外提供開戶
type AccountService struct {
	ledger       Ledger
	logger       *slog.Logger
	historyLimit int
}

func NewAccountService(ledger Ledger, logger *slog.Logger, historyLimit int) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		ledger:       ledger,
		logger:       logger,
		historyLimit: historyLimit,
	}
}

// GetBalance 取得帳戶餘額
func (s *AccountService) GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	balance, err := s.ledger.GetBalance(ctx, accountID)
	if err != nil {
		return decimal.Zero, classifyRead(accountID, "get balance", err)
	}
	return balance, nil
}

// GetHistory 帳戶的稽核紀錄，由新到舊
// limit <= 0 時使用預設上限 (預設上限為 0 代表不限)
func (s *AccountService) GetHistory(ctx context.Context, accountID int64, limit int) ([]domain.AuditRecord, error) {
	if _, err := s.ledger.GetBalance(ctx, accountID); err != nil {
		return nil, classifyRead(accountID, "get history", err)
	}
	if limit <= 0 {
		limit = s.historyLimit
	}
	records, err := s.ledger.ListHistory(ctx, accountID, limit)
	if err != nil {
		return nil, classifyRead(accountID, "list history", err)
	}
	return records, nil
}

// OpenAccount 開戶
func (s *AccountService) OpenAccount(ctx context.Context, openingBalance decimal.Decimal) (int64, error) {
	if err := domain.ValidateOpeningBalance(openingBalance); err != nil {
		return 0, err
	}
	id, err := s.ledger.CreateAccount(ctx, openingBalance)
	if err != nil {
		err = domain.NewStorageError("create account", err)
		s.logger.Error("open account failed", slog.Any("error", err))
		return 0, err
	}
	s.logger.Info("account opened",
		slog.Int64("account_id", id),
		slog.String("opening_balance", domain.FormatAmount(openingBalance)),
	)
	return id, nil
}

func classifyRead(accountID int64, op string, err error) error {
	if errors.Is(err, domain.ErrAccountNotFound) {
		var nf *domain.AccountNotFoundError
		if errors.As(err, &nf) {
			return err
		}
		return &domain.AccountNotFoundError{AccountID: accountID, Role: domain.RoleAccount}
	}
	return domain.NewStorageError(op, err)
}
