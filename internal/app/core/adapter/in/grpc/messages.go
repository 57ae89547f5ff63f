package grpc

// 金額一律以十進位字串傳遞，避免浮點誤差

type OpenAccountRequest struct {
	// 空字串表示使用伺服器設定的開戶金額
	OpeningBalance string `json:"opening_balance,omitempty"`
}

type OpenAccountResponse struct {
	AccountID int64 `json:"account_id"`
}

type TransferRequest struct {
	SenderID   int64  `json:"sender_id"`
	ReceiverID int64  `json:"receiver_id"`
	Amount     string `json:"amount"`
}

type TransferResponse struct {
	TransactionID    string `json:"transaction_id" yaml:"transaction_id"`
	NewSenderBalance string `json:"new_sender_balance" yaml:"new_sender_balance"`
}

type GetBalanceRequest struct {
	AccountID int64 `json:"account_id"`
}

type GetBalanceResponse struct {
	AccountID int64  `json:"account_id"`
	Balance   string `json:"balance"`
}

type GetHistoryRequest struct {
	AccountID int64 `json:"account_id"`
	// 0 表示使用伺服器預設
	Limit int32 `json:"limit,omitempty"`
}

type GetHistoryResponse struct {
	Records []AuditRecord `json:"records"`
}

// AuditRecord 稽核紀錄的傳輸格式
type AuditRecord struct {
	TransactionID string `json:"transaction_id" yaml:"transaction_id"`
	Sequence      uint64 `json:"sequence" yaml:"sequence"`
	SenderID      int64  `json:"sender_id" yaml:"sender_id"`
	ReceiverID    int64  `json:"receiver_id" yaml:"receiver_id"`
	Amount        string `json:"amount" yaml:"amount"`
	Status        string `json:"status" yaml:"status"`
	ErrorReason   string `json:"error_reason,omitempty" yaml:"error_reason,omitempty"`
	CreatedAt     string `json:"created_at" yaml:"created_at"`
	Checksum      string `json:"checksum" yaml:"checksum"`
}
