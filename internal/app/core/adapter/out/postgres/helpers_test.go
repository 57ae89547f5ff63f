package postgres

import (
	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/ledgertest"
)

func transfer(from, to int64, amount string) domain.Transfer {
	return domain.Transfer{SenderID: from, ReceiverID: to, Amount: ledgertest.Dec(amount)}
}
