package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrInvalidAmount 金額格式錯誤 (非正數或小於最小單位)
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrSelfTransfer 不可轉帳給自己
	ErrSelfTransfer = errors.New("cannot transfer to the same account")

	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientFunds 餘額不足
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrStorageFailure 底層儲存失敗
	ErrStorageFailure = errors.New("storage failure")

	// ErrChecksumMismatch 稽核紀錄內容與 checksum 不符
	ErrChecksumMismatch = errors.New("audit record checksum mismatch")
)

// AccountRole 帳戶在請求中的角色，用於指出是哪一個帳戶不存在
type AccountRole string

const (
	RoleSender   AccountRole = "sender"
	RoleReceiver AccountRole = "receiver"
	RoleAccount  AccountRole = "account"
)

// AccountNotFoundError 指出不存在的帳戶
type AccountNotFoundError struct {
	AccountID int64
	Role      AccountRole
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("%s %d: %s", e.Role, e.AccountID, ErrAccountNotFound)
}

func (e *AccountNotFoundError) Unwrap() error {
	return ErrAccountNotFound
}

// InsufficientFundsError 餘額不足，TransactionID 指向已寫入的 failed 稽核紀錄
type InsufficientFundsError struct {
	TransactionID uuid.UUID
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%s (transaction %s)", ErrInsufficientFunds, e.TransactionID)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// StorageError 包裝底層儲存錯誤 (I/O、constraint、transaction abort)
// errors.Is(err, ErrStorageFailure) 為 true，Unwrap 可取得原始錯誤
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorageFailure, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorageFailure
}

// NewStorageError 將非帳務錯誤包裝為 StorageError，帳務錯誤原樣回傳
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsLedgerError(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsLedgerError 判斷 err 是否已屬於帳務錯誤分類
func IsLedgerError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrSelfTransfer) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrStorageFailure)
}
