package grpc

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/domain"
)

// ErrorDomain ErrorInfo.Domain
const ErrorDomain = "ledger.v1"

// ErrorInfo.Reason
const (
	ReasonInvalidAmount     = "INVALID_AMOUNT"
	ReasonSelfTransfer      = "SELF_TRANSFER"
	ReasonAccountNotFound   = "ACCOUNT_NOT_FOUND"
	ReasonInsufficientFunds = "INSUFFICIENT_FUNDS"
	ReasonStorageFailure    = "STORAGE_FAILURE"
)

// toStatus 將帳務錯誤轉成 gRPC status，並以 ErrorInfo 帶上可程式判斷的原因
func toStatus(err error) error {
	var (
		notFound     *domain.AccountNotFoundError
		insufficient *domain.InsufficientFundsError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, domain.ErrInvalidAmount):
		return withInfo(codes.InvalidArgument, err.Error(), ReasonInvalidAmount, nil)
	case errors.Is(err, domain.ErrSelfTransfer):
		return withInfo(codes.InvalidArgument, err.Error(), ReasonSelfTransfer, nil)
	case errors.As(err, &notFound):
		return withInfo(codes.NotFound, err.Error(), ReasonAccountNotFound, map[string]string{
			"account_id": strconv.FormatInt(notFound.AccountID, 10),
			"role":       string(notFound.Role),
		})
	case errors.Is(err, domain.ErrAccountNotFound):
		return withInfo(codes.NotFound, err.Error(), ReasonAccountNotFound, nil)
	case errors.As(err, &insufficient):
		return withInfo(codes.FailedPrecondition, err.Error(), ReasonInsufficientFunds, map[string]string{
			"transaction_id": insufficient.TransactionID.String(),
		})
	case errors.Is(err, domain.ErrStorageFailure):
		// 不對外暴露底層錯誤
		return withInfo(codes.Unavailable, domain.ErrStorageFailure.Error(), ReasonStorageFailure, nil)
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func withInfo(code codes.Code, msg, reason string, metadata map[string]string) error {
	st := status.New(code, msg)
	detailed, err := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   reason,
		Domain:   ErrorDomain,
		Metadata: metadata,
	})
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}

// FromStatus 將伺服器回傳的 gRPC 錯誤轉回帳務錯誤，讓呼叫端可以用 errors.Is / errors.As 判斷
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	var info *errdetails.ErrorInfo
	for _, d := range st.Details() {
		if ei, ok := d.(*errdetails.ErrorInfo); ok && ei.GetDomain() == ErrorDomain {
			info = ei
			break
		}
	}

	switch st.Code() {
	case codes.InvalidArgument:
		if info != nil && info.GetReason() == ReasonSelfTransfer {
			return domain.ErrSelfTransfer
		}
		if info != nil && info.GetReason() == ReasonInvalidAmount {
			return domain.ErrInvalidAmount
		}
	case codes.NotFound:
		if info == nil {
			return domain.ErrAccountNotFound
		}
		id, _ := strconv.ParseInt(info.GetMetadata()["account_id"], 10, 64)
		return &domain.AccountNotFoundError{AccountID: id, Role: domain.AccountRole(info.GetMetadata()["role"])}
	case codes.FailedPrecondition:
		if info != nil && info.GetReason() == ReasonInsufficientFunds {
			txID, _ := uuid.Parse(info.GetMetadata()["transaction_id"])
			return &domain.InsufficientFundsError{TransactionID: txID}
		}
	case codes.Unavailable:
		return &domain.StorageError{Op: "rpc", Err: err}
	case codes.DeadlineExceeded:
		return &domain.StorageError{Op: "rpc", Err: context.DeadlineExceeded}
	}
	return err
}
