package main

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	grpc_adapter "github.com/JoeShih716/go-transfer-ledger/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/domain"
)

func parseAccountID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid account id %q", s)
	}
	return id, nil
}

type openResult struct {
	AccountID int64 `json:"account_id" yaml:"account_id"`
}

func newOpenCmd(a *app) *cobra.Command {
	var balance string

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a new account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opening *decimal.Decimal
			if balance != "" {
				amount, err := domain.ParseAmount(balance)
				if err != nil {
					return err
				}
				opening = &amount
			}

			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()
			id, err := a.client.OpenAccount(ctx, opening)
			if err != nil {
				return fmt.Errorf("failed to open account: %w", err)
			}

			a.success("Account #%d opened", id)
			return a.render(openResult{AccountID: id}, func() pterm.TableData {
				return pterm.TableData{{"Account ID"}, {strconv.FormatInt(id, 10)}}
			})
		},
	}
	cmd.Flags().StringVarP(&balance, "balance", "b", "", "opening balance (server default when empty)")
	return cmd
}

func newTransferCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "transfer <sender> <receiver> <amount>",
		Short: "Transfer an amount between two accounts",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sender, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			receiver, err := parseAccountID(args[1])
			if err != nil {
				return err
			}
			amount, err := domain.ParseAmount(args[2])
			if err != nil {
				return err
			}

			if !yes {
				ok, err := a.confirm(fmt.Sprintf("Transfer %s from #%d to #%d?", domain.FormatAmount(amount), sender, receiver))
				if err != nil {
					return err
				}
				if !ok {
					pterm.Warning.WithWriter(a.out).Println("Transfer cancelled")
					return nil
				}
			}

			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()
			resp, err := a.client.Transfer(ctx, sender, receiver, amount)
			if err != nil {
				var insufficient *domain.InsufficientFundsError
				if errors.As(err, &insufficient) {
					return fmt.Errorf("transfer %s failed: %w", insufficient.TransactionID, domain.ErrInsufficientFunds)
				}
				return fmt.Errorf("transfer failed: %w", err)
			}

			a.success("Transfer %s committed", resp.TransactionID)
			return a.render(resp, func() pterm.TableData {
				return pterm.TableData{
					{"Transaction ID", "New Sender Balance"},
					{resp.TransactionID, resp.NewSenderBalance},
				}
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

type balanceResult struct {
	AccountID int64  `json:"account_id" yaml:"account_id"`
	Balance   string `json:"balance" yaml:"balance"`
}

func newBalanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account>",
		Short: "Show the balance of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()
			balance, err := a.client.GetBalance(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get balance: %w", err)
			}

			res := balanceResult{AccountID: id, Balance: domain.FormatAmount(balance)}
			return a.render(res, func() pterm.TableData {
				return pterm.TableData{
					{"Account ID", "Balance"},
					{strconv.FormatInt(id, 10), res.Balance},
				}
			})
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <account>",
		Short: "List transfer attempts involving an account, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			if limit < 0 || limit > math.MaxInt32 {
				return fmt.Errorf("limit must be between 0 and %d, got %d", math.MaxInt32, limit)
			}

			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()
			records, err := a.client.GetHistory(ctx, id, limit)
			if err != nil {
				return fmt.Errorf("failed to get history: %w", err)
			}

			if len(records) == 0 && a.output() == "table" {
				pterm.Info.WithWriter(a.out).Println("No transfers found")
				return nil
			}
			return a.render(records, func() pterm.TableData {
				return historyTable(id, records)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum number of records (server default when 0)")
	return cmd
}

func historyTable(accountID int64, records []grpc_adapter.AuditRecord) pterm.TableData {
	data := pterm.TableData{{"Time", "Transaction ID", "Direction", "Counterparty", "Amount", "Status", "Reason"}}
	for _, rec := range records {
		direction, counterparty := "out", rec.ReceiverID
		if rec.ReceiverID == accountID {
			direction, counterparty = "in", rec.SenderID
		}
		data = append(data, []string{
			rec.CreatedAt,
			rec.TransactionID,
			direction,
			"#" + strconv.FormatInt(counterparty, 10),
			rec.Amount,
			rec.Status,
			rec.ErrorReason,
		})
	}
	return data
}
