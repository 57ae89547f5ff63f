package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/JoeShih716/go-transfer-ledger/internal/app/core/domain"
)

type benchFlags struct {
	Sender      int64
	Receiver    int64
	Amount      string
	Count       int
	Concurrency int
}

type benchResult struct {
	Total        int64   `json:"total" yaml:"total"`
	Succeeded    int64   `json:"succeeded" yaml:"succeeded"`
	Insufficient int64   `json:"insufficient" yaml:"insufficient"`
	Failed       int64   `json:"failed" yaml:"failed"`
	Elapsed      string  `json:"elapsed" yaml:"elapsed"`
	TPS          float64 `json:"tps" yaml:"tps"`
}

func newBenchCmd(a *app) *cobra.Command {
	flags := &benchFlags{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Fire concurrent transfers and report throughput",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.Count <= 0 || flags.Concurrency <= 0 {
				return errors.New("count and concurrency must be positive")
			}
			amount, err := domain.ParseAmount(flags.Amount)
			if err != nil {
				return err
			}

			res := a.runBench(cmd.Context(), flags, func(ctx context.Context) error {
				_, err := a.client.Transfer(ctx, flags.Sender, flags.Receiver, amount)
				return err
			})
			return a.render(res, func() pterm.TableData {
				return pterm.TableData{
					{"Total", "Succeeded", "Insufficient", "Failed", "Elapsed", "TPS"},
					{
						strconv.FormatInt(res.Total, 10),
						strconv.FormatInt(res.Succeeded, 10),
						strconv.FormatInt(res.Insufficient, 10),
						strconv.FormatInt(res.Failed, 10),
						res.Elapsed,
						fmt.Sprintf("%.2f", res.TPS),
					},
				}
			})
		},
	}
	cmd.Flags().Int64Var(&flags.Sender, "sender", 1, "sender account id")
	cmd.Flags().Int64Var(&flags.Receiver, "receiver", 2, "receiver account id")
	cmd.Flags().StringVar(&flags.Amount, "amount", "0.01", "amount per transfer")
	cmd.Flags().IntVarP(&flags.Count, "count", "n", 1000, "number of transfers")
	cmd.Flags().IntVarP(&flags.Concurrency, "concurrency", "c", 50, "concurrent in-flight transfers")
	return cmd
}

func (a *app) runBench(ctx context.Context, flags *benchFlags, transfer func(context.Context) error) benchResult {
	var (
		wg           sync.WaitGroup
		succeeded    atomic.Int64
		insufficient atomic.Int64
		failed       atomic.Int64
	)
	sem := make(chan struct{}, flags.Concurrency)

	start := time.Now()
	for i := 0; i < flags.Count; i++ {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			reqCtx, cancel := a.requestContext(ctx)
			defer cancel()
			err := transfer(reqCtx)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, domain.ErrInsufficientFunds):
				insufficient.Add(1)
			default:
				failed.Add(1)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	return benchResult{
		Total:        int64(flags.Count),
		Succeeded:    succeeded.Load(),
		Insufficient: insufficient.Load(),
		Failed:       failed.Load(),
		Elapsed:      elapsed.Round(time.Millisecond).String(),
		TPS:          float64(flags.Count) / elapsed.Seconds(),
	}
}
