package main

import (
	"context"
	"time"

	"github.com/ClipFinance/swap-router/chains/evm"
	"github.com/ClipFinance/swap-router/common/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// pendingOrderStatuses are the Fusion order statuses that may still change.
var pendingOrderStatuses = map[string]bool{
	"pending":          true,
	"partially-filled": true,
}

type swapView struct {
	Quote     quoteView `json:"quote"`
	Hash      string    `json:"hash"`
	OrderHash string    `json:"orderHash,omitempty"`
	Status    string    `json:"status,omitempty"`
	Block     uint64    `json:"block,omitempty"`
}

func newSwapCmd(load loader) *cobra.Command {
	var (
		flags         requestFlags
		wait          bool
		confirmations uint64
		interval      time.Duration
		timeout       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Quote a swap and execute it with the configured private key",
		Long: `Quote a swap for the wallet of the configured private key and execute it.

Classic quotes are sent as a transaction through the chain's RPC endpoint. Fusion
quotes are signed and submitted to the relayer; the returned hash is the order hash.
The source token allowance for the approval address must already be in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}
			if a.cfg.PrivateKey == "" {
				return errors.New("private_key is not configured")
			}

			chain, err := a.registry.Get(flags.chain)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			wallet, err := evm.NewWallet(ctx, chain, a.cfg.PrivateKey, a.logger)
			if err != nil {
				return err
			}
			defer wallet.Close()

			req, err := flags.request(wallet.Address())
			if err != nil {
				return err
			}

			quote, err := a.router.Route(ctx, req)
			if err != nil {
				return err
			}

			result, err := a.router.Execute(ctx, quote, wallet)
			if err != nil {
				return err
			}

			view := swapView{Quote: newQuoteView(quote), Hash: result.Hash, OrderHash: result.OrderHash}
			if wait {
				waitCtx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()
				if err := a.waitFor(waitCtx, wallet, result, confirmations, interval, &view); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}

	flags.register(cmd, false)
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the transaction receipt or a final order status")
	cmd.Flags().Uint64Var(&confirmations, "confirmations", 1, "Blocks required on top of the inclusion block")
	cmd.Flags().DurationVar(&interval, "interval", 3*time.Second, "Polling interval while waiting")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Maximum time to wait")
	return cmd
}

// waitFor polls the chain for a Classic receipt or the relayer for a Fusion order status.
func (a *app) waitFor(ctx context.Context, wallet *evm.Wallet, result *types.ExecutionResult, confirmations uint64, interval time.Duration, view *swapView) error {
	if result.Protocol == types.Classic {
		receipt, err := wallet.WaitReceipt(ctx, result.Hash, confirmations, interval)
		if err != nil {
			return err
		}
		view.Block = receipt.BlockNumber.Uint64()
		view.Status = "confirmed"
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		status, err := a.router.OrderStatus(ctx, wallet.Chain().Name, result.OrderHash)
		if err != nil {
			a.logger.WithError(err).WithField("order_hash", result.OrderHash).Warn("Failed to get order status")
		} else {
			view.Status = status.Status
			if !pendingOrderStatuses[status.Status] {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			a.logger.WithFields(logrus.Fields{
				"order_hash": result.OrderHash,
				"status":     view.Status,
			}).Warn("Stopped waiting for order")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
