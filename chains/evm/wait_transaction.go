package evm

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// ErrTransactionReverted is returned by WaitReceipt for a mined transaction that failed.
var ErrTransactionReverted = errors.New("transaction reverted")

// WaitReceipt polls for the receipt of a sent transaction.
//
// Parameters:
// - ctx: the context bounding the wait.
// - hash: the transaction hash.
// - confirmations: the number of blocks required on top of the inclusion block.
// - interval: the polling interval.
//
// Returns:
// - *ethtypes.Receipt: the receipt once confirmed.
// - error: ErrTransactionReverted for failed transactions, ctx.Err() on timeout, or a node error.
func (w *Wallet) WaitReceipt(ctx context.Context, hash string, confirmations uint64, interval time.Duration) (*ethtypes.Receipt, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	txHash := common.HexToHash(hash)
	logger := w.logger.WithField("chain", w.config.Name).WithField("hash", hash)

	for {
		client, err := w.getClient()
		if err != nil {
			return nil, err
		}

		receipt, err := client.TransactionReceipt(ctx, txHash)
		switch {
		case err == nil:
			currentBlock, err := client.BlockNumber(ctx)
			if err != nil {
				return nil, errors.Wrap(err, "failed to get current block number")
			}
			if currentBlock >= receipt.BlockNumber.Uint64()+confirmations {
				if receipt.Status != ethtypes.ReceiptStatusSuccessful {
					logger.Warn("Transaction reverted")
					return receipt, ErrTransactionReverted
				}
				logger.WithField("block", receipt.BlockNumber.Uint64()).Info("Transaction confirmed")
				return receipt, nil
			}
		case !errors.Is(err, ethereum.NotFound):
			return nil, errors.Wrap(err, "failed to get transaction receipt")
		}

		select {
		case <-ctx.Done():
			logger.Error("WaitReceipt: context done")
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
