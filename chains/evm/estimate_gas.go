package evm

import (
	"context"
	"math/big"

	"github.com/ClipFinance/swap-router/common/types"
	"github.com/ethereum/go-ethereum"
	"github.com/pkg/errors"
)

// GasPriceData represents the gas price data for EIP-1559 transactions.
type GasPriceData struct {
	MaxFeePerGas         *big.Int // The maximum fee per gas.
	MaxPriorityFeePerGas *big.Int // The maximum priority fee per gas.
	IsEIP1559            bool     // Indicates if the transaction is EIP-1559.
}

// EstimateGas estimates the gas required for a transaction sent from the wallet.
//
// Parameters:
// - ctx: the context for managing the request.
// - tx: the transaction; its GasLimit is ignored.
//
// Returns:
// - uint64: the estimated gas required for the transaction.
// - error: the node error, typically a revert reason.
func (w *Wallet) EstimateGas(ctx context.Context, tx *types.TxRequest) (uint64, error) {
	client, err := w.getClient()
	if err != nil {
		return 0, err
	}

	to := tx.To
	return client.EstimateGas(ctx, ethereum.CallMsg{
		From:  w.signer.Address(),
		To:    &to,
		Value: tx.Value,
		Data:  tx.Data,
	})
}

// getEIP1559GasPrice retrieves the gas price data for EIP-1559 transactions.
//
// Parameters:
// - ctx: the context for managing the request.
// - client: the node client.
//
// Returns:
// - *GasPriceData: the gas price data for EIP-1559 transactions.
// - error: an error if there is an issue retrieving the latest header.
func (w *Wallet) getEIP1559GasPrice(ctx context.Context, client rpcClient) (*GasPriceData, error) {
	suggestedTip, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		w.logger.WithError(err).Error("Failed to get suggested gas tip")
		suggestedTip = big.NewInt(1)
	}

	if suggestedTip.Sign() == 0 {
		suggestedTip = big.NewInt(1)
	}

	header, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		w.logger.WithField("chain", w.config.Name).WithError(err).Warn("Failed to get header by number")
		return nil, errors.Wrap(err, "failed to get header by number")
	}

	baseFee := header.BaseFee
	if baseFee == nil {
		w.logger.WithField("chain", w.config.Name).Warn("Base fee is nil")
		return nil, errors.New("base fee is nil")
	}

	baseFeeBuf := new(big.Int).Mul(baseFee, big.NewInt(130))
	baseFeeBuf = baseFeeBuf.Div(baseFeeBuf, big.NewInt(100))
	maxFeePerGas := new(big.Int).Add(baseFeeBuf, suggestedTip)

	if maxFeePerGas.Cmp(suggestedTip) <= 0 {
		maxFeePerGas = new(big.Int).Add(suggestedTip, baseFee)
	}

	return &GasPriceData{
		MaxFeePerGas:         maxFeePerGas,
		MaxPriorityFeePerGas: suggestedTip,
		IsEIP1559:            true,
	}, nil
}

// getLegacyGasPrice returns the suggested gas price raised by half.
func (w *Wallet) getLegacyGasPrice(ctx context.Context, client rpcClient) (*big.Int, error) {
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get gas price")
	}

	gasPrice = new(big.Int).Mul(gasPrice, big.NewInt(150))
	return gasPrice.Div(gasPrice, big.NewInt(100)), nil
}
