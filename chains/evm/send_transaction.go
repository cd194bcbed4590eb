package evm

import (
	"context"
	"math/big"

	"github.com/ClipFinance/swap-router/common/types"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SendTransaction signs and broadcasts tx from the wallet.
//
// Parameters:
// - ctx: the context for managing the request.
// - tx: the transaction; a zero GasLimit is replaced by the node estimate.
//
// Returns:
// - string: the transaction hash.
// - error: an error if preparing, signing or broadcasting fails.
func (w *Wallet) SendTransaction(ctx context.Context, tx *types.TxRequest) (string, error) {
	if tx.From != w.signer.Address() {
		return "", errors.Errorf("transaction sender %s does not match wallet %s", tx.From.Hex(), w.signer.Address().Hex())
	}

	client, err := w.getClient()
	if err != nil {
		return "", err
	}

	nonce, err := client.PendingNonceAt(ctx, w.signer.Address())
	if err != nil {
		return "", errors.Wrap(err, "failed to get nonce")
	}

	prepared, err := w.prepareTransaction(ctx, client, nonce, tx)
	if err != nil {
		return "", err
	}

	signed, err := w.signAndSendTransaction(ctx, client, prepared)
	if err != nil {
		return "", err
	}

	w.logger.WithFields(logrus.Fields{
		"chain":     w.config.Name,
		"hash":      signed.Hash().Hex(),
		"nonce":     nonce,
		"gas_limit": signed.Gas(),
	}).Info("Transaction sent")

	return signed.Hash().Hex(), nil
}

// prepareTransaction prepares a transaction of the chain's configured type.
//
// Parameters:
// - ctx: the context for managing the request.
// - client: the node client.
// - nonce: the nonce for the transaction.
// - tx: the transaction request.
//
// Returns:
// - *ethtypes.Transaction: the prepared transaction.
// - error: an error if the gas estimation or gas price retrieval fails.
func (w *Wallet) prepareTransaction(ctx context.Context, client rpcClient, nonce uint64, tx *types.TxRequest) (*ethtypes.Transaction, error) {
	value := tx.Value
	if value == nil {
		value = big.NewInt(0)
	}

	gasLimit := tx.GasLimit
	if gasLimit == 0 {
		estimatedGas, err := w.EstimateGas(ctx, tx)
		if err != nil {
			w.logger.WithField("chain", w.config.Name).WithError(err).Warn("Failed to estimate gas")
			return nil, errors.Wrap(err, "failed to estimate gas")
		}
		gasLimit = estimatedGas * 11 / 10
	}

	to := tx.To

	if w.config.TxType == TxTypeEIP1559 {
		gasPriceData, err := w.getEIP1559GasPrice(ctx, client)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get EIP-1559 gas price")
		}

		return ethtypes.NewTx(&ethtypes.DynamicFeeTx{
			ChainID:   new(big.Int).SetUint64(w.config.ChainID),
			Nonce:     nonce,
			GasFeeCap: gasPriceData.MaxFeePerGas,
			GasTipCap: gasPriceData.MaxPriorityFeePerGas,
			Gas:       gasLimit,
			To:        &to,
			Value:     value,
			Data:      tx.Data,
		}), nil
	}

	gasPrice, err := w.getLegacyGasPrice(ctx, client)
	if err != nil {
		return nil, err
	}

	return ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    value,
		Data:     tx.Data,
	}), nil
}

// signAndSendTransaction signs and sends the prepared transaction.
//
// Parameters:
// - ctx: the context for managing the request.
// - client: the node client.
// - tx: the prepared transaction to be signed and sent.
//
// Returns:
// - *ethtypes.Transaction: the signed and sent transaction.
// - error: an error if the signing or sending fails.
func (w *Wallet) signAndSendTransaction(ctx context.Context, client rpcClient, tx *ethtypes.Transaction) (*ethtypes.Transaction, error) {
	chainID := new(big.Int).SetUint64(w.config.ChainID)

	signedTx, err := w.signer.SignTx(tx, chainID)
	if err != nil {
		w.logger.WithError(err).Error("Failed to sign transaction")
		return nil, errors.Wrap(err, "failed to sign transaction")
	}

	if err = client.SendTransaction(ctx, signedTx); err != nil {
		w.logger.WithError(err).Error("Failed to send transaction")
		return nil, errors.Wrap(err, "failed to send transaction")
	}

	return signedTx, nil
}
