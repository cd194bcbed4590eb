package classic

import (
	"context"
	"math/big"

	commonerrors "github.com/ClipFinance/swap-router/common/errors"
	"github.com/ClipFinance/swap-router/common/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// gasMultiplierNum and gasMultiplierDen apply the +20% safety margin to the estimate.
	gasMultiplierNum = 12
	gasMultiplierDen = 10
	// gasBuffer covers two ERC-20 transfers the destination contract may perform.
	gasBuffer = 86000
)

// Executor sends the transaction built by a Classic quote.
type Executor struct {
	logger *logrus.Logger
}

// NewExecutor creates a Classic swap executor.
func NewExecutor(logger *logrus.Logger) *Executor {
	return &Executor{logger: logger}
}

// Execute estimates gas for the quote's transaction, inflates it and sends it.
//
// Parameters:
// - ctx: the context for managing the request.
// - quote: a Classic quote with an executable payload.
// - signer: the wallet that estimates and sends the transaction.
//
// Returns:
// - *types.ExecutionResult: the transaction hash.
// - error: a *errors.RouteError of kind KindGasEstimation or KindSubmission, or ErrNotExecutable.
func (e *Executor) Execute(ctx context.Context, quote *types.Quote, signer types.Signer) (*types.ExecutionResult, error) {
	if quote == nil || quote.Protocol != types.Classic {
		return nil, commonerrors.ErrUnsupportedQuote
	}
	if quote.Classic == nil {
		return nil, commonerrors.ErrNotExecutable
	}
	if signer == nil {
		return nil, commonerrors.ErrSignerNotProvided
	}

	tx, err := TxRequest(quote.Classic.Tx)
	if err != nil {
		return nil, commonerrors.NewQuoteParseError(types.Classic, commonerrors.StepSwap, "tx", err)
	}

	logger := e.logger.WithFields(logrus.Fields{
		"chain":    quote.Chain,
		"protocol": types.Classic,
		"to":       tx.To.Hex(),
	})

	estimatedGas, err := signer.EstimateGas(ctx, tx)
	if err != nil {
		logger.WithError(err).Error("Failed to estimate gas")
		return nil, commonerrors.NewGasEstimationError(err)
	}

	gasLimit, err := GasLimit(estimatedGas)
	if err != nil {
		logger.WithError(err).WithField("estimated_gas", estimatedGas).Error("Gas limit out of range")
		return nil, commonerrors.NewGasEstimationError(err)
	}
	tx.GasLimit = gasLimit

	hash, err := signer.SendTransaction(ctx, tx)
	if err != nil {
		logger.WithError(err).Error("Failed to send transaction")
		return nil, commonerrors.NewSubmissionError(types.Classic, commonerrors.StepSend, err)
	}

	logger.WithFields(logrus.Fields{
		"hash":      hash,
		"gas_limit": tx.GasLimit,
	}).Info("Classic swap sent")

	return &types.ExecutionResult{
		Protocol: types.Classic,
		Hash:     hash,
	}, nil
}

// ErrGasLimitOverflow is returned by GasLimit when the inflated limit does not fit in 64 bits.
var ErrGasLimitOverflow = errors.New("gas limit overflows uint64")

// GasLimit returns ceil(estimatedGas * 1.2) plus the fixed buffer.
func GasLimit(estimatedGas uint64) (uint64, error) {
	limit := new(big.Int).SetUint64(estimatedGas)
	limit.Mul(limit, big.NewInt(gasMultiplierNum))
	limit.Add(limit, big.NewInt(gasMultiplierDen-1))
	limit.Div(limit, big.NewInt(gasMultiplierDen))
	limit.Add(limit, big.NewInt(gasBuffer))
	if !limit.IsUint64() {
		return 0, errors.Wrapf(ErrGasLimitOverflow, "estimated gas %d", estimatedGas)
	}
	return limit.Uint64(), nil
}

// TxRequest converts the built transaction into a signer request.
func TxRequest(tx types.ClassicTx) (*types.TxRequest, error) {
	if !common.IsHexAddress(tx.From) {
		return nil, errors.Errorf("invalid from address %q", tx.From)
	}
	if !common.IsHexAddress(tx.To) {
		return nil, errors.Errorf("invalid to address %q", tx.To)
	}

	data, err := hexutil.Decode(tx.Data)
	if err != nil {
		return nil, errors.Wrap(err, "invalid data")
	}

	value := new(big.Int)
	if tx.Value != "" {
		if _, ok := value.SetString(tx.Value, 0); !ok {
			return nil, errors.Errorf("invalid value %q", tx.Value)
		}
	}

	return &types.TxRequest{
		From:  common.HexToAddress(tx.From),
		To:    common.HexToAddress(tx.To),
		Data:  data,
		Value: value,
	}, nil
}
