package classic

import (
	"context"
	"math/big"
	"strconv"

	commonerrors "github.com/ClipFinance/swap-router/common/errors"
	"github.com/ClipFinance/swap-router/common/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// Normalize converts a Classic quote result into the canonical quote.
//
// The executable leg's destination amount wins over the price leg's. Gas comes from the
// price leg and defaults to zero. On chains with the Arbitrum fee model the gas is
// recomputed by adjustor from the built transaction; a price-only quote on such a chain
// has unknown gas.
//
// Parameters:
// - ctx: the context for managing the request.
// - chain: the chain the quote was requested on.
// - result: both legs of the quote.
// - adjustor: the fee adjustor, required only for chains with an extra fee model.
//
// Returns:
// - *types.Quote: the canonical quote.
// - error: a *errors.RouteError of kind KindQuoteParse for malformed payloads.
func Normalize(ctx context.Context, chain *types.ChainConfig, result *QuoteResult, adjustor types.FeeAdjustor) (*types.Quote, error) {
	if result == nil || result.Price == nil {
		return nil, commonerrors.NewQuoteParseError(types.Classic, commonerrors.StepQuote, "dstAmount", nil)
	}

	amountField, step := result.Price.DstAmount, commonerrors.StepQuote
	if result.Swap != nil {
		amountField, step = result.Swap.DstAmount, commonerrors.StepSwap
	}
	amount, err := parseAmount(amountField)
	if err != nil {
		return nil, commonerrors.NewQuoteParseError(types.Classic, step, "dstAmount", err)
	}

	gas, err := parseGas(result.Price.Gas.String())
	if err != nil {
		return nil, commonerrors.NewQuoteParseError(types.Classic, commonerrors.StepQuote, "gas", err)
	}

	var to common.Address
	var data []byte
	if result.Swap != nil {
		if !common.IsHexAddress(result.Swap.Tx.To) {
			return nil, commonerrors.NewQuoteParseError(types.Classic, commonerrors.StepSwap, "tx.to", nil)
		}
		to = common.HexToAddress(result.Swap.Tx.To)
		if data, err = hexutil.Decode(result.Swap.Tx.Data); err != nil {
			return nil, commonerrors.NewQuoteParseError(types.Classic, commonerrors.StepSwap, "tx.data", err)
		}
	}

	estimatedGas := &gas
	if chain.FeeModel == types.FeeModelArbitrum {
		estimatedGas = nil
		if result.Swap != nil {
			if adjustor == nil {
				return nil, errors.Wrapf(commonerrors.ErrInvalidConfig, "no fee adjustor for chain %q", chain.Name)
			}
			adjusted, err := adjustor.AdjustGas(ctx, chain, to, data, gas)
			if err != nil {
				return nil, commonerrors.NewTransportError(types.Classic, commonerrors.StepQuote, errors.Wrap(err, "failed to adjust gas"))
			}
			estimatedGas = &adjusted
		}
	}

	var raw *types.ClassicQuote
	if result.Swap != nil {
		copied := *result.Swap
		raw = &copied
	}

	return &types.Quote{
		Protocol:             types.Classic,
		Chain:                chain.Name,
		AmountReturned:       amount,
		EstimatedGas:         estimatedGas,
		TokenApprovalAddress: chain.Spender,
		Logo:                 types.ProviderLogo,
		Classic:              raw,
	}, nil
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("missing amount")
	}
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.Errorf("malformed amount %q", s)
	}
	if amount.Sign() < 0 {
		return nil, errors.Errorf("negative amount %q", s)
	}
	return amount, nil
}

func parseGas(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}
