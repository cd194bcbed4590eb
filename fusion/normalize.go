package fusion

import (
	"encoding/json"
	"math/big"

	commonerrors "github.com/ClipFinance/swap-router/common/errors"
	"github.com/ClipFinance/swap-router/common/types"
	"github.com/ClipFinance/swap-router/preset"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// CheckEligibility rejects quotes the provider does not recommend and quotes whose reported
// slippage exceeds the requester's tolerance. A response without the suggested flag or
// without a slippage figure is treated as eligible.
//
// Parameters:
// - resp: the decoded quote response.
// - tolerancePercent: the requester's slippage tolerance in percent.
//
// Returns:
// - error: a *errors.RouteError of kind KindIneligibleRoute, or nil.
func CheckEligibility(resp *QuoteResponse, tolerancePercent decimal.Decimal) error {
	if resp.Suggested != nil && !*resp.Suggested {
		return commonerrors.NewIneligibleRouteError(types.Fusion, "quote not suggested by provider")
	}
	if resp.Slippage != nil && resp.Slippage.GreaterThan(tolerancePercent) {
		return commonerrors.NewIneligibleRouteError(types.Fusion,
			"provider slippage "+resp.Slippage.String()+"% exceeds tolerance "+tolerancePercent.String()+"%")
	}
	return nil
}

// Normalize converts a Fusion quote response into the canonical quote.
//
// The recommended preset supplies the auction bounds; the returned amount is resolved
// conservatively between them. The executable payload is omitted for price-only requests.
//
// Parameters:
// - chain: the chain the quote was requested on.
// - params: the token parameters of the request.
// - resp: the decoded quote response.
// - raw: the undecoded quote response.
// - dstDecimals: the decimal count of the destination token.
// - executable: whether the requester can sign an order.
//
// Returns:
// - *types.Quote: the canonical quote.
// - error: a *errors.RouteError of kind KindQuoteParse for malformed payloads.
func Normalize(chain *types.ChainConfig, params types.FusionParams, resp *QuoteResponse, raw json.RawMessage, dstDecimals int32, executable bool) (*types.Quote, error) {
	if resp == nil {
		return nil, parseError("body", nil)
	}

	name := resp.Recommended()
	if name == "" {
		return nil, parseError("recommended_preset", nil)
	}
	selected, ok := resp.Presets[name]
	if !ok {
		return nil, parseError("presets."+name, nil)
	}

	settled, err := parseAmount(resp.ToTokenAmount)
	if err != nil {
		return nil, parseError("toTokenAmount", err)
	}
	start, err := parseAmount(selected.AuctionStartAmount)
	if err != nil {
		return nil, parseError("presets."+name+".auctionStartAmount", err)
	}
	end, err := parseAmount(selected.AuctionEndAmount)
	if err != nil {
		return nil, parseError("presets."+name+".auctionEndAmount", err)
	}

	amount, err := preset.Resolve(start, end, settled, dstDecimals)
	if err != nil {
		return nil, parseError("presets."+name, err)
	}

	var payload *types.FusionQuote
	if executable {
		if resp.QuoteID == "" {
			return nil, parseError("quoteId", nil)
		}
		payload = &types.FusionQuote{
			ChainID:    chain.ChainID,
			PresetName: name,
			Preset: types.AuctionPreset{
				StartAmount: start,
				EndAmount:   end,
				QuoteID:     resp.QuoteID,
			},
			Params:   params,
			Response: append(json.RawMessage(nil), raw...),
		}
	}

	gas := uint64(0)
	return &types.Quote{
		Protocol:             types.Fusion,
		Chain:                chain.Name,
		AmountReturned:       amount,
		EstimatedGas:         &gas,
		TokenApprovalAddress: chain.Spender,
		Logo:                 types.ProviderLogo,
		Fusion:               payload,
	}, nil
}

func parseError(field string, err error) error {
	return commonerrors.NewQuoteParseError(types.Fusion, commonerrors.StepQuote, field, err)
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("missing amount")
	}
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.Errorf("malformed amount %q", s)
	}
	return amount, nil
}
