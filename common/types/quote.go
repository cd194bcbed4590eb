package types

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/shopspring/decimal"
)

// ProviderLogo is the display logo attached to every quote.
const ProviderLogo = "https://icons.llamao.fi/icons/protocols/1inch-network?w=48&q=75"

// ZeroAddress is the sentinel callers use for a chain's native currency and for price-only requests.
var ZeroAddress = common.Address{}

// SwapRequest is an immutable request for the best executable swap of a token pair.
//
// Fields:
// - Chain: the chain name registered in the ChainRegistry.
// - FromToken: the source token; ZeroAddress denotes the native currency.
// - ToToken: the destination token; ZeroAddress denotes the native currency.
// - Amount: the source amount in token base units.
// - UserAddress: the requester; ZeroAddress requests a price-only quote.
// - Slippage: the slippage tolerance as a fraction (0.01 is 1%).
// - ToTokenDecimals: the decimal count of the destination token.
type SwapRequest struct {
	Chain           string
	FromToken       common.Address
	ToToken         common.Address
	Amount          *big.Int
	UserAddress     common.Address
	Slippage        decimal.Decimal
	ToTokenDecimals int32
}

// IsPriceOnly reports whether the request has no requester and therefore cannot be executed.
func (r SwapRequest) IsPriceOnly() bool {
	return r.UserAddress == ZeroAddress
}

// SlippagePercent returns the tolerance in percent, the unit the aggregator APIs use.
func (r SwapRequest) SlippagePercent() decimal.Decimal {
	return r.Slippage.Shift(2)
}

// ClassicTx is the transaction built by the Classic swap endpoint.
type ClassicTx struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	Gas      uint64 `json:"gas,omitempty"`
	GasPrice string `json:"gasPrice,omitempty"`
}

// ClassicQuote is the executable payload of a Classic quote.
type ClassicQuote struct {
	DstAmount string    `json:"dstAmount"`
	Tx        ClassicTx `json:"tx"`
}

// AuctionPreset is the Dutch-auction price range of a Fusion quote.
// StartAmount is not assumed to be greater than EndAmount.
type AuctionPreset struct {
	StartAmount *big.Int
	EndAmount   *big.Int
	QuoteID     string
}

// FusionParams are the token parameters the Fusion quote was requested with.
type FusionParams struct {
	FromTokenAddress string `json:"fromTokenAddress"`
	ToTokenAddress   string `json:"toTokenAddress"`
	Amount           string `json:"amount"`
	WalletAddress    string `json:"walletAddress"`
}

// FusionQuote is the executable payload of a Fusion quote.
//
// Fields:
// - ChainID: the numeric chain id the quote was issued for.
// - PresetName: the name of the preset selected by the provider.
// - Preset: the auction bounds of the selected preset.
// - Params: the token parameters of the quote request.
// - Response: the quote response as returned by the provider, posted back at order build time.
type FusionQuote struct {
	ChainID    uint64
	PresetName string
	Preset     AuctionPreset
	Params     FusionParams
	Response   json.RawMessage
}

// Quote is the canonical result of quoting. Protocol selects which of Classic and Fusion is set.
// Classic is nil for price-only Classic quotes.
type Quote struct {
	Protocol             Protocol
	Chain                string
	AmountReturned       *big.Int
	EstimatedGas         *uint64
	TokenApprovalAddress string
	Logo                 string
	Classic              *ClassicQuote
	Fusion               *FusionQuote
}

// Executable reports whether the quote carries a payload that can be executed.
func (q *Quote) Executable() bool {
	if q == nil {
		return false
	}
	switch q.Protocol {
	case Classic:
		return q.Classic != nil
	case Fusion:
		return q.Fusion != nil
	default:
		return false
	}
}

// TxView is the display view of a quote's transaction. Empty fields are omitted.
type TxView struct {
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
	Data  string `json:"data,omitempty"`
	Value string `json:"value,omitempty"`
}

// Order is a Fusion order built by the provider.
//
// Fields:
// - TypedData: the EIP-712 payload to be signed.
// - OrderHash: the provider-computed order hash.
// - Extension: auxiliary order data excluded from the signed struct.
// - QuoteID: the quote the order was built from.
// - Signature: the 0x-prefixed r || s || v signature; empty until signed.
type Order struct {
	TypedData apitypes.TypedData
	OrderHash string
	Extension string
	QuoteID   string
	Signature string
}

// ExecutionResult is the outcome of a swap.
//
// Fields:
// - Protocol: the protocol that executed the swap.
// - Hash: the transaction hash for Classic, the order hash for Fusion.
// - OrderHash: the Fusion order hash usable for status polling; empty for Classic.
// - RelayAcknowledgement: the relay's raw submission response; empty for Classic.
type ExecutionResult struct {
	Protocol             Protocol
	Hash                 string
	OrderHash            string
	RelayAcknowledgement json.RawMessage
}
