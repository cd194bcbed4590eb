package types

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// FeeModel describes how a chain charges for a transaction beyond execution gas.
type FeeModel string

const (
	// FeeModelStandard is used by chains where the execution gas estimate is the full cost.
	FeeModelStandard FeeModel = "STANDARD"
	// FeeModelArbitrum is used by rollups that add an L1 data-posting component to the gas limit.
	FeeModelArbitrum FeeModel = "ARBITRUM"
)

// String converts FeeModel to string representation.
func (m FeeModel) String() string {
	return string(m)
}

// ParseFeeModel converts string to FeeModel representation. Unknown values map to FeeModelStandard.
func ParseFeeModel(s string) FeeModel {
	if s == FeeModelArbitrum.String() {
		return FeeModelArbitrum
	}
	return FeeModelStandard
}

// ChainConfig holds the aggregator-facing configuration of a single chain.
//
// Fields:
// - Name: the chain name used by callers (e.g. "ethereum", "arbitrum").
// - ChainID: the numeric chain identifier used in aggregator URL paths.
// - Spender: the router contract that must be approved to spend the source token.
// - NativeToken: the address the aggregator expects for the chain's native currency.
// - FusionEnabled: whether the intent-based protocol may serve requests on this chain.
// - FeeModel: the chain's extra fee model, if any.
// - RpcUrl: the RPC endpoint used by the bundled wallet implementation.
// - TxType: the transaction type the bundled wallet sends (0 legacy, 2 EIP-1559).
type ChainConfig struct {
	Name          string
	ChainID       uint64
	Spender       string
	NativeToken   string
	FusionEnabled bool
	FeeModel      FeeModel
	RpcUrl        string
	TxType        uint64
}

// TxRequest is a transaction the core asks a Signer to estimate or send.
type TxRequest struct {
	From     common.Address
	To       common.Address
	Data     []byte
	Value    *big.Int
	GasLimit uint64
}

// Signer provides the wallet operations needed to execute a Classic swap.
type Signer interface {
	// Address returns the account the signer sends transactions from.
	Address() common.Address

	// EstimateGas estimates the gas required for a transaction.
	//
	// Parameters:
	// - ctx: the context for managing the request.
	// - tx: the transaction to estimate; GasLimit is ignored.
	//
	// Returns:
	// - uint64: the estimated gas amount.
	// - error: an error if the estimation fails, usually because the transaction would revert.
	EstimateGas(ctx context.Context, tx *TxRequest) (uint64, error)

	// SendTransaction signs and broadcasts a transaction with the given gas limit.
	//
	// Parameters:
	// - ctx: the context for managing the request.
	// - tx: the transaction to send.
	//
	// Returns:
	// - string: the transaction hash.
	// - error: an error if signing or broadcasting fails.
	SendTransaction(ctx context.Context, tx *TxRequest) (string, error)
}

// TypedDataSigner signs EIP-712 structured data.
type TypedDataSigner interface {
	// SignTypedData returns a 65-byte recoverable signature laid out as r || s || v.
	// v may be either 0/1 or 27/28.
	SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error)
}

// Wallet combines both signing capabilities so a single value can execute either protocol.
type Wallet interface {
	Signer
	TypedDataSigner
}

// FeeAdjustor recomputes a gas estimate for chains with an additional fee model.
type FeeAdjustor interface {
	// AdjustGas returns gas adjusted for the chain's extra fee model.
	//
	// Parameters:
	// - ctx: the context for managing the request.
	// - chain: the chain the transaction will be sent on.
	// - to: the destination of the built transaction.
	// - data: the transaction call data.
	// - gas: the base gas estimate reported by the aggregator.
	//
	// Returns:
	// - uint64: the adjusted gas estimate.
	// - error: an error if the adjustment cannot be computed.
	AdjustGas(ctx context.Context, chain *ChainConfig, to common.Address, data []byte, gas uint64) (uint64, error)
}

// ChainRegistry is the read-only chain configuration injected into the router.
type ChainRegistry interface {
	// Get returns the chain registered under name.
	Get(name string) (*ChainConfig, error)
	// GetByID returns the chain registered under the numeric chain id.
	GetByID(chainID uint64) (*ChainConfig, error)
	// Chains returns all registered chains ordered by chain id.
	Chains() []*ChainConfig
}
