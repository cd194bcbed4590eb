package chainmanager

import "github.com/ClipFinance/swap-router/common/types"

const (
	// NativeToken is the address the aggregator APIs use for a chain's native currency.
	NativeToken = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

	// routerV6 is the aggregation router spender deployed on most chains.
	routerV6 = "0x111111125421cA6dc452d289314280a0f8842A65"
	// routerV6ZkSync is the aggregation router spender on zkSync Era.
	routerV6ZkSync = "0x6fd4383cB451173D5f9304F041C7BCBf27d561fF"
)

// DefaultChains returns the chains the aggregator supports.
func DefaultChains() []types.ChainConfig {
	return []types.ChainConfig{
		{Name: "ethereum", ChainID: 1, Spender: routerV6, FusionEnabled: true, TxType: 2},
		{Name: "optimism", ChainID: 10, Spender: routerV6, FusionEnabled: true, TxType: 2},
		{Name: "bsc", ChainID: 56, Spender: routerV6, FusionEnabled: true},
		{Name: "gnosis", ChainID: 100, Spender: routerV6, FusionEnabled: true, TxType: 2},
		{Name: "polygon", ChainID: 137, Spender: routerV6, FusionEnabled: true, TxType: 2},
		{Name: "fantom", ChainID: 250, Spender: routerV6, FusionEnabled: true},
		{Name: "zksync", ChainID: 324, Spender: routerV6ZkSync},
		{Name: "klaytn", ChainID: 8217, Spender: routerV6},
		{Name: "base", ChainID: 8453, Spender: routerV6, FusionEnabled: true, TxType: 2},
		{Name: "arbitrum", ChainID: 42161, Spender: routerV6, FusionEnabled: true, FeeModel: types.FeeModelArbitrum, TxType: 2},
		{Name: "avax", ChainID: 43114, Spender: routerV6, FusionEnabled: true, TxType: 2},
		{Name: "aurora", ChainID: 1313161554, Spender: routerV6},
	}
}

// NewDefaultRegistry builds a registry from DefaultChains.
func NewDefaultRegistry() (types.ChainRegistry, error) {
	return NewRegistryBuilder().WithChains(DefaultChains()...).Build()
}
