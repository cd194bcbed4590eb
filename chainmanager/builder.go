package chainmanager

import (
	"strings"

	commonerrors "github.com/ClipFinance/swap-router/common/errors"
	"github.com/ClipFinance/swap-router/common/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// RegistryBuilder is a builder pattern implementation for the chain registry.
// It collects chain configurations and validates them once in Build.
type RegistryBuilder struct {
	chains []types.ChainConfig // Chain configurations in insertion order.
}

// NewRegistryBuilder creates a new registry builder instance.
//
// Returns:
// - *RegistryBuilder: a new RegistryBuilder instance.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{}
}

// WithChain adds a chain configuration. The configuration is copied.
//
// Parameters:
// - config: the chain configuration.
//
// Returns:
// - *RegistryBuilder: the updated RegistryBuilder instance.
func (b *RegistryBuilder) WithChain(config types.ChainConfig) *RegistryBuilder {
	b.chains = append(b.chains, config)
	return b
}

// WithChains adds several chain configurations.
//
// Parameters:
// - configs: the chain configurations.
//
// Returns:
// - *RegistryBuilder: the updated RegistryBuilder instance.
func (b *RegistryBuilder) WithChains(configs ...types.ChainConfig) *RegistryBuilder {
	b.chains = append(b.chains, configs...)
	return b
}

// WithRpcUrl sets the RPC endpoint of an already added chain. Names match case-insensitively
// and unknown names are ignored.
//
// Parameters:
// - name: the chain name.
// - rpcUrl: the RPC endpoint.
//
// Returns:
// - *RegistryBuilder: the updated RegistryBuilder instance.
func (b *RegistryBuilder) WithRpcUrl(name, rpcUrl string) *RegistryBuilder {
	name = normalizeName(name)
	for i := range b.chains {
		if normalizeName(b.chains[i].Name) == name {
			b.chains[i].RpcUrl = rpcUrl
		}
	}
	return b
}

// Build validates the collected configurations and creates a read-only registry.
//
// Returns:
// - types.ChainRegistry: the registry.
// - error: ErrInvalidConfig or ErrChainExists when a configuration is rejected.
func (b *RegistryBuilder) Build() (types.ChainRegistry, error) {
	registry := &chainRegistry{
		byName: make(map[string]*types.ChainConfig, len(b.chains)),
		byID:   make(map[uint64]*types.ChainConfig, len(b.chains)),
	}

	for i := range b.chains {
		config := b.chains[i]
		if err := validate(&config); err != nil {
			return nil, errors.Wrapf(err, "chain %q", config.Name)
		}

		if _, exists := registry.byName[config.Name]; exists {
			return nil, errors.Wrapf(commonerrors.ErrChainExists, "chain %q", config.Name)
		}
		if _, exists := registry.byID[config.ChainID]; exists {
			return nil, errors.Wrapf(commonerrors.ErrChainExists, "chain id %d", config.ChainID)
		}

		registry.byName[config.Name] = &config
		registry.byID[config.ChainID] = &config
		registry.ordered = append(registry.ordered, &config)
	}

	registry.sort()
	return registry, nil
}

func validate(config *types.ChainConfig) error {
	config.Name = normalizeName(config.Name)
	if config.Name == "" {
		return errors.Wrap(commonerrors.ErrInvalidConfig, "empty name")
	}
	if config.ChainID == 0 {
		return commonerrors.ErrInvalidChainID
	}
	if !common.IsHexAddress(config.Spender) {
		return errors.Wrap(commonerrors.ErrInvalidConfig, "invalid spender address")
	}
	if config.NativeToken == "" {
		config.NativeToken = NativeToken
	}
	if !common.IsHexAddress(config.NativeToken) {
		return errors.Wrap(commonerrors.ErrInvalidConfig, "invalid native token address")
	}
	if config.FeeModel == "" {
		config.FeeModel = types.FeeModelStandard
	}
	return nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
