package chainmanager

import (
	"sort"

	commonerrors "github.com/ClipFinance/swap-router/common/errors"
	"github.com/ClipFinance/swap-router/common/types"
	"github.com/pkg/errors"
)

// chainRegistry is immutable after Build, so it needs no locking.
type chainRegistry struct {
	byName  map[string]*types.ChainConfig
	byID    map[uint64]*types.ChainConfig
	ordered []*types.ChainConfig
}

// Get returns a copy of the chain registered under name.
func (r *chainRegistry) Get(name string) (*types.ChainConfig, error) {
	config, ok := r.byName[normalizeName(name)]
	if !ok {
		return nil, errors.Wrapf(commonerrors.ErrChainNotFound, "chain %q", name)
	}
	copied := *config
	return &copied, nil
}

// GetByID returns a copy of the chain registered under chainID.
func (r *chainRegistry) GetByID(chainID uint64) (*types.ChainConfig, error) {
	if chainID == 0 {
		return nil, commonerrors.ErrInvalidChainID
	}
	config, ok := r.byID[chainID]
	if !ok {
		return nil, errors.Wrapf(commonerrors.ErrChainNotFound, "chain id %d", chainID)
	}
	copied := *config
	return &copied, nil
}

// Chains returns copies of all chains ordered by chain id.
func (r *chainRegistry) Chains() []*types.ChainConfig {
	out := make([]*types.ChainConfig, 0, len(r.ordered))
	for _, config := range r.ordered {
		copied := *config
		out = append(out, &copied)
	}
	return out
}

func (r *chainRegistry) sort() {
	sort.Slice(r.ordered, func(i, j int) bool {
		return r.ordered[i].ChainID < r.ordered[j].ChainID
	})
}
