package dbconfig

import (
	"context"

	"github.com/ClipFinance/swap-router/chainmanager"
	"github.com/ClipFinance/swap-router/common/types"
	"github.com/ClipFinance/swap-router/dbconfig/models"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

// postgresDriver is the database/sql driver registered by lib/pq.
const postgresDriver = "postgres"

type DBConfig struct {
	dbConnStr  string
	driverName string
}

// NewDBConfig creates a new DBConfig instance with the provided connection string.
//
// Parameters:
// - connStr: the database connection string.
//
// Returns:
// - *DBConfig: a pointer to the newly created DBConfig instance.
// - error: an error if the connection string is empty.
func NewDBConfig(connStr string) (*DBConfig, error) {
	if connStr == "" {
		return nil, errors.New("empty database connection string")
	}
	return &DBConfig{
		dbConnStr:  connStr,
		driverName: postgresDriver,
	}, nil
}

// LoadRegistry reads the active chains and their newest active RPC and builds a chain registry.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - types.ChainRegistry: the registry built from the database rows.
// - error: an error if the database operation fails or a row is invalid.
func (r *DBConfig) LoadRegistry(ctx context.Context) (types.ChainRegistry, error) {
	chains, err := r.GetChains(ctx, true)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load chains")
	}

	builder := chainmanager.NewRegistryBuilder()
	for _, chain := range chains {
		config := ToChainConfig(chain)

		rpcs, err := r.GetRPCsByChainID(ctx, chain.ChainID, true)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load rpcs for chain %d", chain.ChainID)
		}
		if len(rpcs) > 0 {
			config.RpcUrl = rpcs[0].URL
		}

		builder.WithChain(config)
	}

	return builder.Build()
}

// ToChainConfig converts a chain row into a chain configuration.
func ToChainConfig(chain models.Chain) types.ChainConfig {
	return types.ChainConfig{
		Name:          chain.Name,
		ChainID:       chain.ChainID,
		Spender:       chain.Spender,
		NativeToken:   chain.NativeToken,
		FusionEnabled: chain.FusionEnabled,
		FeeModel:      types.ParseFeeModel(chain.FeeModel),
		TxType:        chain.TxType,
	}
}
