package evm

import (
	"context"
	"strings"
	"sync"

	"github.com/ClipFinance/swap-router/common/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// nodeInterfaceABI is the gasEstimateComponents method of the Arbitrum NodeInterface precompile.
const nodeInterfaceABI = `[{
	"name": "gasEstimateComponents",
	"type": "function",
	"stateMutability": "payable",
	"inputs": [
		{"name": "to", "type": "address"},
		{"name": "contractCreation", "type": "bool"},
		{"name": "data", "type": "bytes"}
	],
	"outputs": [
		{"name": "gasEstimate", "type": "uint64"},
		{"name": "gasEstimateForL1", "type": "uint64"},
		{"name": "baseFee", "type": "uint256"},
		{"name": "l1BaseFeeEstimate", "type": "uint256"}
	]
}]`

const gasEstimateComponents = "gasEstimateComponents"

// NodeInterfaceAddress is the virtual contract Arbitrum nodes serve gas estimation helpers from.
var NodeInterfaceAddress = common.HexToAddress("0x00000000000000000000000000000000000000C8")

// CallerDialer opens a contract caller for an RPC endpoint.
type CallerDialer func(ctx context.Context, rpcUrl string) (ethereum.ContractCaller, error)

// ArbitrumFeeAdjustor adds the L1 data-posting component to gas estimates on chains
// with the Arbitrum fee model. Callers are created lazily per chain and reused.
type ArbitrumFeeAdjustor struct {
	abi    abi.ABI
	dial   CallerDialer
	logger *logrus.Logger

	callersMutex sync.Mutex
	callers      map[string]ethereum.ContractCaller
}

// NewArbitrumFeeAdjustor creates an adjustor that dials chain RPC endpoints with ethclient.
//
// Parameters:
// - logger: the logger for logging events.
//
// Returns:
// - *ArbitrumFeeAdjustor: the adjustor.
// - error: an error if the NodeInterface ABI cannot be parsed.
func NewArbitrumFeeAdjustor(logger *logrus.Logger) (*ArbitrumFeeAdjustor, error) {
	return NewArbitrumFeeAdjustorWithDialer(logger, func(ctx context.Context, rpcUrl string) (ethereum.ContractCaller, error) {
		client, err := ethclient.DialContext(ctx, rpcUrl)
		if err != nil {
			return nil, err
		}
		return client, nil
	})
}

// NewArbitrumFeeAdjustorWithDialer creates an adjustor that obtains callers from dial.
func NewArbitrumFeeAdjustorWithDialer(logger *logrus.Logger, dial CallerDialer) (*ArbitrumFeeAdjustor, error) {
	parsed, err := abi.JSON(strings.NewReader(nodeInterfaceABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse node interface ABI")
	}
	return &ArbitrumFeeAdjustor{
		abi:     parsed,
		dial:    dial,
		logger:  logger,
		callers: make(map[string]ethereum.ContractCaller),
	}, nil
}

// AdjustGas returns gas plus the L1 gas the chain charges for posting data to its parent chain.
// Chains with the standard fee model are returned unchanged.
//
// Parameters:
// - ctx: the context for managing the request.
// - chain: the chain the transaction is sent on.
// - to: the transaction destination.
// - data: the transaction calldata.
// - gas: the execution gas estimate.
//
// Returns:
// - uint64: the adjusted gas estimate.
// - error: an error if the NodeInterface call fails.
func (a *ArbitrumFeeAdjustor) AdjustGas(ctx context.Context, chain *types.ChainConfig, to common.Address, data []byte, gas uint64) (uint64, error) {
	if chain.FeeModel != types.FeeModelArbitrum {
		return gas, nil
	}

	caller, err := a.caller(ctx, chain)
	if err != nil {
		return 0, err
	}

	input, err := a.abi.Pack(gasEstimateComponents, to, false, data)
	if err != nil {
		return 0, errors.Wrap(err, "failed to pack gasEstimateComponents")
	}

	output, err := caller.CallContract(ctx, ethereum.CallMsg{To: &NodeInterfaceAddress, Data: input}, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to call gasEstimateComponents")
	}

	values, err := a.abi.Unpack(gasEstimateComponents, output)
	if err != nil {
		return 0, errors.Wrap(err, "failed to unpack gasEstimateComponents")
	}
	if len(values) != 4 {
		return 0, errors.Errorf("unexpected gasEstimateComponents output length %d", len(values))
	}
	l1Gas, ok := values[1].(uint64)
	if !ok {
		return 0, errors.New("unexpected gasEstimateForL1 type")
	}

	a.logger.WithFields(logrus.Fields{
		"chain":  chain.Name,
		"gas":    gas,
		"l1_gas": l1Gas,
	}).Debug("Applied L1 fee adjustment")

	return gas + l1Gas, nil
}

func (a *ArbitrumFeeAdjustor) caller(ctx context.Context, chain *types.ChainConfig) (ethereum.ContractCaller, error) {
	a.callersMutex.Lock()
	defer a.callersMutex.Unlock()

	if caller, ok := a.callers[chain.Name]; ok {
		return caller, nil
	}
	if chain.RpcUrl == "" {
		return nil, errors.Errorf("no rpc url configured for chain %q", chain.Name)
	}

	caller, err := a.dial(ctx, chain.RpcUrl)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial chain %q", chain.Name)
	}
	a.callers[chain.Name] = caller
	return caller, nil
}
