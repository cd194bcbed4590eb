// Package evm provides a go-ethereum backed wallet and the Arbitrum fee adjustor used
// to execute swaps on EVM chains.
package evm

import (
	"context"
	"math/big"
	"sync"

	"github.com/ClipFinance/swap-router/chains/evm/signer"
	"github.com/ClipFinance/swap-router/common/types"
	"github.com/ClipFinance/swap-router/connectionmonitor"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// TxTypeLegacy represents the legacy transaction type.
	TxTypeLegacy = 0
	// TxTypeEIP1559 represents the EIP-1559 transaction type.
	TxTypeEIP1559 = 2
)

// rpcClient is the subset of the node API the wallet uses.
type rpcClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// Wallet signs and sends transactions and signs typed data on one EVM chain.
// It implements types.Wallet.
type Wallet struct {
	config *types.ChainConfig // Chain configuration.
	logger *logrus.Logger     // Logger for logging events.
	signer signer.Signer      // Signer for transactions and typed data.

	clientMutex sync.RWMutex // Mutex for client.
	client      rpcClient    // Node client.
	closeClient func()       // Closes the current client, nil for injected clients.

	monitorMutex sync.Mutex                          // Mutex for connection monitor.
	monitor      connectionmonitor.ConnectionMonitor // Connection monitor, nil for injected clients.
}

// NewWallet dials the chain's RPC endpoint and creates a wallet for privateKey.
// The connection is health-checked in the background until Close is called.
//
// Parameters:
// - ctx: the context bounding the connection monitor.
// - config: the chain configuration; RpcUrl is required.
// - privateKey: the hex encoded private key.
// - logger: the logger for logging events.
//
// Returns:
// - *Wallet: the wallet.
// - error: an error if the key is invalid or the endpoint cannot be dialed.
func NewWallet(ctx context.Context, config *types.ChainConfig, privateKey string, logger *logrus.Logger) (*Wallet, error) {
	if config.RpcUrl == "" {
		return nil, errors.Errorf("no rpc url configured for chain %q", config.Name)
	}

	s, err := parseSigner(privateKey)
	if err != nil {
		return nil, err
	}

	client, err := ethclient.DialContext(ctx, config.RpcUrl)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create client")
	}

	w := newWallet(config, client, s, logger)
	w.closeClient = client.Close

	w.monitorMutex.Lock()
	w.monitor = connectionmonitor.NewConnectionMonitor(&rpcConnection{wallet: w}, logger, config.Name)
	w.monitorMutex.Unlock()
	if err := w.monitor.Start(ctx); err != nil {
		w.Close()
		return nil, errors.Wrap(err, "failed to start connection monitor")
	}

	return w, nil
}

func newWallet(config *types.ChainConfig, client rpcClient, s signer.Signer, logger *logrus.Logger) *Wallet {
	return &Wallet{
		config: config,
		logger: logger,
		signer: s,
		client: client,
	}
}

func parseSigner(privateKey string) (signer.Signer, error) {
	if len(privateKey) > 1 && privateKey[:2] == "0x" {
		privateKey = privateKey[2:]
	}
	privKey, err := crypto.HexToECDSA(privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse private key")
	}
	s, err := signer.NewSigner(privKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create signer")
	}
	return s, nil
}

// Close stops the connection monitor and closes the client.
func (w *Wallet) Close() {
	w.monitorMutex.Lock()
	if w.monitor != nil {
		w.monitor.Stop()
		w.monitor = nil
	}
	w.monitorMutex.Unlock()

	w.clientMutex.Lock()
	if w.closeClient != nil {
		w.closeClient()
		w.closeClient = nil
	}
	w.client = nil
	w.clientMutex.Unlock()
}

// Address returns the wallet address.
func (w *Wallet) Address() common.Address {
	return w.signer.Address()
}

// Chain returns the chain the wallet sends to.
func (w *Wallet) Chain() *types.ChainConfig {
	return w.config
}

// SignTypedData signs EIP-712 typed data with the wallet key.
//
// Parameters:
// - ctx: unused, the signature is computed locally.
// - typedData: the typed data to sign.
//
// Returns:
// - []byte: the 65-byte r || s || v signature with v in {27, 28}.
// - error: an error if the typed data cannot be hashed.
func (w *Wallet) SignTypedData(_ context.Context, typedData apitypes.TypedData) ([]byte, error) {
	return w.signer.SignTypedData(typedData)
}

func (w *Wallet) getClient() (rpcClient, error) {
	w.clientMutex.RLock()
	defer w.clientMutex.RUnlock()
	if w.client == nil {
		return nil, errors.New("client not initialized")
	}
	return w.client, nil
}
