package evm

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
)

// rpcConnection lets the connection monitor health-check and redial the wallet's node.
type rpcConnection struct {
	wallet *Wallet
}

// CheckConnection checks the connection by retrieving the current block number.
//
// Parameters:
// - ctx: the context for managing the connection check.
//
// Returns:
// - error: an error if the client is closed or the node does not answer.
func (c *rpcConnection) CheckConnection(ctx context.Context) error {
	client, err := c.wallet.getClient()
	if err != nil {
		return err
	}
	_, err = client.BlockNumber(ctx)
	return err
}

// Reconnect replaces the wallet's client with a freshly dialed one.
//
// Parameters:
// - ctx: the context for managing the reconnection process.
//
// Returns:
// - error: an error if the endpoint cannot be dialed or the wallet was closed.
func (c *rpcConnection) Reconnect(ctx context.Context) error {
	client, err := ethclient.DialContext(ctx, c.wallet.config.RpcUrl)
	if err != nil {
		return err
	}

	c.wallet.clientMutex.Lock()
	defer c.wallet.clientMutex.Unlock()

	if c.wallet.client == nil {
		client.Close()
		return errors.New("wallet closed")
	}
	if c.wallet.closeClient != nil {
		c.wallet.closeClient()
	}
	c.wallet.client = client
	c.wallet.closeClient = client.Close
	return nil
}
