// Package connectionmonitor health-checks long-lived RPC connections and redials them
// when a check fails.
package connectionmonitor

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// defaultHealthCheckInterval defines interval between connection health checks
	defaultHealthCheckInterval = 30 * time.Second
	// defaultReconnectDelay defines the pause between reconnection attempts
	defaultReconnectDelay = 5 * time.Second
	// maxReconnectAttempts defines maximum number of reconnection attempts
	maxReconnectAttempts = 3
)

// ConnectionMonitor represents connection state monitoring interface
type ConnectionMonitor interface {
	// Start starts connection monitoring
	Start(ctx context.Context) error
	// Stop stops connection monitoring
	Stop()
}

// BlockchainClient represents blockchain client interface
type BlockchainClient interface {
	// CheckConnection checks if connection is alive
	CheckConnection(ctx context.Context) error
	// Reconnect attempts to reconnect to blockchain node
	Reconnect(ctx context.Context) error
}

// Option configures a connection monitor.
type Option func(*connectionMonitor)

// WithHealthCheckInterval sets the interval between health checks.
func WithHealthCheckInterval(d time.Duration) Option {
	return func(m *connectionMonitor) { m.interval = d }
}

// WithReconnectDelay sets the pause between reconnection attempts.
func WithReconnectDelay(d time.Duration) Option {
	return func(m *connectionMonitor) { m.reconnectDelay = d }
}

type connectionMonitor struct {
	client         BlockchainClient
	logger         *logrus.Logger
	chainName      string
	interval       time.Duration
	reconnectDelay time.Duration

	monitorMutex sync.Mutex
	stopChan     chan struct{}
	done         chan struct{}
}

// NewConnectionMonitor creates a new connection monitor instance.
//
// Parameters:
// - client: the blockchain client to monitor.
// - logger: the logger for logging purposes.
// - chainName: the name of the blockchain chain.
// - opts: functional options.
//
// Returns:
// - ConnectionMonitor: the new connection monitor instance.
func NewConnectionMonitor(client BlockchainClient, logger *logrus.Logger, chainName string, opts ...Option) ConnectionMonitor {
	m := &connectionMonitor{
		client:         client,
		logger:         logger,
		chainName:      chainName,
		interval:       defaultHealthCheckInterval,
		reconnectDelay: defaultReconnectDelay,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start starts connection monitoring. Monitoring ends when ctx is done or Stop is called.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - error: an error if the connection monitor is already running.
func (m *connectionMonitor) Start(ctx context.Context) error {
	m.monitorMutex.Lock()
	defer m.monitorMutex.Unlock()

	if m.stopChan != nil {
		return errors.Errorf("connection monitor is already running for chain %s", m.chainName)
	}
	m.stopChan = make(chan struct{})
	m.done = make(chan struct{})

	go m.monitorConnection(ctx, m.stopChan, m.done)
	return nil
}

// Stop stops connection monitoring and waits for the monitoring goroutine to exit.
func (m *connectionMonitor) Stop() {
	m.monitorMutex.Lock()
	stopChan, done := m.stopChan, m.done
	m.stopChan, m.done = nil, nil
	m.monitorMutex.Unlock()

	if stopChan == nil {
		return
	}
	close(stopChan)
	<-done
}

// monitorConnection monitors the connection state and attempts to reconnect if needed.
func (m *connectionMonitor) monitorConnection(ctx context.Context, stopChan <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	logger := m.logger.WithField("chain", m.chainName)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Connection monitoring stopped due to context cancellation")
			return

		case <-stopChan:
			logger.Debug("Connection monitoring stopped")
			return

		case <-ticker.C:
			if err := m.checkAndReconnect(ctx, stopChan); err != nil {
				logger.WithError(err).Error("Failed to check or reconnect")
			}
		}
	}
}

// checkAndReconnect checks the connection state and attempts to reconnect if needed.
func (m *connectionMonitor) checkAndReconnect(ctx context.Context, stopChan <-chan struct{}) error {
	logger := m.logger.WithField("chain", m.chainName)

	err := m.client.CheckConnection(ctx)
	if err == nil {
		logger.Debug("Ping successful")
		return nil
	}
	logger.WithError(err).Warn("Connection check failed, attempting to reconnect")

	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		err := m.client.Reconnect(ctx)
		if err == nil {
			logger.WithField("attempt", attempt).Info("Client successfully reconnected")
			return nil
		}

		logger.WithField("attempt", attempt).WithError(err).Error("Reconnection attempt failed")
		if attempt == maxReconnectAttempts {
			return errors.Wrapf(err, "failed to reconnect to chain %s", m.chainName)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopChan:
			return nil
		case <-time.After(m.reconnectDelay):
		}
	}
	return nil
}
