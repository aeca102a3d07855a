// Package chain provides block-height sources for the reward decay term.
package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// EthClock reads the current block height from an Ethereum-compatible RPC
// endpoint.
type EthClock struct {
	client *ethclient.Client
}

// Dial connects to the given RPC URL and returns an EthClock.
func Dial(rpcURL string) (*EthClock, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}
	return &EthClock{client: client}, nil
}

// Height returns the latest block number.
func (c *EthClock) Height(ctx context.Context) (uint64, error) {
	header, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("chain: latest header: %w", err)
	}
	return header.Number.Uint64(), nil
}

// Close releases the underlying RPC connection.
func (c *EthClock) Close() {
	c.client.Close()
}

var _ domain.BlockClock = (*EthClock)(nil)

// ManualClock is a block clock advanced by hand, used in tests and in
// memory-backed deployments without an RPC endpoint.
type ManualClock struct {
	mu     sync.RWMutex
	height uint64
}

// NewManualClock creates a ManualClock at the given height.
func NewManualClock(height uint64) *ManualClock {
	return &ManualClock{height: height}
}

// Height returns the current height.
func (c *ManualClock) Height(context.Context) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.height, nil
}

// Advance moves the clock forward by n blocks.
func (c *ManualClock) Advance(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height += n
}

var _ domain.BlockClock = (*ManualClock)(nil)
