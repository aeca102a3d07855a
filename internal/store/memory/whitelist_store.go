package memory

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// WhitelistStore implements domain.WhitelistStore in memory.
type WhitelistStore struct {
	mu      sync.RWMutex
	entries map[common.Address]bool
}

// NewWhitelistStore creates an empty WhitelistStore.
func NewWhitelistStore() *WhitelistStore {
	return &WhitelistStore{entries: make(map[common.Address]bool)}
}

// SetWhitelisted marks an asset contract as reward-eligible or not.
func (s *WhitelistStore) SetWhitelisted(_ context.Context, asset common.Address, whitelisted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if whitelisted {
		s.entries[asset] = true
	} else {
		delete(s.entries, asset)
	}
	return nil
}

// IsWhitelisted reports whether an asset contract is reward-eligible.
func (s *WhitelistStore) IsWhitelisted(_ context.Context, asset common.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[asset], nil
}

var _ domain.WhitelistStore = (*WhitelistStore)(nil)
