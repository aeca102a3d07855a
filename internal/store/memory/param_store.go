package memory

import (
	"context"
	"sync"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// ParamStore implements domain.ParamStore in memory. Writes are validated
// at the admin boundary; the store accepts what it is given.
type ParamStore struct {
	mu     sync.RWMutex
	mining domain.MiningParams
	fees   domain.FeeConfig
}

// NewParamStore creates a ParamStore seeded with the given configuration.
func NewParamStore(mining domain.MiningParams, fees domain.FeeConfig) *ParamStore {
	return &ParamStore{mining: mining.Clone(), fees: fees}
}

// MiningParams returns the active liquidity-mining parameters.
func (s *ParamStore) MiningParams(context.Context) (domain.MiningParams, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mining.Clone(), nil
}

// SetMiningParams replaces the liquidity-mining parameters.
func (s *ParamStore) SetMiningParams(_ context.Context, p domain.MiningParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mining = p.Clone()
	return nil
}

// FeeConfig returns the active fee configuration.
func (s *ParamStore) FeeConfig(context.Context) (domain.FeeConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fees, nil
}

// SetFeeConfig replaces the fee configuration.
func (s *ParamStore) SetFeeConfig(_ context.Context, f domain.FeeConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fees = f
	return nil
}

var _ domain.ParamStore = (*ParamStore)(nil)
