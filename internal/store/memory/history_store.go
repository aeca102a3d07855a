package memory

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// HistoryStore implements domain.HistoryStore in memory.
type HistoryStore struct {
	mu      sync.RWMutex
	records map[string]domain.AssetHistory
}

// NewHistoryStore creates an empty HistoryStore.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{records: make(map[string]domain.AssetHistory)}
}

// Get returns the history for an asset, or domain.ErrNotFound for assets
// that have never had a qualifying trade.
func (s *HistoryStore) Get(_ context.Context, key domain.AssetKey) (domain.AssetHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hist, ok := s.records[key.String()]
	if !ok {
		return domain.AssetHistory{}, fmt.Errorf("memory: history %s: %w", key, domain.ErrNotFound)
	}
	return cloneHistory(hist), nil
}

// Put stores the history record, creating it on first write.
func (s *HistoryStore) Put(_ context.Context, hist domain.AssetHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[hist.Key.String()] = cloneHistory(hist)
	return nil
}

func cloneHistory(h domain.AssetHistory) domain.AssetHistory {
	out := h
	if h.HighestPriceSold != nil {
		out.HighestPriceSold = new(big.Int).Set(h.HighestPriceSold)
	}
	if h.Key.TokenID != nil {
		out.Key.TokenID = new(big.Int).Set(h.Key.TokenID)
	}
	return out
}

var _ domain.HistoryStore = (*HistoryStore)(nil)
