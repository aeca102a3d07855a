// Package memory implements the domain store interfaces with in-process
// maps. It is the default backend for single-instance deployments and the
// backend used by tests; the postgres package provides the durable
// equivalents.
package memory

import (
	"context"
	"sync"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// FillStore implements domain.FillStore in memory.
type FillStore struct {
	mu    sync.RWMutex
	fills map[domain.OrderHash]uint64
}

// NewFillStore creates an empty FillStore.
func NewFillStore() *FillStore {
	return &FillStore{fills: make(map[domain.OrderHash]uint64)}
}

// Fill returns the consumed fill for an order, 0 when never filled.
func (s *FillStore) Fill(_ context.Context, order domain.OrderHash) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fills[order], nil
}

// SetFill records the new cumulative fill for an order.
func (s *FillStore) SetFill(_ context.Context, order domain.OrderHash, fill uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fills[order] = fill
	return nil
}

var _ domain.FillStore = (*FillStore)(nil)
