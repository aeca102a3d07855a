package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// SettlementStore implements domain.SettlementStore in memory.
type SettlementStore struct {
	mu   sync.RWMutex
	rows []domain.Settlement
	byID map[string]int
}

// NewSettlementStore creates an empty SettlementStore.
func NewSettlementStore() *SettlementStore {
	return &SettlementStore{byID: make(map[string]int)}
}

// Insert journals a settlement.
func (s *SettlementStore) Insert(_ context.Context, row domain.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[row.ID]; ok {
		return fmt.Errorf("memory: settlement %s already journaled", row.ID)
	}
	s.byID[row.ID] = len(s.rows)
	s.rows = append(s.rows, row)
	return nil
}

// GetByID returns a settlement by its ID.
func (s *SettlementStore) GetByID(_ context.Context, id string) (domain.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return domain.Settlement{}, fmt.Errorf("memory: settlement %s: %w", id, domain.ErrNotFound)
	}
	return s.rows[idx], nil
}

// ListByAsset returns settlements for one asset, newest first.
func (s *SettlementStore) ListByAsset(_ context.Context, key domain.AssetKey, opts domain.ListOpts) ([]domain.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Settlement
	for _, row := range s.rows {
		rowKey := domain.AssetKey{Contract: row.Asset, TokenID: row.TokenID}
		if rowKey.String() == key.String() {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SettledAt.After(out[j].SettledAt) })

	return paginate(out, opts), nil
}

// ListBefore returns settlements settled strictly before the cutoff.
func (s *SettlementStore) ListBefore(_ context.Context, before time.Time) ([]domain.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Settlement
	for _, row := range s.rows {
		if row.SettledAt.Before(before) {
			out = append(out, row)
		}
	}
	return out, nil
}

// DeleteBefore removes settlements settled strictly before the cutoff and
// returns how many were removed.
func (s *SettlementStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []domain.Settlement
	var removed int64
	for _, row := range s.rows {
		if row.SettledAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, row)
	}

	s.rows = kept
	s.byID = make(map[string]int, len(kept))
	for i, row := range kept {
		s.byID[row.ID] = i
	}
	return removed, nil
}

// Count returns the number of journaled settlements.
func (s *SettlementStore) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.rows)), nil
}

func paginate(rows []domain.Settlement, opts domain.ListOpts) []domain.Settlement {
	if opts.Offset > 0 {
		if opts.Offset >= len(rows) {
			return nil
		}
		rows = rows[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(rows) {
		rows = rows[:opts.Limit]
	}
	return rows
}

var _ domain.SettlementStore = (*SettlementStore)(nil)
