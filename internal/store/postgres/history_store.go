package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// HistoryStore implements domain.HistoryStore using PostgreSQL.
type HistoryStore struct {
	pool *pgxpool.Pool
}

// NewHistoryStore creates a HistoryStore backed by the given connection pool.
func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

// Get returns the trade history for an asset, or domain.ErrNotFound when the
// asset has never had a qualifying trade.
func (s *HistoryStore) Get(ctx context.Context, key domain.AssetKey) (domain.AssetHistory, error) {
	var (
		highest string
		height  uint64
	)
	err := s.pool.QueryRow(ctx, `
		SELECT highest_price_sold, last_trade_height
		FROM asset_history
		WHERE contract = $1 AND token_id = $2`,
		addressKey(key.Contract), numericFromBig(key.TokenID),
	).Scan(&highest, &height)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AssetHistory{}, fmt.Errorf("%w: no history for %s", domain.ErrNotFound, key)
	}
	if err != nil {
		return domain.AssetHistory{}, fmt.Errorf("postgres: get asset history: %w", err)
	}

	price, err := bigFromNumeric(highest)
	if err != nil {
		return domain.AssetHistory{}, err
	}
	return domain.AssetHistory{
		Key:              key,
		HighestPriceSold: price,
		LastTradeHeight:  height,
	}, nil
}

// Put upserts the trade history for an asset.
func (s *HistoryStore) Put(ctx context.Context, hist domain.AssetHistory) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO asset_history (contract, token_id, highest_price_sold, last_trade_height)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (contract, token_id) DO UPDATE SET
			highest_price_sold = EXCLUDED.highest_price_sold,
			last_trade_height = EXCLUDED.last_trade_height,
			updated_at = NOW()`,
		addressKey(hist.Key.Contract), numericFromBig(hist.Key.TokenID),
		numericFromBig(hist.HighestPriceSold), hist.LastTradeHeight,
	)
	if err != nil {
		return fmt.Errorf("postgres: put asset history: %w", err)
	}
	return nil
}

// addressKey normalizes an address for use as a text column value.
func addressKey(a common.Address) string {
	return strings.ToLower(a.Hex())
}
