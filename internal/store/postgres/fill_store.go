package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// FillStore implements domain.FillStore using PostgreSQL.
type FillStore struct {
	pool *pgxpool.Pool
}

// NewFillStore creates a FillStore backed by the given connection pool.
func NewFillStore(pool *pgxpool.Pool) *FillStore {
	return &FillStore{pool: pool}
}

// Fill returns the consumed fill for an order, or 0 when the order has no
// fill record yet.
func (s *FillStore) Fill(ctx context.Context, order domain.OrderHash) (uint64, error) {
	var fill uint64
	err := s.pool.QueryRow(ctx,
		"SELECT fill FROM order_fills WHERE order_hash = $1",
		order.Hex(),
	).Scan(&fill)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: get fill: %w", err)
	}
	return fill, nil
}

// SetFill records the new cumulative fill for an order.
func (s *FillStore) SetFill(ctx context.Context, order domain.OrderHash, fill uint64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO order_fills (order_hash, fill)
		VALUES ($1, $2)
		ON CONFLICT (order_hash) DO UPDATE SET
			fill = EXCLUDED.fill,
			updated_at = NOW()`,
		order.Hex(), fill,
	)
	if err != nil {
		return fmt.Errorf("postgres: set fill: %w", err)
	}
	return nil
}
