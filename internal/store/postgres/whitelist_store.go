package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WhitelistStore implements domain.WhitelistStore using PostgreSQL.
type WhitelistStore struct {
	pool *pgxpool.Pool
}

// NewWhitelistStore creates a WhitelistStore backed by the given connection
// pool.
func NewWhitelistStore(pool *pgxpool.Pool) *WhitelistStore {
	return &WhitelistStore{pool: pool}
}

// SetWhitelisted adds or removes an asset contract from the reward whitelist.
func (s *WhitelistStore) SetWhitelisted(ctx context.Context, asset common.Address, whitelisted bool) error {
	var err error
	if whitelisted {
		_, err = s.pool.Exec(ctx, `
			INSERT INTO reward_whitelist (contract) VALUES ($1)
			ON CONFLICT (contract) DO NOTHING`,
			addressKey(asset),
		)
	} else {
		_, err = s.pool.Exec(ctx,
			"DELETE FROM reward_whitelist WHERE contract = $1",
			addressKey(asset),
		)
	}
	if err != nil {
		return fmt.Errorf("postgres: set whitelisted: %w", err)
	}
	return nil
}

// IsWhitelisted reports whether the asset contract is reward-eligible.
func (s *WhitelistStore) IsWhitelisted(ctx context.Context, asset common.Address) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM reward_whitelist WHERE contract = $1)",
		addressKey(asset),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: check whitelist: %w", err)
	}
	return exists, nil
}
