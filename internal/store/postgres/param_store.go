package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// ParamStore implements domain.ParamStore using PostgreSQL. Both parameter
// sets live in single-row tables seeded by the migrations.
type ParamStore struct {
	pool *pgxpool.Pool
}

// NewParamStore creates a ParamStore backed by the given connection pool.
func NewParamStore(pool *pgxpool.Pool) *ParamStore {
	return &ParamStore{pool: pool}
}

// MiningParams returns the current liquidity-mining parameters.
func (s *ParamStore) MiningParams(ctx context.Context) (domain.MiningParams, error) {
	var (
		epsilon, alpha, gamma, omega string
		threshold, maxReward         string
		enabled, whitelistOnly       bool
	)
	err := s.pool.QueryRow(ctx, `
		SELECT epsilon, alpha, gamma, omega, price_threshold, max_reward_per_trade,
			enabled, whitelist_only
		FROM mining_params WHERE id = 1`,
	).Scan(&epsilon, &alpha, &gamma, &omega, &threshold, &maxReward, &enabled, &whitelistOnly)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.MiningParams{}, fmt.Errorf("%w: mining params not seeded", domain.ErrNotFound)
	}
	if err != nil {
		return domain.MiningParams{}, fmt.Errorf("postgres: get mining params: %w", err)
	}

	p := domain.MiningParams{Enabled: enabled, WhitelistOnly: whitelistOnly}
	if p.Epsilon, err = bigFromNumeric(epsilon); err != nil {
		return domain.MiningParams{}, err
	}
	if p.Alpha, err = bigFromNumeric(alpha); err != nil {
		return domain.MiningParams{}, err
	}
	if p.Gamma, err = bigFromNumeric(gamma); err != nil {
		return domain.MiningParams{}, err
	}
	if p.Omega, err = bigFromNumeric(omega); err != nil {
		return domain.MiningParams{}, err
	}
	if p.PriceThreshold, err = bigFromNumeric(threshold); err != nil {
		return domain.MiningParams{}, err
	}
	if p.MaxRewardPerTrade, err = bigFromNumeric(maxReward); err != nil {
		return domain.MiningParams{}, err
	}
	return p, nil
}

// SetMiningParams replaces the liquidity-mining parameters.
func (s *ParamStore) SetMiningParams(ctx context.Context, p domain.MiningParams) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE mining_params SET
			epsilon = $1, alpha = $2, gamma = $3, omega = $4,
			price_threshold = $5, max_reward_per_trade = $6,
			enabled = $7, whitelist_only = $8,
			updated_at = NOW()
		WHERE id = 1`,
		numericFromBig(p.Epsilon), numericFromBig(p.Alpha),
		numericFromBig(p.Gamma), numericFromBig(p.Omega),
		numericFromBig(p.PriceThreshold), numericFromBig(p.MaxRewardPerTrade),
		p.Enabled, p.WhitelistOnly,
	)
	if err != nil {
		return fmt.Errorf("postgres: set mining params: %w", err)
	}
	return nil
}

// FeeConfig returns the current platform fee configuration.
func (s *ParamStore) FeeConfig(ctx context.Context) (domain.FeeConfig, error) {
	var (
		recipient                string
		primaryBps, secondaryBps uint64
	)
	err := s.pool.QueryRow(ctx, `
		SELECT recipient, primary_bps, secondary_bps
		FROM fee_config WHERE id = 1`,
	).Scan(&recipient, &primaryBps, &secondaryBps)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.FeeConfig{}, fmt.Errorf("%w: fee config not seeded", domain.ErrNotFound)
	}
	if err != nil {
		return domain.FeeConfig{}, fmt.Errorf("postgres: get fee config: %w", err)
	}
	return domain.FeeConfig{
		Recipient:    common.HexToAddress(recipient),
		PrimaryBps:   primaryBps,
		SecondaryBps: secondaryBps,
	}, nil
}

// SetFeeConfig replaces the platform fee configuration.
func (s *ParamStore) SetFeeConfig(ctx context.Context, f domain.FeeConfig) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE fee_config SET
			recipient = $1, primary_bps = $2, secondary_bps = $3,
			updated_at = NOW()
		WHERE id = 1`,
		addressKey(f.Recipient), f.PrimaryBps, f.SecondaryBps,
	)
	if err != nil {
		return fmt.Errorf("postgres: set fee config: %w", err)
	}
	return nil
}
