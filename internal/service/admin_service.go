package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// AdminService applies governance writes: mining parameters, fee
// configuration, and the reward whitelist. Authorization happens at the
// transport layer; this service validates and persists.
type AdminService struct {
	params    domain.ParamStore
	whitelist domain.WhitelistStore
	logger    *slog.Logger
}

// NewAdminService creates an AdminService.
func NewAdminService(params domain.ParamStore, whitelist domain.WhitelistStore, logger *slog.Logger) *AdminService {
	return &AdminService{
		params:    params,
		whitelist: whitelist,
		logger:    logger,
	}
}

// SetMiningParams validates and stores a new mining parameter set.
func (s *AdminService) SetMiningParams(ctx context.Context, p domain.MiningParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.params.SetMiningParams(ctx, p); err != nil {
		return fmt.Errorf("admin_service: set mining params: %w", err)
	}
	s.logger.InfoContext(ctx, "admin_service: mining params updated",
		slog.Bool("enabled", p.Enabled),
		slog.Bool("whitelist_only", p.WhitelistOnly),
	)
	return nil
}

// SetFeeConfig validates and stores a new fee configuration.
func (s *AdminService) SetFeeConfig(ctx context.Context, f domain.FeeConfig) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if err := s.params.SetFeeConfig(ctx, f); err != nil {
		return fmt.Errorf("admin_service: set fee config: %w", err)
	}
	s.logger.InfoContext(ctx, "admin_service: fee config updated",
		slog.String("recipient", f.Recipient.Hex()),
		slog.Uint64("primary_bps", f.PrimaryBps),
		slog.Uint64("secondary_bps", f.SecondaryBps),
	)
	return nil
}

// SetWhitelisted adds or removes an asset contract from the reward
// whitelist.
func (s *AdminService) SetWhitelisted(ctx context.Context, asset common.Address, whitelisted bool) error {
	if asset == (common.Address{}) {
		return fmt.Errorf("%w: zero asset address", domain.ErrInvalidParams)
	}
	if err := s.whitelist.SetWhitelisted(ctx, asset, whitelisted); err != nil {
		return fmt.Errorf("admin_service: set whitelisted: %w", err)
	}
	s.logger.InfoContext(ctx, "admin_service: whitelist updated",
		slog.String("asset", asset.Hex()),
		slog.Bool("whitelisted", whitelisted),
	)
	return nil
}
