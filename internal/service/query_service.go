package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// QueryService serves the read-only API surface: asset histories (through
// the cache), current parameters, and the settlement journal.
type QueryService struct {
	history     domain.HistoryStore
	cache       domain.HistoryCache
	params      domain.ParamStore
	whitelist   domain.WhitelistStore
	settlements domain.SettlementStore
	logger      *slog.Logger
}

// NewQueryService creates a QueryService. The cache is optional.
func NewQueryService(
	history domain.HistoryStore,
	cache domain.HistoryCache,
	params domain.ParamStore,
	whitelist domain.WhitelistStore,
	settlements domain.SettlementStore,
	logger *slog.Logger,
) *QueryService {
	return &QueryService{
		history:     history,
		cache:       cache,
		params:      params,
		whitelist:   whitelist,
		settlements: settlements,
		logger:      logger,
	}
}

// AssetHistory returns the trade history for an asset, reading through the
// cache when one is configured. domain.ErrNotFound means the asset has never
// had a qualifying trade.
func (s *QueryService) AssetHistory(ctx context.Context, key domain.AssetKey) (domain.AssetHistory, error) {
	if s.cache != nil {
		hist, err := s.cache.Get(ctx, key)
		if err == nil {
			return hist, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "query_service: history cache read failed",
				slog.String("asset", key.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	hist, err := s.history.Get(ctx, key)
	if err != nil {
		return domain.AssetHistory{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, hist); err != nil {
			s.logger.WarnContext(ctx, "query_service: history cache fill failed",
				slog.String("asset", key.String()),
				slog.String("error", err.Error()),
			)
		}
	}
	return hist, nil
}

// MiningParams returns the current liquidity-mining parameters.
func (s *QueryService) MiningParams(ctx context.Context) (domain.MiningParams, error) {
	p, err := s.params.MiningParams(ctx)
	if err != nil {
		return domain.MiningParams{}, fmt.Errorf("query_service: mining params: %w", err)
	}
	return p, nil
}

// FeeConfig returns the current fee configuration.
func (s *QueryService) FeeConfig(ctx context.Context) (domain.FeeConfig, error) {
	f, err := s.params.FeeConfig(ctx)
	if err != nil {
		return domain.FeeConfig{}, fmt.Errorf("query_service: fee config: %w", err)
	}
	return f, nil
}

// IsWhitelisted reports whether an asset contract is reward-eligible under
// whitelist-only mode.
func (s *QueryService) IsWhitelisted(ctx context.Context, key domain.AssetKey) (bool, error) {
	listed, err := s.whitelist.IsWhitelisted(ctx, key.Contract)
	if err != nil {
		return false, fmt.Errorf("query_service: whitelist: %w", err)
	}
	return listed, nil
}

// Settlement returns a single journaled settlement by ID.
func (s *QueryService) Settlement(ctx context.Context, id string) (domain.Settlement, error) {
	return s.settlements.GetByID(ctx, id)
}

// SettlementsByAsset lists journaled settlements for an asset, newest first.
func (s *QueryService) SettlementsByAsset(ctx context.Context, key domain.AssetKey, opts domain.ListOpts) ([]domain.Settlement, error) {
	rows, err := s.settlements.ListByAsset(ctx, key, opts)
	if err != nil {
		return nil, fmt.Errorf("query_service: list settlements: %w", err)
	}
	return rows, nil
}

// SettlementCount returns the total number of journaled settlements.
func (s *QueryService) SettlementCount(ctx context.Context) (int64, error) {
	return s.settlements.Count(ctx)
}
