// Package service contains the application services wiring the settlement
// engine, stores, caches, and the signal bus together.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
	"github.com/mosaicmarkets/mosaicd/internal/mining"
	"github.com/mosaicmarkets/mosaicd/internal/settle"
)

// SettlementService drives trades through the engine, journals the outcome,
// and fans out settlement events.
type SettlementService struct {
	engine      *settle.Engine
	settlements domain.SettlementStore
	params      domain.ParamStore
	history     domain.HistoryStore
	whitelist   domain.WhitelistStore
	cache       domain.HistoryCache
	clock       domain.BlockClock
	bus         domain.SignalBus
	logger      *slog.Logger
}

// NewSettlementService creates a SettlementService. The cache and bus are
// optional; a nil bus disables event fan-out and a nil cache disables
// invalidation.
func NewSettlementService(
	engine *settle.Engine,
	settlements domain.SettlementStore,
	params domain.ParamStore,
	history domain.HistoryStore,
	whitelist domain.WhitelistStore,
	cache domain.HistoryCache,
	clock domain.BlockClock,
	bus domain.SignalBus,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		engine:      engine,
		settlements: settlements,
		params:      params,
		history:     history,
		whitelist:   whitelist,
		cache:       cache,
		clock:       clock,
		bus:         bus,
		logger:      logger,
	}
}

// Settle runs a trade through the engine. On success the settlement is
// journaled, the history cache entry for the asset is invalidated, and both
// the pub/sub channels and the durable streams carry the outcome.
func (s *SettlementService) Settle(ctx context.Context, req domain.TradeRequest) (domain.Settlement, error) {
	settlement, err := s.engine.Trade(ctx, req)
	if err != nil {
		return domain.Settlement{}, err
	}

	if err := s.settlements.Insert(ctx, settlement); err != nil {
		// The trade itself is final at this point; a journal failure is an
		// operational problem, not a trade failure.
		s.logger.ErrorContext(ctx, "settlement_service: journal insert failed",
			slog.String("settlement_id", settlement.ID),
			slog.String("error", err.Error()),
		)
	}

	key := domain.AssetKey{Contract: settlement.Asset, TokenID: settlement.TokenID}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "settlement_service: cache invalidate failed",
				slog.String("asset", key.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	s.publishEvents(ctx, settlement)

	s.logger.InfoContext(ctx, "settlement_service: trade settled",
		slog.String("settlement_id", settlement.ID),
		slog.String("asset", key.String()),
		slog.String("price", settlement.Price.String()),
		slog.String("reward", settlement.Reward.String()),
		slog.Uint64("block_height", settlement.BlockHeight),
	)
	return settlement, nil
}

// PredictReward previews the reward a trade at the given price would mine
// right now, without settling anything. Gating (master switch, whitelist)
// is applied the same way the settlement path applies it.
func (s *SettlementService) PredictReward(ctx context.Context, key domain.AssetKey, price *big.Int) (*big.Int, error) {
	params, err := s.params.MiningParams(ctx)
	if err != nil {
		return nil, fmt.Errorf("settlement_service: load mining params: %w", err)
	}
	if !params.Enabled {
		return big.NewInt(0), nil
	}
	if params.WhitelistOnly {
		listed, err := s.whitelist.IsWhitelisted(ctx, key.Contract)
		if err != nil {
			return nil, fmt.Errorf("settlement_service: whitelist check: %w", err)
		}
		if !listed {
			return big.NewInt(0), nil
		}
	}

	hist, err := s.history.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		hist = domain.EmptyHistory(key)
	} else if err != nil {
		return nil, fmt.Errorf("settlement_service: load history: %w", err)
	}

	height, err := s.clock.Height(ctx)
	if err != nil {
		return nil, fmt.Errorf("settlement_service: block height: %w", err)
	}

	res, err := mining.Compute(params, price, hist.HighestPriceSold, height, hist.LastTradeHeight)
	if err != nil {
		return nil, err
	}
	return res.Reward, nil
}

func (s *SettlementService) publishEvents(ctx context.Context, settlement domain.Settlement) {
	if s.bus == nil {
		return
	}

	tokenID := "0"
	if settlement.TokenID != nil {
		tokenID = settlement.TokenID.String()
	}

	settled, _ := json.Marshal(domain.TradeSettledEvent{
		SettlementID: settlement.ID,
		Asset:        settlement.Asset.Hex(),
		TokenID:      tokenID,
		Seller:       settlement.Seller.Hex(),
		Buyer:        settlement.Buyer.Hex(),
		Price:        settlement.Price.String(),
		PlatformFee:  settlement.PlatformFee.String(),
		BlockHeight:  settlement.BlockHeight,
		SettledAt:    settlement.SettledAt,
	})
	s.emit(ctx, domain.ChannelTradeSettled, settled)

	if settlement.Reward != nil && settlement.Reward.Sign() > 0 {
		minted, _ := json.Marshal(domain.RewardMintedEvent{
			SettlementID: settlement.ID,
			Buyer:        settlement.Buyer.Hex(),
			Amount:       settlement.Reward.String(),
			Asset:        settlement.Asset.Hex(),
			TokenID:      tokenID,
		})
		s.emit(ctx, domain.ChannelRewardMinted, minted)
	}
}

// emit publishes to the live channel and appends to the durable stream of
// the same name. Failures are logged, never surfaced: the settlement is
// already final.
func (s *SettlementService) emit(ctx context.Context, channel string, payload []byte) {
	if err := s.bus.Publish(ctx, channel, payload); err != nil {
		s.logger.WarnContext(ctx, "settlement_service: publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
	if err := s.bus.StreamAppend(ctx, channel, payload); err != nil {
		s.logger.WarnContext(ctx, "settlement_service: stream append failed",
			slog.String("stream", channel),
			slog.String("error", err.Error()),
		)
	}
}
