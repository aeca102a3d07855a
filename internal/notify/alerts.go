package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// SettlementAlerts turns settlement events from the signal bus into operator
// notifications. It subscribes to the trade and reward channels and formats
// each payload into a short human-readable message.
type SettlementAlerts struct {
	bus      domain.SignalBus
	notifier *Notifier
	logger   *slog.Logger
}

// NewSettlementAlerts creates a SettlementAlerts bridge.
func NewSettlementAlerts(bus domain.SignalBus, notifier *Notifier, logger *slog.Logger) *SettlementAlerts {
	return &SettlementAlerts{
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "settlement_alerts")),
	}
}

// Run consumes settlement events until the context is cancelled. Malformed
// payloads and delivery failures are logged and skipped.
func (a *SettlementAlerts) Run(ctx context.Context) error {
	trades, err := a.bus.Subscribe(ctx, domain.ChannelTradeSettled)
	if err != nil {
		return fmt.Errorf("notify: subscribe %s: %w", domain.ChannelTradeSettled, err)
	}
	rewards, err := a.bus.Subscribe(ctx, domain.ChannelRewardMinted)
	if err != nil {
		return fmt.Errorf("notify: subscribe %s: %w", domain.ChannelRewardMinted, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-trades:
			if !ok {
				return nil
			}
			a.handleTrade(ctx, payload)
		case payload, ok := <-rewards:
			if !ok {
				return nil
			}
			a.handleReward(ctx, payload)
		}
	}
}

func (a *SettlementAlerts) handleTrade(ctx context.Context, payload []byte) {
	var ev domain.TradeSettledEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		a.logger.WarnContext(ctx, "malformed trade event",
			slog.String("error", err.Error()),
		)
		return
	}

	msg := fmt.Sprintf("asset %s #%s\nseller %s\nbuyer %s\nprice %s (fee %s)\nblock %d",
		ev.Asset, ev.TokenID, ev.Seller, ev.Buyer, ev.Price, ev.PlatformFee, ev.BlockHeight)
	if err := a.notifier.Notify(ctx, domain.ChannelTradeSettled, "Trade settled", msg); err != nil {
		a.logger.WarnContext(ctx, "trade alert delivery failed",
			slog.String("settlement_id", ev.SettlementID),
			slog.String("error", err.Error()),
		)
	}
}

func (a *SettlementAlerts) handleReward(ctx context.Context, payload []byte) {
	var ev domain.RewardMintedEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		a.logger.WarnContext(ctx, "malformed reward event",
			slog.String("error", err.Error()),
		)
		return
	}

	msg := fmt.Sprintf("asset %s #%s\nbuyer %s\namount %s",
		ev.Asset, ev.TokenID, ev.Buyer, ev.Amount)
	if err := a.notifier.Notify(ctx, domain.ChannelRewardMinted, "Reward minted", msg); err != nil {
		a.logger.WarnContext(ctx, "reward alert delivery failed",
			slog.String("settlement_id", ev.SettlementID),
			slog.String("error", err.Error()),
		)
	}
}
