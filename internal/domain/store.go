package domain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// FillStore persists per-order fill counters, keyed by the order hash.
// Records are mutated only by the settlement engine after a successful
// settlement.
type FillStore interface {
	// Fill returns the consumed fill for an order, or 0 when the order has
	// never been (partially) filled.
	Fill(ctx context.Context, order OrderHash) (uint64, error)
	// SetFill records the new cumulative fill for an order.
	SetFill(ctx context.Context, order OrderHash, fill uint64) error
}

// HistoryStore persists per-asset trade history. Get returns ErrNotFound for
// assets that have never had a qualifying trade.
type HistoryStore interface {
	Get(ctx context.Context, key AssetKey) (AssetHistory, error)
	Put(ctx context.Context, hist AssetHistory) error
}

// ParamStore holds the liquidity-mining parameters and the fee configuration.
// Writes go through the admin service only.
type ParamStore interface {
	MiningParams(ctx context.Context) (MiningParams, error)
	SetMiningParams(ctx context.Context, p MiningParams) error
	FeeConfig(ctx context.Context) (FeeConfig, error)
	SetFeeConfig(ctx context.Context, f FeeConfig) error
}

// WhitelistStore persists the set of asset contracts eligible for reward
// issuance when whitelist-only mode is enabled.
type WhitelistStore interface {
	SetWhitelisted(ctx context.Context, asset common.Address, whitelisted bool) error
	IsWhitelisted(ctx context.Context, asset common.Address) (bool, error)
}

// SettlementStore journals settled trades for querying and archival.
type SettlementStore interface {
	Insert(ctx context.Context, s Settlement) error
	GetByID(ctx context.Context, id string) (Settlement, error)
	ListByAsset(ctx context.Context, key AssetKey, opts ListOpts) ([]Settlement, error)
	ListBefore(ctx context.Context, before time.Time) ([]Settlement, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}
