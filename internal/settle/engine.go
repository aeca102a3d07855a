package settle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
	"github.com/mosaicmarkets/mosaicd/internal/mining"
)

// assetLockTTL bounds how long a settlement may hold the per-asset
// distributed lock in multi-instance deployments.
const assetLockTTL = 30 * time.Second

// EngineConfig bundles the engine's dependencies.
type EngineConfig struct {
	Validator *Validator
	Executor  *Executor
	Fills     domain.FillStore
	History   domain.HistoryStore
	Params    domain.ParamStore
	Whitelist domain.WhitelistStore
	Rewards   domain.RewardMinter
	Clock     domain.BlockClock
	Locks     domain.LockManager // optional; nil for single-instance
	Logger    *slog.Logger
}

// Engine drives a trade through validation, matching, atomic execution, and
// reward issuance. A mutex serializes settlements, so the whole chain is one
// indivisible unit and external calls cannot re-enter it.
type Engine struct {
	cfg EngineConfig
	mu  sync.Mutex
}

// NewEngine creates an Engine from its dependencies.
func NewEngine(cfg EngineConfig) *Engine {
	cfg.Logger = cfg.Logger.With(slog.String("component", "settle_engine"))
	return &Engine{cfg: cfg}
}

// Trade is the settlement entrypoint. It validates both orders, confirms
// they are complementary, executes the paired transfers with fee deduction,
// computes and mints the liquidity-mining reward, and updates fill and
// history state. Any failure aborts the whole trade with nothing moved.
func (e *Engine) Trade(ctx context.Context, req domain.TradeRequest) (domain.Settlement, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	va, err := e.cfg.Validator.Validate(ctx, req.OrderA, req.SigA)
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("settle: order A: %w", err)
	}
	vb, err := e.cfg.Validator.Validate(ctx, req.OrderB, req.SigB)
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("settle: order B: %w", err)
	}
	if va.Hash == vb.Hash {
		return domain.Settlement{}, fmt.Errorf("%w: an order cannot match itself", domain.ErrPredicateMismatch)
	}

	m, err := MatchOrders(va, req.CallA, vb, req.CallB)
	if err != nil {
		return domain.Settlement{}, err
	}
	if req.Caller != m.Buyer {
		return domain.Settlement{}, fmt.Errorf("%w: caller %s is not the buyer",
			domain.ErrUnauthorized, req.Caller.Hex())
	}

	key := domain.AssetKey{Contract: m.Asset, TokenID: m.TokenID}
	if e.cfg.Locks != nil {
		unlock, lockErr := e.cfg.Locks.Acquire(ctx, "settle:"+key.String(), assetLockTTL)
		if lockErr != nil {
			return domain.Settlement{}, fmt.Errorf("settle: asset %s: %w", key, lockErr)
		}
		defer unlock()
	}

	params, err := e.cfg.Params.MiningParams(ctx)
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("settle: read mining params: %w", err)
	}
	fees, err := e.cfg.Params.FeeConfig(ctx)
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("settle: read fee config: %w", err)
	}

	primary := false
	hist, err := e.cfg.History.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		hist = domain.EmptyHistory(key)
		primary = true
	} else if err != nil {
		return domain.Settlement{}, fmt.Errorf("settle: read history for %s: %w", key, err)
	}

	height, err := e.cfg.Clock.Height(ctx)
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("settle: block height: %w", err)
	}

	// Compute the intended reward before any transfer happens, so an
	// arithmetic or ordering failure aborts the trade untouched.
	eligible, err := e.rewardEligible(ctx, params, m.Asset)
	if err != nil {
		return domain.Settlement{}, err
	}
	reward := new(big.Int)
	branch := mining.BranchBelowThreshold
	if eligible {
		res, mineErr := mining.Compute(params, m.Price, hist.HighestPriceSold, height, hist.LastTradeHeight)
		if mineErr != nil {
			return domain.Settlement{}, fmt.Errorf("settle: reward computation: %w", mineErr)
		}
		reward = res.Reward
		branch = res.Branch
	}

	exec, err := e.cfg.Executor.Execute(ctx, m, req.Value, fees, primary)
	if err != nil {
		return domain.Settlement{}, err
	}

	// Effects after the external legs, all inside the settlement lock.
	if err := e.cfg.Fills.SetFill(ctx, va.Hash, va.Fill+m.Fill); err != nil {
		return domain.Settlement{}, e.inconsistent(ctx, "record fill A", err)
	}
	if err := e.cfg.Fills.SetFill(ctx, vb.Hash, vb.Fill+m.Fill); err != nil {
		return domain.Settlement{}, e.inconsistent(ctx, "record fill B", err)
	}

	if eligible && reward.Sign() > 0 {
		if err := e.cfg.Rewards.Mint(ctx, m.Buyer, reward); err != nil {
			return domain.Settlement{}, e.inconsistent(ctx, "mint reward", err)
		}
	}

	// The history row doubles as the first-sale marker, so it must be
	// written on a primary sale even when mining leaves it untouched.
	// Otherwise every resale of a never-rewarded asset would bill the
	// primary fee tier again.
	updated, changed := hist, false
	if eligible {
		updated, changed = mining.UpdateHistory(hist, m.Price, height, branch)
	}
	if changed || primary {
		if err := e.cfg.History.Put(ctx, updated); err != nil {
			return domain.Settlement{}, e.inconsistent(ctx, "update history", err)
		}
	}

	s := domain.Settlement{
		ID:          uuid.NewString(),
		Asset:       m.Asset,
		TokenID:     new(big.Int).Set(m.TokenID),
		Seller:      m.Seller,
		Buyer:       m.Buyer,
		Price:       exec.Price,
		PlatformFee: exec.PlatformFee,
		Reward:      reward,
		BlockHeight: height,
		Primary:     primary,
		OrderASalt:  req.OrderA.Salt,
		OrderBSalt:  req.OrderB.Salt,
		Metadata:    req.Metadata,
		SettledAt:   time.Now().UTC(),
	}

	e.cfg.Logger.InfoContext(ctx, "trade settled",
		slog.String("settlement_id", s.ID),
		slog.String("asset", key.String()),
		slog.String("price", s.Price.String()),
		slog.String("reward", s.Reward.String()),
		slog.Uint64("height", height),
		slog.Bool("primary", primary),
	)

	return s, nil
}

// rewardEligible applies the eligibility gate: mining must be enabled, and
// in whitelist-only mode the asset contract must be whitelisted. The trade
// itself settles either way.
func (e *Engine) rewardEligible(ctx context.Context, p domain.MiningParams, asset common.Address) (bool, error) {
	if !p.Enabled {
		return false, nil
	}
	if !p.WhitelistOnly {
		return true, nil
	}
	ok, err := e.cfg.Whitelist.IsWhitelisted(ctx, asset)
	if err != nil {
		return false, fmt.Errorf("settle: whitelist check for %s: %w", asset.Hex(), err)
	}
	return ok, nil
}

// inconsistent flags a post-execution store failure. The transfers have
// already happened, so this is logged at error level before surfacing.
func (e *Engine) inconsistent(ctx context.Context, stage string, err error) error {
	e.cfg.Logger.ErrorContext(ctx, "settlement state write failed after execution",
		slog.String("stage", stage),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("settle: %s: %w", stage, err)
}
