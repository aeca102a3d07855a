// Package mining implements the liquidity-mining reward computation: a
// deterministic, integer-only emission curve over per-asset trade history.
// Rewards favour price discovery (trades above the asset's historical peak)
// and patience (block gaps since the last qualifying trade).
package mining

import (
	"fmt"
	"math/big"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// decayDenomOffset is the constant added to omega*blocksElapsed in the decay
// denominator, so the decay factor asymptotically approaches 1 from below.
const decayDenomOffset = 1_000_000

// Branch identifies which arm of the emission curve a trade hit. The engine
// uses it to decide how to update the asset's history.
type Branch uint8

const (
	// BranchBelowThreshold: price at or below the threshold, no reward, no
	// history update.
	BranchBelowThreshold Branch = iota
	// BranchRegression: price above threshold but below the historical
	// peak; minimum reward, last-trade height refreshed, peak kept.
	BranchRegression
	// BranchDiscovery: a new peak; full curve reward, peak and last-trade
	// height both updated.
	BranchDiscovery
)

// Result is the outcome of a reward computation.
type Result struct {
	Reward *big.Int
	Branch Branch
}

// Compute evaluates the emission curve for a single trade.
//
//	f      = ceil(log2(priceIncrease/gamma + 1))
//	decay  = omega*blocks / (omega*blocks + 1e6)
//	reward = alpha * f * decay + epsilon, capped at maxRewardPerTrade
//
// All divisions are floor divisions; multiplications happen before divisions
// so no precision is lost. height must be at or past lastHeight: a regressed
// height is a caller ordering error and fails with domain.ErrBlockOrder.
func Compute(p domain.MiningParams, price, peak *big.Int, height, lastHeight uint64) (Result, error) {
	if price == nil || price.Sign() < 0 {
		return Result{}, fmt.Errorf("%w: negative or missing price", domain.ErrArithmeticOverflow)
	}
	if peak == nil {
		peak = new(big.Int)
	}
	if height < lastHeight {
		return Result{}, fmt.Errorf("%w: current height %d below last trade height %d",
			domain.ErrBlockOrder, height, lastHeight)
	}

	if price.Cmp(p.PriceThreshold) <= 0 {
		return Result{Reward: new(big.Int), Branch: BranchBelowThreshold}, nil
	}

	if price.Cmp(peak) < 0 {
		return Result{Reward: new(big.Int).Set(p.Epsilon), Branch: BranchRegression}, nil
	}

	// New price discovery.
	priceIncrease := new(big.Int).Sub(price, peak)
	normalized := new(big.Int).Div(priceIncrease, p.Gamma)
	f := ceilLog2Plus1(normalized)

	blocks := new(big.Int).SetUint64(height - lastHeight)
	gNumer := new(big.Int).Mul(p.Omega, blocks)
	gDenom := new(big.Int).Add(gNumer, big.NewInt(decayDenomOffset))

	// alpha * f * gNumer / gDenom + epsilon
	reward := new(big.Int).Mul(p.Alpha, big.NewInt(int64(f)))
	reward.Mul(reward, gNumer)
	reward.Div(reward, gDenom)
	reward.Add(reward, p.Epsilon)

	if reward.Cmp(p.MaxRewardPerTrade) > 0 {
		reward.Set(p.MaxRewardPerTrade)
	}

	return Result{Reward: reward, Branch: BranchDiscovery}, nil
}

// ceilLog2Plus1 returns ceil(log2(n+1)) for n >= 0, exactly, using the
// identity ceil(log2(m)) == bitlen(m-1): each doubling of n adds one. n = 0
// yields 0.
func ceilLog2Plus1(n *big.Int) int {
	return n.BitLen()
}

// UpdateHistory applies the history-update policy for a settled trade and
// reports whether the record changed.
//
// Policy: a below-threshold trade never touches history. A regression trade
// refreshes the last-trade height but keeps the peak, so churn below the
// peak still resets the decay clock. A discovery trade records the new peak
// and the height.
func UpdateHistory(hist domain.AssetHistory, price *big.Int, height uint64, branch Branch) (domain.AssetHistory, bool) {
	switch branch {
	case BranchRegression:
		hist.LastTradeHeight = height
		return hist, true
	case BranchDiscovery:
		if hist.HighestPriceSold == nil || price.Cmp(hist.HighestPriceSold) > 0 {
			hist.HighestPriceSold = new(big.Int).Set(price)
		}
		hist.LastTradeHeight = height
		return hist, true
	default:
		return hist, false
	}
}
