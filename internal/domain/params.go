package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BasisPointsDenom is the denominator for all basis-point fee math.
const BasisPointsDenom = 10000

// MiningParams are the tunable constants of the liquidity-mining emission
// curve. They are owned by the parameter store, mutated only through the
// admin API, and read-only to the reward engine.
type MiningParams struct {
	// Epsilon is the minimum guaranteed reward per qualifying trade.
	Epsilon *big.Int
	// Alpha scales the logarithmic price-growth term.
	Alpha *big.Int
	// Gamma is the divisor normalizing the price increase before the log
	// term is taken.
	Gamma *big.Int
	// Omega is the block-count decay-rate constant.
	Omega *big.Int
	// PriceThreshold is the minimum trade price for any reward.
	PriceThreshold *big.Int
	// MaxRewardPerTrade is the hard cap on a single trade's reward.
	MaxRewardPerTrade *big.Int
	// Enabled is the liquidity-mining master switch.
	Enabled bool
	// WhitelistOnly restricts reward issuance to whitelisted asset
	// contracts when set.
	WhitelistOnly bool
}

// DefaultMiningParams returns the production defaults: epsilon 1, alpha 1,
// cap 1000 (all in 1e18-scaled units), gamma 1e13, omega 1e5, price
// threshold 1.5e18.
func DefaultMiningParams() MiningParams {
	wei := func(s string) *big.Int {
		n, _ := new(big.Int).SetString(s, 10)
		return n
	}
	return MiningParams{
		Epsilon:           wei("1000000000000000000"),
		Alpha:             wei("1000000000000000000"),
		Gamma:             wei("10000000000000"),
		Omega:             wei("100000"),
		PriceThreshold:    wei("1500000000000000000"),
		MaxRewardPerTrade: wei("1000000000000000000000"),
		Enabled:           true,
		WhitelistOnly:     false,
	}
}

// Validate checks the parameters are internally consistent. Out-of-range
// values are rejected at the admin boundary, never clamped.
func (p MiningParams) Validate() error {
	for name, v := range map[string]*big.Int{
		"epsilon":              p.Epsilon,
		"alpha":                p.Alpha,
		"gamma":                p.Gamma,
		"omega":                p.Omega,
		"price_threshold":      p.PriceThreshold,
		"max_reward_per_trade": p.MaxRewardPerTrade,
	} {
		if v == nil {
			return fmt.Errorf("%w: %s is nil", ErrInvalidParams, name)
		}
		if v.Sign() < 0 {
			return fmt.Errorf("%w: %s is negative", ErrInvalidParams, name)
		}
	}
	if p.Gamma.Sign() == 0 {
		return fmt.Errorf("%w: gamma must be positive", ErrInvalidParams)
	}
	if p.Epsilon.Cmp(p.MaxRewardPerTrade) > 0 {
		return fmt.Errorf("%w: epsilon exceeds max reward per trade", ErrInvalidParams)
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate the stored big.Ints.
func (p MiningParams) Clone() MiningParams {
	out := p
	out.Epsilon = new(big.Int).Set(p.Epsilon)
	out.Alpha = new(big.Int).Set(p.Alpha)
	out.Gamma = new(big.Int).Set(p.Gamma)
	out.Omega = new(big.Int).Set(p.Omega)
	out.PriceThreshold = new(big.Int).Set(p.PriceThreshold)
	out.MaxRewardPerTrade = new(big.Int).Set(p.MaxRewardPerTrade)
	return out
}

// FeeConfig holds the platform fee split. Primary-market trades (first sale
// of an asset) and secondary-market trades can carry different splits.
type FeeConfig struct {
	Recipient    common.Address
	PrimaryBps   uint64
	SecondaryBps uint64
}

// Validate rejects basis-point values above the denominator.
func (f FeeConfig) Validate() error {
	if f.PrimaryBps > BasisPointsDenom {
		return fmt.Errorf("%w: primary fee %d bps exceeds %d", ErrInvalidParams, f.PrimaryBps, BasisPointsDenom)
	}
	if f.SecondaryBps > BasisPointsDenom {
		return fmt.Errorf("%w: secondary fee %d bps exceeds %d", ErrInvalidParams, f.SecondaryBps, BasisPointsDenom)
	}
	return nil
}
