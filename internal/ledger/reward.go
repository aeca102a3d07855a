package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// RewardBook is an in-memory incentive-token ledger. Supply only grows;
// the engine mints, nothing burns.
type RewardBook struct {
	mu       sync.RWMutex
	balances map[common.Address]*big.Int
	supply   *big.Int
}

// NewRewardBook creates an empty RewardBook.
func NewRewardBook() *RewardBook {
	return &RewardBook{
		balances: make(map[common.Address]*big.Int),
		supply:   new(big.Int),
	}
}

// Mint issues amount incentive tokens to the given account.
func (b *RewardBook) Mint(_ context.Context, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("%w: negative mint", domain.ErrArithmeticOverflow)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	bal, ok := b.balances[to]
	if !ok {
		bal = new(big.Int)
		b.balances[to] = bal
	}
	bal.Add(bal, amount)
	b.supply.Add(b.supply, amount)
	return nil
}

// BalanceOf returns a copy of the account's incentive-token balance.
func (b *RewardBook) BalanceOf(_ context.Context, account common.Address) (*big.Int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if bal, ok := b.balances[account]; ok {
		return new(big.Int).Set(bal), nil
	}
	return new(big.Int), nil
}

// TotalSupply returns a copy of the total minted supply.
func (b *RewardBook) TotalSupply() *big.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return new(big.Int).Set(b.supply)
}

var _ domain.RewardMinter = (*RewardBook)(nil)
