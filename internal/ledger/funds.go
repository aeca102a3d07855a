package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// FundsBook is an in-memory native-currency ledger.
type FundsBook struct {
	mu       sync.RWMutex
	balances map[common.Address]*big.Int
}

// NewFundsBook creates an empty FundsBook.
func NewFundsBook() *FundsBook {
	return &FundsBook{balances: make(map[common.Address]*big.Int)}
}

// Balance returns a copy of the account's balance, zero for unknown
// accounts.
func (b *FundsBook) Balance(_ context.Context, account common.Address) (*big.Int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if bal, ok := b.balances[account]; ok {
		return new(big.Int).Set(bal), nil
	}
	return new(big.Int), nil
}

// Credit adds amount to the account's balance.
func (b *FundsBook) Credit(_ context.Context, account common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("%w: negative credit", domain.ErrArithmeticOverflow)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	bal, ok := b.balances[account]
	if !ok {
		bal = new(big.Int)
		b.balances[account] = bal
	}
	bal.Add(bal, amount)
	return nil
}

// Debit subtracts amount from the account's balance. It fails with
// domain.ErrInsufficientValue when the balance is short, leaving the balance
// untouched.
func (b *FundsBook) Debit(_ context.Context, account common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("%w: negative debit", domain.ErrArithmeticOverflow)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	bal, ok := b.balances[account]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: account %s", domain.ErrInsufficientValue, account.Hex())
	}
	bal.Sub(bal, amount)
	return nil
}

var _ domain.FundsLedger = (*FundsBook)(nil)
