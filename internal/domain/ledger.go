package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AssetLedger is the boundary to the asset (NFT) contracts whose tokens the
// engine settles. The engine moves tokens only through TransferFrom, acting
// as the operator each seller has approved.
type AssetLedger interface {
	OwnerOf(ctx context.Context, contract common.Address, tokenID *big.Int) (common.Address, error)
	// TransferFrom moves a token from one owner to another on behalf of
	// operator. It fails unless operator is the owner or an approved
	// operator for the owner on that contract.
	TransferFrom(ctx context.Context, contract common.Address, operator, from, to common.Address, tokenID *big.Int) error
}

// FundsLedger is the boundary to native-currency balances. Debit fails with
// ErrInsufficientValue when the balance is short; Credit never fails for a
// positive amount.
type FundsLedger interface {
	Balance(ctx context.Context, account common.Address) (*big.Int, error)
	Debit(ctx context.Context, account common.Address, amount *big.Int) error
	Credit(ctx context.Context, account common.Address, amount *big.Int) error
}

// RewardMinter is the boundary to the incentive-token contract. The engine
// only ever mints to buyers.
type RewardMinter interface {
	Mint(ctx context.Context, to common.Address, amount *big.Int) error
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
}

// BlockClock reports the current block height of the surrounding chain. The
// reward decay term is a function of block counts, not wall time.
type BlockClock interface {
	Height(ctx context.Context) (uint64, error)
}
