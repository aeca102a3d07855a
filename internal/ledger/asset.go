// Package ledger provides in-process implementations of the engine's
// external collaborators: asset (NFT) ownership, native-currency balances,
// and the incentive-token minter. The settlement engine only ever touches
// these through the domain interfaces, so chain-backed implementations can
// be swapped in without changing the core.
package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// AssetBook is an in-memory asset ledger: per-contract token ownership with
// operator approvals, ERC721-style.
type AssetBook struct {
	mu        sync.RWMutex
	owners    map[string]common.Address // contract:token -> owner
	operators map[string]bool           // contract:owner:operator -> approved
}

// NewAssetBook creates an empty AssetBook.
func NewAssetBook() *AssetBook {
	return &AssetBook{
		owners:    make(map[string]common.Address),
		operators: make(map[string]bool),
	}
}

func tokenKey(contract common.Address, tokenID *big.Int) string {
	return contract.Hex() + ":" + tokenID.String()
}

func operatorKey(contract, owner, operator common.Address) string {
	return contract.Hex() + ":" + owner.Hex() + ":" + operator.Hex()
}

// Mint assigns a fresh token to owner. It fails if the token already exists.
func (b *AssetBook) Mint(contract common.Address, tokenID *big.Int, owner common.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := tokenKey(contract, tokenID)
	if _, ok := b.owners[key]; ok {
		return fmt.Errorf("ledger: token %s already minted", key)
	}
	b.owners[key] = owner
	return nil
}

// SetApprovalForAll grants or revokes operator's right to move all of
// owner's tokens on the given contract.
func (b *AssetBook) SetApprovalForAll(contract, owner, operator common.Address, approved bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := operatorKey(contract, owner, operator)
	if approved {
		b.operators[key] = true
	} else {
		delete(b.operators, key)
	}
}

// OwnerOf returns the current owner of a token.
func (b *AssetBook) OwnerOf(_ context.Context, contract common.Address, tokenID *big.Int) (common.Address, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	owner, ok := b.owners[tokenKey(contract, tokenID)]
	if !ok {
		return common.Address{}, fmt.Errorf("ledger: token %s: %w", tokenKey(contract, tokenID), domain.ErrNotFound)
	}
	return owner, nil
}

// TransferFrom moves a token from one owner to another on behalf of
// operator. The transfer fails unless from currently owns the token and
// operator is either from itself or an approved operator.
func (b *AssetBook) TransferFrom(_ context.Context, contract common.Address, operator, from, to common.Address, tokenID *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := tokenKey(contract, tokenID)
	owner, ok := b.owners[key]
	if !ok {
		return fmt.Errorf("%w: token %s does not exist", domain.ErrAssetTransferFailed, key)
	}
	if owner != from {
		return fmt.Errorf("%w: token %s owned by %s, not %s",
			domain.ErrAssetTransferFailed, key, owner.Hex(), from.Hex())
	}
	if operator != from && !b.operators[operatorKey(contract, from, operator)] {
		return fmt.Errorf("%w: operator %s not approved by %s",
			domain.ErrAssetTransferFailed, operator.Hex(), from.Hex())
	}

	b.owners[key] = to
	return nil
}

var _ domain.AssetLedger = (*AssetBook)(nil)
