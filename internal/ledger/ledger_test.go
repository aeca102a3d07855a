package ledger

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

var (
	contract = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	alice    = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	operator = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func TestAssetBookMintAndOwnership(t *testing.T) {
	b := NewAssetBook()
	ctx := context.Background()
	tokenID := big.NewInt(7)

	_, err := b.OwnerOf(ctx, contract, tokenID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, b.Mint(contract, tokenID, alice))
	owner, err := b.OwnerOf(ctx, contract, tokenID)
	require.NoError(t, err)
	require.Equal(t, alice, owner)

	require.Error(t, b.Mint(contract, tokenID, bob), "double mint")
}

func TestAssetBookTransferAuthorization(t *testing.T) {
	b := NewAssetBook()
	ctx := context.Background()
	tokenID := big.NewInt(7)
	require.NoError(t, b.Mint(contract, tokenID, alice))

	// Unapproved operator cannot move the token.
	err := b.TransferFrom(ctx, contract, operator, alice, bob, tokenID)
	require.ErrorIs(t, err, domain.ErrAssetTransferFailed)

	// The owner moving their own token needs no approval.
	require.NoError(t, b.TransferFrom(ctx, contract, alice, alice, bob, tokenID))

	// Stale from address fails after the transfer.
	err = b.TransferFrom(ctx, contract, alice, alice, bob, tokenID)
	require.ErrorIs(t, err, domain.ErrAssetTransferFailed)
}

func TestAssetBookOperatorApproval(t *testing.T) {
	b := NewAssetBook()
	ctx := context.Background()
	tokenID := big.NewInt(7)
	require.NoError(t, b.Mint(contract, tokenID, alice))

	b.SetApprovalForAll(contract, alice, operator, true)
	require.NoError(t, b.TransferFrom(ctx, contract, operator, alice, bob, tokenID))

	// Approval is per owner; it does not carry over to the new owner.
	err := b.TransferFrom(ctx, contract, operator, bob, alice, tokenID)
	require.ErrorIs(t, err, domain.ErrAssetTransferFailed)

	b.SetApprovalForAll(contract, bob, operator, true)
	b.SetApprovalForAll(contract, bob, operator, false)
	err = b.TransferFrom(ctx, contract, operator, bob, alice, tokenID)
	require.ErrorIs(t, err, domain.ErrAssetTransferFailed, "revoked approval")
}

func TestFundsBookCreditDebit(t *testing.T) {
	b := NewFundsBook()
	ctx := context.Background()

	bal, err := b.Balance(ctx, alice)
	require.NoError(t, err)
	require.Zero(t, bal.Sign())

	require.NoError(t, b.Credit(ctx, alice, big.NewInt(100)))
	require.NoError(t, b.Debit(ctx, alice, big.NewInt(40)))

	bal, err = b.Balance(ctx, alice)
	require.NoError(t, err)
	require.Zero(t, bal.Cmp(big.NewInt(60)))
}

func TestFundsBookDebitInsufficient(t *testing.T) {
	b := NewFundsBook()
	ctx := context.Background()

	require.NoError(t, b.Credit(ctx, alice, big.NewInt(10)))
	err := b.Debit(ctx, alice, big.NewInt(11))
	require.ErrorIs(t, err, domain.ErrInsufficientValue)

	// Balance untouched by the failed debit.
	bal, err := b.Balance(ctx, alice)
	require.NoError(t, err)
	require.Zero(t, bal.Cmp(big.NewInt(10)))
}

func TestFundsBookRejectsNegativeAmounts(t *testing.T) {
	b := NewFundsBook()
	ctx := context.Background()

	require.ErrorIs(t, b.Credit(ctx, alice, big.NewInt(-1)), domain.ErrArithmeticOverflow)
	require.ErrorIs(t, b.Debit(ctx, alice, big.NewInt(-1)), domain.ErrArithmeticOverflow)
}

func TestFundsBookBalanceIsACopy(t *testing.T) {
	b := NewFundsBook()
	ctx := context.Background()
	require.NoError(t, b.Credit(ctx, alice, big.NewInt(100)))

	bal, err := b.Balance(ctx, alice)
	require.NoError(t, err)
	bal.SetInt64(0)

	bal, err = b.Balance(ctx, alice)
	require.NoError(t, err)
	require.Zero(t, bal.Cmp(big.NewInt(100)))
}

func TestRewardBookMintAndSupply(t *testing.T) {
	b := NewRewardBook()
	ctx := context.Background()

	require.NoError(t, b.Mint(ctx, alice, big.NewInt(5)))
	require.NoError(t, b.Mint(ctx, alice, big.NewInt(3)))
	require.NoError(t, b.Mint(ctx, bob, big.NewInt(2)))

	bal, err := b.BalanceOf(ctx, alice)
	require.NoError(t, err)
	require.Zero(t, bal.Cmp(big.NewInt(8)))
	require.Zero(t, b.TotalSupply().Cmp(big.NewInt(10)))

	require.ErrorIs(t, b.Mint(ctx, alice, big.NewInt(-1)), domain.ErrArithmeticOverflow)
}
