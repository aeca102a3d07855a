package settle

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
	"github.com/mosaicmarkets/mosaicd/internal/ledger"
)

func TestExecuteFeeSplitIsExact(t *testing.T) {
	tests := []struct {
		price   string
		bps     uint64
		wantFee string
	}{
		{"10000", 1000, "1000"},
		{"122000000000000000000", 1000, "12200000000000000000"},
		{"1", 1000, "0"},      // fee floors to zero
		{"9999", 1000, "999"}, // floor(9999*1000/10000)
		{"3", 3333, "0"},      // floor(3*3333/10000)
		{"10001", 1, "1"},     // floor(10001*1/10000)
		{"777", 10000, "777"}, // full-fee edge
		{"123456789", 250, "3086419"},
	}

	for _, tt := range tests {
		ctx := context.Background()
		assets := ledger.NewAssetBook()
		funds := ledger.NewFundsBook()
		operator := common.HexToAddress("0xb2")
		seller := common.HexToAddress("0x01")
		buyer := common.HexToAddress("0x02")
		recipient := common.HexToAddress("0xc3")
		asset := common.HexToAddress("0xe7")
		tokenID := big.NewInt(1)

		price, ok := new(big.Int).SetString(tt.price, 10)
		require.True(t, ok)
		wantFee, ok := new(big.Int).SetString(tt.wantFee, 10)
		require.True(t, ok)

		require.NoError(t, assets.Mint(asset, tokenID, seller))
		assets.SetApprovalForAll(asset, seller, operator, true)
		require.NoError(t, funds.Credit(ctx, buyer, price))

		exec := NewExecutor(assets, funds, operator)
		res, err := exec.Execute(ctx, Match{
			Seller: seller, Buyer: buyer, Asset: asset, TokenID: tokenID, Price: price,
		}, price, domain.FeeConfig{Recipient: recipient, PrimaryBps: tt.bps, SecondaryBps: 0}, true)
		require.NoError(t, err, "price %s bps %d", tt.price, tt.bps)

		require.Zero(t, res.PlatformFee.Cmp(wantFee), "price %s bps %d: fee %s", tt.price, tt.bps, res.PlatformFee)

		// Conservation: proceeds + fee == price, to the integer.
		total := new(big.Int).Add(res.SellerProceeds, res.PlatformFee)
		require.Zero(t, total.Cmp(price))

		sellerBal, err := funds.Balance(ctx, seller)
		require.NoError(t, err)
		require.Zero(t, sellerBal.Cmp(res.SellerProceeds))
		recipientBal, err := funds.Balance(ctx, recipient)
		require.NoError(t, err)
		require.Zero(t, recipientBal.Cmp(wantFee))
	}
}

func TestExecuteRejectsValueMismatch(t *testing.T) {
	ctx := context.Background()
	exec := NewExecutor(ledger.NewAssetBook(), ledger.NewFundsBook(), common.HexToAddress("0xb2"))
	m := Match{
		Seller:  common.HexToAddress("0x01"),
		Buyer:   common.HexToAddress("0x02"),
		Asset:   common.HexToAddress("0xe7"),
		TokenID: big.NewInt(1),
		Price:   big.NewInt(100),
	}
	fees := domain.FeeConfig{Recipient: common.HexToAddress("0xc3"), PrimaryBps: 1000}

	for _, value := range []*big.Int{nil, big.NewInt(99), big.NewInt(101), big.NewInt(0)} {
		_, err := exec.Execute(ctx, m, value, fees, true)
		require.ErrorIs(t, err, domain.ErrInsufficientValue)
	}
}

func TestExecuteRefundsEscrowWhenAssetLegFails(t *testing.T) {
	ctx := context.Background()
	assets := ledger.NewAssetBook()
	funds := ledger.NewFundsBook()
	operator := common.HexToAddress("0xb2")
	seller := common.HexToAddress("0x01")
	buyer := common.HexToAddress("0x02")
	asset := common.HexToAddress("0xe7")
	tokenID := big.NewInt(1)
	price := big.NewInt(100)

	// No operator approval: the transfer must be refused.
	require.NoError(t, assets.Mint(asset, tokenID, seller))
	require.NoError(t, funds.Credit(ctx, buyer, price))

	exec := NewExecutor(assets, funds, operator)
	_, err := exec.Execute(ctx, Match{
		Seller: seller, Buyer: buyer, Asset: asset, TokenID: tokenID, Price: price,
	}, price, domain.FeeConfig{Recipient: common.HexToAddress("0xc3"), PrimaryBps: 1000}, true)
	require.ErrorIs(t, err, domain.ErrAssetTransferFailed)

	// The escrowed value was returned to the buyer.
	buyerBal, err := funds.Balance(ctx, buyer)
	require.NoError(t, err)
	require.Zero(t, buyerBal.Cmp(price))
}
