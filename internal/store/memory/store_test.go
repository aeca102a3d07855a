package memory

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

var testAsset = common.HexToAddress("0x00000000000000000000000000000000000000e7")

func settlement(id string, key domain.AssetKey, settledAt time.Time) domain.Settlement {
	return domain.Settlement{
		ID:          id,
		Asset:       key.Contract,
		TokenID:     key.TokenID,
		Price:       big.NewInt(100),
		PlatformFee: big.NewInt(10),
		Reward:      big.NewInt(0),
		OrderASalt:  big.NewInt(1),
		OrderBSalt:  big.NewInt(2),
		SettledAt:   settledAt,
	}
}

func TestFillStore(t *testing.T) {
	s := NewFillStore()
	ctx := context.Background()
	var hash domain.OrderHash
	hash[0] = 0xab

	fill, err := s.Fill(ctx, hash)
	require.NoError(t, err)
	require.Zero(t, fill, "unknown order has zero fill")

	require.NoError(t, s.SetFill(ctx, hash, 3))
	fill, err = s.Fill(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, uint64(3), fill)
}

func TestHistoryStoreRoundtrip(t *testing.T) {
	s := NewHistoryStore()
	ctx := context.Background()
	key := domain.AssetKey{Contract: testAsset, TokenID: big.NewInt(7)}

	_, err := s.Get(ctx, key)
	require.ErrorIs(t, err, domain.ErrNotFound)

	hist := domain.AssetHistory{
		Key:              key,
		HighestPriceSold: big.NewInt(500),
		LastTradeHeight:  42,
	}
	require.NoError(t, s.Put(ctx, hist))

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.Zero(t, got.HighestPriceSold.Cmp(big.NewInt(500)))
	require.Equal(t, uint64(42), got.LastTradeHeight)

	// The stored record is isolated from caller mutation.
	got.HighestPriceSold.SetInt64(0)
	again, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.Zero(t, again.HighestPriceSold.Cmp(big.NewInt(500)))
}

func TestParamStoreUpdates(t *testing.T) {
	fees := domain.FeeConfig{
		Recipient:    common.HexToAddress("0x00000000000000000000000000000000000000c3"),
		PrimaryBps:   1000,
		SecondaryBps: 250,
	}
	s := NewParamStore(domain.DefaultMiningParams(), fees)
	ctx := context.Background()

	p, err := s.MiningParams(ctx)
	require.NoError(t, err)
	require.True(t, p.Enabled)

	p.Enabled = false
	require.NoError(t, s.SetMiningParams(ctx, p))
	p, err = s.MiningParams(ctx)
	require.NoError(t, err)
	require.False(t, p.Enabled)

	f, err := s.FeeConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(250), f.SecondaryBps)

	f.SecondaryBps = 500
	require.NoError(t, s.SetFeeConfig(ctx, f))
	f, err = s.FeeConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(500), f.SecondaryBps)
}

func TestWhitelistStore(t *testing.T) {
	s := NewWhitelistStore()
	ctx := context.Background()

	listed, err := s.IsWhitelisted(ctx, testAsset)
	require.NoError(t, err)
	require.False(t, listed)

	require.NoError(t, s.SetWhitelisted(ctx, testAsset, true))
	listed, err = s.IsWhitelisted(ctx, testAsset)
	require.NoError(t, err)
	require.True(t, listed)

	require.NoError(t, s.SetWhitelisted(ctx, testAsset, false))
	listed, err = s.IsWhitelisted(ctx, testAsset)
	require.NoError(t, err)
	require.False(t, listed)
}

func TestSettlementStoreInsertAndGet(t *testing.T) {
	s := NewSettlementStore()
	ctx := context.Background()
	key := domain.AssetKey{Contract: testAsset, TokenID: big.NewInt(7)}

	row := settlement("s-1", key, time.Now())
	require.NoError(t, s.Insert(ctx, row))
	require.Error(t, s.Insert(ctx, row), "duplicate ID")

	got, err := s.GetByID(ctx, "s-1")
	require.NoError(t, err)
	require.Equal(t, "s-1", got.ID)

	_, err = s.GetByID(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSettlementStoreListByAsset(t *testing.T) {
	s := NewSettlementStore()
	ctx := context.Background()
	key := domain.AssetKey{Contract: testAsset, TokenID: big.NewInt(7)}
	other := domain.AssetKey{Contract: testAsset, TokenID: big.NewInt(8)}

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Insert(ctx, settlement(
			fmt.Sprintf("s-%d", i), key, base.Add(time.Duration(i)*time.Hour))))
	}
	require.NoError(t, s.Insert(ctx, settlement("other", other, base)))

	rows, err := s.ListByAsset(ctx, key, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, rows, 5)
	// Newest first.
	require.Equal(t, "s-4", rows[0].ID)
	require.Equal(t, "s-0", rows[4].ID)

	rows, err = s.ListByAsset(ctx, key, domain.ListOpts{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "s-3", rows[0].ID)

	rows, err = s.ListByAsset(ctx, key, domain.ListOpts{Offset: 99})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestSettlementStoreRetentionWindow(t *testing.T) {
	s := NewSettlementStore()
	ctx := context.Background()
	key := domain.AssetKey{Contract: testAsset, TokenID: big.NewInt(7)}

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		require.NoError(t, s.Insert(ctx, settlement(
			fmt.Sprintf("s-%d", i), key, base.AddDate(0, 0, i))))
	}

	cutoff := base.AddDate(0, 0, 2)
	old, err := s.ListBefore(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, old, 2, "strictly before the cutoff")

	removed, err := s.DeleteBefore(ctx, cutoff)
	require.NoError(t, err)
	require.Equal(t, int64(2), removed)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	// Survivors are still addressable by ID.
	_, err = s.GetByID(ctx, "s-2")
	require.NoError(t, err)
	_, err = s.GetByID(ctx, "s-0")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
