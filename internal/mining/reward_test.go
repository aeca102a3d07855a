package mining

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

func wei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func bigStr(t *testing.T, s string) *big.Int {
	t.Helper()
	n, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, "bad big int literal %q", s)
	return n
}

func testParams() domain.MiningParams {
	return domain.DefaultMiningParams()
}

func TestComputeBelowThreshold(t *testing.T) {
	p := testParams()

	// Strictly below the threshold.
	res, err := Compute(p, wei(1), wei(300), 100, 50)
	require.NoError(t, err)
	require.Zero(t, res.Reward.Sign())
	require.Equal(t, BranchBelowThreshold, res.Branch)

	// Exactly at the threshold is still not rewarded.
	res, err = Compute(p, p.PriceThreshold, new(big.Int), 100, 0)
	require.NoError(t, err)
	require.Zero(t, res.Reward.Sign())
	require.Equal(t, BranchBelowThreshold, res.Branch)
}

func TestComputeRegressionPaysExactlyEpsilon(t *testing.T) {
	p := testParams()

	// Above threshold but below the historical peak.
	res, err := Compute(p, wei(103), wei(300), 500, 200)
	require.NoError(t, err)
	require.Equal(t, BranchRegression, res.Branch)
	require.Zero(t, res.Reward.Cmp(p.Epsilon))
}

func TestComputeFirstDiscovery(t *testing.T) {
	p := testParams()

	// price 122e18, no prior history, 10 blocks elapsed:
	// normalized = 122e18/1e13 = 12_200_000, f = 24,
	// decay = 1e6/2e6, reward = 1e18*24/2 + 1e18 = 13e18.
	res, err := Compute(p, wei(122), new(big.Int), 10, 0)
	require.NoError(t, err)
	require.Equal(t, BranchDiscovery, res.Branch)
	require.Zero(t, res.Reward.Cmp(wei(13)))
}

func TestComputeMonotonicInPriceIncrease(t *testing.T) {
	p := testParams()
	peak := wei(10)

	prev := new(big.Int)
	for _, price := range []int64{11, 12, 20, 50, 100, 1000, 100000, 10000000} {
		res, err := Compute(p, wei(price), peak, 1000, 0)
		require.NoError(t, err)
		require.GreaterOrEqual(t, res.Reward.Cmp(prev), 0,
			"reward regressed at price %d", price)
		prev = res.Reward
	}
}

func TestComputeCap(t *testing.T) {
	p := testParams()

	// A price large enough that alpha*f alone exceeds the cap.
	price := new(big.Int).Lsh(p.Gamma, 1100)
	res, err := Compute(p, price, new(big.Int), 1_000_000_000, 0)
	require.NoError(t, err)
	require.Zero(t, res.Reward.Cmp(p.MaxRewardPerTrade))
}

func TestComputeRewardBounds(t *testing.T) {
	p := testParams()

	for _, tc := range []struct {
		price, peak int64
		height      uint64
	}{
		{1, 0, 10}, {2, 0, 10}, {2, 300, 10}, {300, 2, 10},
		{1999999, 300, 100000}, {103, 300, 1},
	} {
		res, err := Compute(p, wei(tc.price), wei(tc.peak), tc.height, 0)
		require.NoError(t, err)
		require.GreaterOrEqual(t, res.Reward.Sign(), 0)
		require.LessOrEqual(t, res.Reward.Cmp(p.MaxRewardPerTrade), 0)
	}
}

func TestComputeBlockOrderFailsLoudly(t *testing.T) {
	p := testParams()

	_, err := Compute(p, wei(100), new(big.Int), 10, 20)
	require.ErrorIs(t, err, domain.ErrBlockOrder)
}

func TestComputeZeroOmegaStillPaysEpsilon(t *testing.T) {
	p := testParams()
	p.Omega = new(big.Int)

	res, err := Compute(p, wei(100), new(big.Int), 1000, 0)
	require.NoError(t, err)
	require.Equal(t, BranchDiscovery, res.Branch)
	require.Zero(t, res.Reward.Cmp(p.Epsilon))
}

func TestCeilLog2Plus1Exact(t *testing.T) {
	// ceil(log2(n+1)) by repeated doubling, compared against the bit-length
	// identity for the first few thousand values.
	for n := int64(0); n < 5000; n++ {
		want := 0
		for lim := int64(1); lim < n+1; lim *= 2 {
			want++
		}
		require.Equal(t, want, ceilLog2Plus1(big.NewInt(n)), "n=%d", n)
	}
}

// TestChainedTrades walks the six-trade sequence from the reference data:
// prices [2, 300, 103, 288, 1999999, 1] (1e18-scaled) with block gaps
// [100, 5, 300, 15, 23, 10].
func TestChainedTrades(t *testing.T) {
	p := testParams()
	key := domain.AssetKey{TokenID: big.NewInt(9912879027088)}
	hist := domain.EmptyHistory(key)

	steps := []struct {
		price      int64
		height     uint64
		wantReward string
		wantBranch Branch
	}{
		// f=18, decay=1e7/1.1e7.
		{2, 100, "17363636363636363636", BranchDiscovery},
		// f=25, decay=5e5/1.5e6.
		{300, 105, "9333333333333333333", BranchDiscovery},
		// Price regressed below the 300 peak: exactly epsilon.
		{103, 405, "1000000000000000000", BranchRegression},
		// Still below the peak: exactly epsilon.
		{288, 420, "1000000000000000000", BranchRegression},
		// New peak. f=38, decay=2.3e6/3.3e6.
		{1999999, 443, "27484848484848484848", BranchDiscovery},
		// Below threshold: nothing.
		{1, 453, "0", BranchBelowThreshold},
	}

	for i, st := range steps {
		res, err := Compute(p, wei(st.price), hist.HighestPriceSold, st.height, hist.LastTradeHeight)
		require.NoError(t, err, "trade %d", i+1)
		require.Equal(t, st.wantBranch, res.Branch, "trade %d", i+1)
		require.Zero(t, res.Reward.Cmp(bigStr(t, st.wantReward)),
			"trade %d: got %s want %s", i+1, res.Reward, st.wantReward)

		hist, _ = UpdateHistory(hist, wei(st.price), st.height, res.Branch)
	}

	// Final history: peak from trade 5, height from trade 5 (trade 6 was
	// below threshold and must not touch history).
	require.Zero(t, hist.HighestPriceSold.Cmp(wei(1999999)))
	require.Equal(t, uint64(443), hist.LastTradeHeight)
}

func TestUpdateHistoryPolicy(t *testing.T) {
	key := domain.AssetKey{TokenID: big.NewInt(1)}
	hist := domain.AssetHistory{Key: key, HighestPriceSold: wei(300), LastTradeHeight: 100}

	// Below threshold: untouched.
	got, changed := UpdateHistory(hist, wei(1), 200, BranchBelowThreshold)
	require.False(t, changed)
	require.Equal(t, hist, got)

	// Regression: height refreshed, peak kept.
	got, changed = UpdateHistory(hist, wei(103), 200, BranchRegression)
	require.True(t, changed)
	require.Zero(t, got.HighestPriceSold.Cmp(wei(300)))
	require.Equal(t, uint64(200), got.LastTradeHeight)

	// Discovery: both updated.
	got, changed = UpdateHistory(hist, wei(500), 300, BranchDiscovery)
	require.True(t, changed)
	require.Zero(t, got.HighestPriceSold.Cmp(wei(500)))
	require.Equal(t, uint64(300), got.LastTradeHeight)
}
