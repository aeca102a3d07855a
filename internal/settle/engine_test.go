package settle

import (
	"context"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/mosaicmarkets/mosaicd/internal/chain"
	"github.com/mosaicmarkets/mosaicd/internal/crypto"
	"github.com/mosaicmarkets/mosaicd/internal/domain"
	"github.com/mosaicmarkets/mosaicd/internal/ledger"
	"github.com/mosaicmarkets/mosaicd/internal/store/memory"
)

const testChainID = 1337

// Deterministic test keys (well-known local-node accounts).
var testKeys = []string{
	"ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
	"59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d",
	"5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a",
	"7c852118294e51e653712a81e05800f419141751be58f605c371e15141b007a6",
}

type fixture struct {
	t         *testing.T
	engine    *Engine
	assets    *ledger.AssetBook
	funds     *ledger.FundsBook
	rewards   *ledger.RewardBook
	clock     *chain.ManualClock
	params    *memory.ParamStore
	whitelist *memory.WhitelistStore
	fills     *memory.FillStore
	history   *memory.HistoryStore

	registry     common.Address
	operator     common.Address
	feeRecipient common.Address
	signers      []*crypto.Signer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		t:            t,
		assets:       ledger.NewAssetBook(),
		funds:        ledger.NewFundsBook(),
		rewards:      ledger.NewRewardBook(),
		clock:        chain.NewManualClock(0),
		whitelist:    memory.NewWhitelistStore(),
		fills:        memory.NewFillStore(),
		history:      memory.NewHistoryStore(),
		registry:     common.HexToAddress("0x00000000000000000000000000000000000000a1"),
		operator:     common.HexToAddress("0x00000000000000000000000000000000000000b2"),
		feeRecipient: common.HexToAddress("0x00000000000000000000000000000000000000c3"),
	}

	for _, k := range testKeys {
		s, err := crypto.NewSigner(k, testChainID)
		require.NoError(t, err)
		f.signers = append(f.signers, s)
	}

	f.params = memory.NewParamStore(domain.DefaultMiningParams(), domain.FeeConfig{
		Recipient:    f.feeRecipient,
		PrimaryBps:   1000,
		SecondaryBps: 1000,
	})

	verifier := crypto.NewVerifier(testChainID)
	logger := slog.New(slog.DiscardHandler)
	f.engine = NewEngine(EngineConfig{
		Validator: NewValidator(verifier, f.fills),
		Executor:  NewExecutor(f.assets, f.funds, f.operator),
		Fills:     f.fills,
		History:   f.history,
		Params:    f.params,
		Whitelist: f.whitelist,
		Rewards:   f.rewards,
		Clock:     f.clock,
		Logger:    logger,
	})

	return f
}

func wei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func (f *fixture) order(maker *crypto.Signer, shape domain.TradeShape, asset common.Address, tokenID, price *big.Int, salt int64) (domain.Order, []byte) {
	f.t.Helper()

	o := domain.Order{
		Registry: f.registry,
		Maker:    maker.Address(),
		Shape:    shape,
		Terms: domain.ShapeTerms{
			Asset:   asset,
			TokenID: tokenID,
			Price:   price,
		},
		MaximumFill:    1,
		ListingTime:    0,
		ExpirationTime: 10_000_000_000,
		Salt:           big.NewInt(salt),
	}
	sig, err := maker.SignOrder(o)
	require.NoError(f.t, err)
	return o, sig
}

// request builds the full trade request for a seller/buyer pair, with the
// seller's asset-transfer call and the buyer's currency leg.
func (f *fixture) request(seller, buyer *crypto.Signer, asset common.Address, tokenID, price *big.Int, saltBase int64) domain.TradeRequest {
	sellOrder, sellSig := f.order(seller, domain.ShapeAssetForCurrency, asset, tokenID, price, saltBase)
	buyOrder, buySig := f.order(buyer, domain.ShapeCurrencyForAsset, asset, tokenID, price, saltBase+1)

	return domain.TradeRequest{
		OrderA: sellOrder,
		SigA:   sellSig,
		CallA: domain.Call{
			Target: asset,
			Kind:   domain.CallDirect,
			Transfer: domain.AssetTransfer{
				From:    seller.Address(),
				To:      buyer.Address(),
				TokenID: tokenID,
			},
		},
		OrderB: buyOrder,
		SigB:   buySig,
		CallB:  domain.Call{},
		Caller: buyer.Address(),
		Value:  price,
	}
}

func (f *fixture) balance(addr common.Address) *big.Int {
	bal, err := f.funds.Balance(context.Background(), addr)
	require.NoError(f.t, err)
	return bal
}

func (f *fixture) rewardBalance(addr common.Address) *big.Int {
	bal, err := f.rewards.BalanceOf(context.Background(), addr)
	require.NoError(f.t, err)
	return bal
}

func TestTradeSettlesAndMintsReward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seller, buyer := f.signers[0], f.signers[1]
	asset := common.HexToAddress("0x00000000000000000000000000000000000000e7")
	tokenID := big.NewInt(9912879027088)
	price := wei(122)

	require.NoError(t, f.assets.Mint(asset, tokenID, seller.Address()))
	f.assets.SetApprovalForAll(asset, seller.Address(), f.operator, true)
	require.NoError(t, f.funds.Credit(ctx, buyer.Address(), price))
	f.clock.Advance(10)

	s, err := f.engine.Trade(ctx, f.request(seller, buyer, asset, tokenID, price, 100))
	require.NoError(t, err)

	// Asset moved.
	owner, err := f.assets.OwnerOf(ctx, asset, tokenID)
	require.NoError(t, err)
	require.Equal(t, buyer.Address(), owner)

	// Fee split: 10% platform fee.
	fee := new(big.Int).Div(new(big.Int).Mul(price, big.NewInt(1000)), big.NewInt(10000))
	proceeds := new(big.Int).Sub(price, fee)
	require.Zero(t, f.balance(seller.Address()).Cmp(proceeds))
	require.Zero(t, f.balance(f.feeRecipient).Cmp(fee))
	require.Zero(t, f.balance(buyer.Address()).Sign())

	// First discovery at 122e18 after 10 blocks pays 13e18 (f=24, decay=1/2).
	require.Zero(t, f.rewardBalance(buyer.Address()).Cmp(wei(13)))
	require.Zero(t, f.rewardBalance(seller.Address()).Sign())
	require.Zero(t, s.Reward.Cmp(wei(13)))

	require.True(t, s.Primary)
	require.Zero(t, s.Price.Cmp(price))
	require.Equal(t, uint64(10), s.BlockHeight)

	// History recorded the new peak.
	hist, err := f.history.Get(ctx, domain.AssetKey{Contract: asset, TokenID: tokenID})
	require.NoError(t, err)
	require.Zero(t, hist.HighestPriceSold.Cmp(price))
	require.Equal(t, uint64(10), hist.LastTradeHeight)
}

func TestTradeRejectsForgedSignature(t *testing.T) {
	f := newFixture(t)

	seller, buyer, mallory := f.signers[0], f.signers[1], f.signers[2]
	asset := common.HexToAddress("0xe7")
	tokenID := big.NewInt(1)

	req := f.request(seller, buyer, asset, tokenID, wei(10), 100)

	// Mallory signs the seller's order.
	forged, err := mallory.SignOrder(req.OrderA)
	require.NoError(t, err)
	req.SigA = forged

	_, err = f.engine.Trade(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestTradeValidityWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seller, buyer := f.signers[0], f.signers[1]
	asset := common.HexToAddress("0xe7")
	tokenID := big.NewInt(1)

	req := f.request(seller, buyer, asset, tokenID, wei(10), 100)
	req.OrderA.ListingTime = 20_000_000_000 // far future
	sig, err := seller.SignOrder(req.OrderA)
	require.NoError(t, err)
	req.SigA = sig
	_, err = f.engine.Trade(ctx, req)
	require.ErrorIs(t, err, domain.ErrNotYetListed)

	req = f.request(seller, buyer, asset, tokenID, wei(10), 200)
	req.OrderB.ExpirationTime = 1 // long past
	sig, err = buyer.SignOrder(req.OrderB)
	require.NoError(t, err)
	req.SigB = sig
	_, err = f.engine.Trade(ctx, req)
	require.ErrorIs(t, err, domain.ErrExpired)
}

func TestTradeFillExhaustion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seller, buyer := f.signers[0], f.signers[1]
	asset := common.HexToAddress("0xe7")
	tokenID := big.NewInt(7)
	price := wei(2)

	require.NoError(t, f.assets.Mint(asset, tokenID, seller.Address()))
	f.assets.SetApprovalForAll(asset, seller.Address(), f.operator, true)
	require.NoError(t, f.funds.Credit(ctx, buyer.Address(), wei(10)))
	f.clock.Advance(5)

	req := f.request(seller, buyer, asset, tokenID, price, 100)
	_, err := f.engine.Trade(ctx, req)
	require.NoError(t, err)

	// Reusing the same signed orders must be rejected: maximumFill is 1.
	_, err = f.engine.Trade(ctx, req)
	require.ErrorIs(t, err, domain.ErrFillExceeded)
}

func TestTradeValuePolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seller, buyer := f.signers[0], f.signers[1]
	asset := common.HexToAddress("0xe7")
	tokenID := big.NewInt(3)
	price := wei(10)

	require.NoError(t, f.assets.Mint(asset, tokenID, seller.Address()))
	f.assets.SetApprovalForAll(asset, seller.Address(), f.operator, true)
	require.NoError(t, f.funds.Credit(ctx, buyer.Address(), wei(100)))

	// Short value is rejected.
	req := f.request(seller, buyer, asset, tokenID, price, 100)
	req.Value = wei(9)
	_, err := f.engine.Trade(ctx, req)
	require.ErrorIs(t, err, domain.ErrInsufficientValue)

	// Excess value is rejected too, not silently refunded.
	req.Value = wei(11)
	_, err = f.engine.Trade(ctx, req)
	require.ErrorIs(t, err, domain.ErrInsufficientValue)

	// Nothing moved across the failed attempts.
	owner, err := f.assets.OwnerOf(ctx, asset, tokenID)
	require.NoError(t, err)
	require.Equal(t, seller.Address(), owner)
	require.Zero(t, f.balance(buyer.Address()).Cmp(wei(100)))
}

func TestTradeAtomicityOnAssetLegFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seller, buyer := f.signers[0], f.signers[1]
	asset := common.HexToAddress("0xe7")
	tokenID := big.NewInt(4)
	price := wei(20)

	// The seller never approved the swap operator, so the asset leg fails.
	require.NoError(t, f.assets.Mint(asset, tokenID, seller.Address()))
	require.NoError(t, f.funds.Credit(ctx, buyer.Address(), price))
	f.clock.Advance(50)

	_, err := f.engine.Trade(ctx, f.request(seller, buyer, asset, tokenID, price, 100))
	require.ErrorIs(t, err, domain.ErrAssetTransferFailed)

	// State equals the pre-trade state: no currency moved, no reward, no
	// fill consumed, no history created.
	owner, err := f.assets.OwnerOf(ctx, asset, tokenID)
	require.NoError(t, err)
	require.Equal(t, seller.Address(), owner)
	require.Zero(t, f.balance(buyer.Address()).Cmp(price))
	require.Zero(t, f.balance(seller.Address()).Sign())
	require.Zero(t, f.balance(f.feeRecipient).Sign())
	require.Zero(t, f.rewardBalance(buyer.Address()).Sign())

	_, err = f.history.Get(ctx, domain.AssetKey{Contract: asset, TokenID: tokenID})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTradeBuyerCannotPay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seller, buyer := f.signers[0], f.signers[1]
	asset := common.HexToAddress("0xe7")
	tokenID := big.NewInt(5)
	price := wei(50)

	require.NoError(t, f.assets.Mint(asset, tokenID, seller.Address()))
	f.assets.SetApprovalForAll(asset, seller.Address(), f.operator, true)
	// Buyer holds less than the price.
	require.NoError(t, f.funds.Credit(ctx, buyer.Address(), wei(1)))

	_, err := f.engine.Trade(ctx, f.request(seller, buyer, asset, tokenID, price, 100))
	require.ErrorIs(t, err, domain.ErrInsufficientValue)

	owner, err := f.assets.OwnerOf(ctx, asset, tokenID)
	require.NoError(t, err)
	require.Equal(t, seller.Address(), owner)
}

func TestTradeCallerMustBeBuyer(t *testing.T) {
	f := newFixture(t)

	seller, buyer := f.signers[0], f.signers[1]
	asset := common.HexToAddress("0xe7")

	req := f.request(seller, buyer, asset, big.NewInt(6), wei(10), 100)
	req.Caller = seller.Address()

	_, err := f.engine.Trade(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestWhitelistGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	params := domain.DefaultMiningParams()
	params.WhitelistOnly = true
	require.NoError(t, f.params.SetMiningParams(ctx, params))

	seller, buyer := f.signers[0], f.signers[1]
	listed := common.HexToAddress("0x00000000000000000000000000000000000000d1")
	unlisted := common.HexToAddress("0x00000000000000000000000000000000000000d2")
	tokenID := big.NewInt(9912879027088)
	price := wei(122)

	for _, asset := range []common.Address{listed, unlisted} {
		require.NoError(t, f.assets.Mint(asset, tokenID, seller.Address()))
		f.assets.SetApprovalForAll(asset, seller.Address(), f.operator, true)
	}
	require.NoError(t, f.whitelist.SetWhitelisted(ctx, listed, true))
	require.NoError(t, f.funds.Credit(ctx, buyer.Address(), wei(244)))
	f.clock.Advance(10)

	// Whitelisted asset mines a reward.
	s, err := f.engine.Trade(ctx, f.request(seller, buyer, listed, tokenID, price, 100))
	require.NoError(t, err)
	require.Positive(t, s.Reward.Sign())

	minedBefore := f.rewardBalance(buyer.Address())

	// Non-whitelisted asset settles normally but mints nothing.
	s, err = f.engine.Trade(ctx, f.request(seller, buyer, unlisted, tokenID, price, 200))
	require.NoError(t, err)
	require.Zero(t, s.Reward.Sign())

	owner, err := f.assets.OwnerOf(ctx, unlisted, tokenID)
	require.NoError(t, err)
	require.Equal(t, buyer.Address(), owner)
	require.Zero(t, f.rewardBalance(buyer.Address()).Cmp(minedBefore))
	require.Zero(t, f.rewardBalance(seller.Address()).Sign())

	// Gated assets still get a first-sale marker, with no mining state.
	hist, err := f.history.Get(ctx, domain.AssetKey{Contract: unlisted, TokenID: tokenID})
	require.NoError(t, err)
	require.Zero(t, hist.HighestPriceSold.Sign())
	require.Zero(t, hist.LastTradeHeight)
}

func TestMiningMasterSwitch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	params := domain.DefaultMiningParams()
	params.Enabled = false
	require.NoError(t, f.params.SetMiningParams(ctx, params))

	seller, buyer := f.signers[0], f.signers[1]
	asset := common.HexToAddress("0xe7")
	tokenID := big.NewInt(8)
	price := wei(122)

	require.NoError(t, f.assets.Mint(asset, tokenID, seller.Address()))
	f.assets.SetApprovalForAll(asset, seller.Address(), f.operator, true)
	require.NoError(t, f.funds.Credit(ctx, buyer.Address(), price))
	f.clock.Advance(10)

	s, err := f.engine.Trade(ctx, f.request(seller, buyer, asset, tokenID, price, 100))
	require.NoError(t, err)
	require.Zero(t, s.Reward.Sign())
	require.Zero(t, f.rewardBalance(buyer.Address()).Sign())
}

func TestPrimaryThenSecondaryFee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.params.SetFeeConfig(ctx, domain.FeeConfig{
		Recipient:    f.feeRecipient,
		PrimaryBps:   1000, // 10%
		SecondaryBps: 250,  // 2.5%
	}))

	a, b, c := f.signers[0], f.signers[1], f.signers[2]
	asset := common.HexToAddress("0xe7")
	tokenID := big.NewInt(9)
	price := wei(100)

	require.NoError(t, f.assets.Mint(asset, tokenID, a.Address()))
	for _, s := range []*crypto.Signer{a, b, c} {
		f.assets.SetApprovalForAll(asset, s.Address(), f.operator, true)
	}
	require.NoError(t, f.funds.Credit(ctx, b.Address(), price))
	require.NoError(t, f.funds.Credit(ctx, c.Address(), price))
	f.clock.Advance(10)

	// First sale of the asset: primary fee.
	s1, err := f.engine.Trade(ctx, f.request(a, b, asset, tokenID, price, 100))
	require.NoError(t, err)
	require.True(t, s1.Primary)
	require.Zero(t, s1.PlatformFee.Cmp(wei(10)))

	f.clock.Advance(10)

	// Resale: secondary fee.
	s2, err := f.engine.Trade(ctx, f.request(b, c, asset, tokenID, price, 200))
	require.NoError(t, err)
	require.False(t, s2.Primary)
	expected := new(big.Int).Div(new(big.Int).Mul(price, big.NewInt(250)), big.NewInt(10000))
	require.Zero(t, s2.PlatformFee.Cmp(expected))
}

func TestSecondaryFeeWithMiningDisabled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	params := domain.DefaultMiningParams()
	params.Enabled = false
	require.NoError(t, f.params.SetMiningParams(ctx, params))
	require.NoError(t, f.params.SetFeeConfig(ctx, domain.FeeConfig{
		Recipient:    f.feeRecipient,
		PrimaryBps:   1000,
		SecondaryBps: 250,
	}))

	a, b, c := f.signers[0], f.signers[1], f.signers[2]
	asset := common.HexToAddress("0xe7")
	tokenID := big.NewInt(11)
	price := wei(100)

	require.NoError(t, f.assets.Mint(asset, tokenID, a.Address()))
	for _, s := range []*crypto.Signer{a, b, c} {
		f.assets.SetApprovalForAll(asset, s.Address(), f.operator, true)
	}
	require.NoError(t, f.funds.Credit(ctx, b.Address(), price))
	require.NoError(t, f.funds.Credit(ctx, c.Address(), price))
	f.clock.Advance(10)

	s1, err := f.engine.Trade(ctx, f.request(a, b, asset, tokenID, price, 100))
	require.NoError(t, err)
	require.True(t, s1.Primary)

	// The first sale mints no reward, but it must still mark the asset
	// as sold so the resale bills the secondary tier.
	f.clock.Advance(10)
	s2, err := f.engine.Trade(ctx, f.request(b, c, asset, tokenID, price, 200))
	require.NoError(t, err)
	require.False(t, s2.Primary)
	expected := new(big.Int).Div(new(big.Int).Mul(price, big.NewInt(250)), big.NewInt(10000))
	require.Zero(t, s2.PlatformFee.Cmp(expected))
}

func TestTradeOrderOrientationIrrelevant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seller, buyer := f.signers[0], f.signers[1]
	asset := common.HexToAddress("0xe7")
	tokenID := big.NewInt(11)
	price := wei(5)

	require.NoError(t, f.assets.Mint(asset, tokenID, seller.Address()))
	f.assets.SetApprovalForAll(asset, seller.Address(), f.operator, true)
	require.NoError(t, f.funds.Credit(ctx, buyer.Address(), price))
	f.clock.Advance(3)

	// Submit with the buy order in slot A and the sell order in slot B.
	req := f.request(seller, buyer, asset, tokenID, price, 100)
	req.OrderA, req.OrderB = req.OrderB, req.OrderA
	req.SigA, req.SigB = req.SigB, req.SigA
	req.CallA, req.CallB = req.CallB, req.CallA

	_, err := f.engine.Trade(ctx, req)
	require.NoError(t, err)

	owner, err := f.assets.OwnerOf(ctx, asset, tokenID)
	require.NoError(t, err)
	require.Equal(t, buyer.Address(), owner)
}
