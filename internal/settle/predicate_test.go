package settle

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

var (
	matchRegistry = common.HexToAddress("0xa1")
	matchSeller   = common.HexToAddress("0x01")
	matchBuyer    = common.HexToAddress("0x02")
	matchAsset    = common.HexToAddress("0xe7")
)

func matchOrder(maker common.Address, shape domain.TradeShape, price *big.Int) domain.Order {
	return domain.Order{
		Registry: matchRegistry,
		Maker:    maker,
		Shape:    shape,
		Terms: domain.ShapeTerms{
			Asset:   matchAsset,
			TokenID: big.NewInt(42),
			Price:   price,
		},
		MaximumFill: 1,
		Salt:        big.NewInt(1),
	}
}

func matchPair(askPrice, bidPrice *big.Int) (ValidatedOrder, domain.Call, ValidatedOrder, domain.Call) {
	sell := ValidatedOrder{Order: matchOrder(matchSeller, domain.ShapeAssetForCurrency, askPrice)}
	buy := ValidatedOrder{Order: matchOrder(matchBuyer, domain.ShapeCurrencyForAsset, bidPrice)}
	sellCall := domain.Call{
		Target: matchAsset,
		Kind:   domain.CallDirect,
		Transfer: domain.AssetTransfer{
			From:    matchSeller,
			To:      matchBuyer,
			TokenID: big.NewInt(42),
		},
	}
	return sell, sellCall, buy, domain.Call{}
}

func TestMatchOrdersResolvesBuyerPrice(t *testing.T) {
	sell, sellCall, buy, buyCall := matchPair(big.NewInt(100), big.NewInt(120))

	m, err := MatchOrders(sell, sellCall, buy, buyCall)
	require.NoError(t, err)
	require.Equal(t, matchSeller, m.Seller)
	require.Equal(t, matchBuyer, m.Buyer)
	require.Equal(t, matchAsset, m.Asset)
	require.Zero(t, m.TokenID.Cmp(big.NewInt(42)))
	// The buyer's offer is the resolved price, even above the ask.
	require.Zero(t, m.Price.Cmp(big.NewInt(120)))
	require.Equal(t, uint64(1), m.Fill)
}

func TestMatchOrdersRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(sell, buy *ValidatedOrder, sellCall, buyCall *domain.Call)
	}{
		{"bid below ask", func(_, buy *ValidatedOrder, _, _ *domain.Call) {
			buy.Order.Terms.Price = big.NewInt(99)
		}},
		{"registry mismatch", func(sell, _ *ValidatedOrder, _, _ *domain.Call) {
			sell.Order.Registry = common.HexToAddress("0xff")
		}},
		{"same shape both sides", func(_, buy *ValidatedOrder, _, _ *domain.Call) {
			buy.Order.Shape = domain.ShapeAssetForCurrency
		}},
		{"asset contract mismatch", func(_, buy *ValidatedOrder, _, _ *domain.Call) {
			buy.Order.Terms.Asset = common.HexToAddress("0xff")
		}},
		{"token mismatch", func(_, buy *ValidatedOrder, _, _ *domain.Call) {
			buy.Order.Terms.TokenID = big.NewInt(43)
		}},
		{"currency mismatch", func(_, buy *ValidatedOrder, _, _ *domain.Call) {
			buy.Order.Terms.Currency = common.HexToAddress("0xcc")
		}},
		{"transfer wrong token", func(_, _ *ValidatedOrder, sellCall, _ *domain.Call) {
			sellCall.Transfer.TokenID = big.NewInt(43)
		}},
		{"transfer wrong recipient", func(_, _ *ValidatedOrder, sellCall, _ *domain.Call) {
			sellCall.Transfer.To = common.HexToAddress("0x03")
		}},
		{"transfer not from maker", func(_, _ *ValidatedOrder, sellCall, _ *domain.Call) {
			sellCall.Transfer.From = common.HexToAddress("0x03")
		}},
		{"seller call wrong target", func(_, _ *ValidatedOrder, sellCall, _ *domain.Call) {
			sellCall.Target = common.HexToAddress("0xff")
		}},
		{"buyer call not currency leg", func(_, _ *ValidatedOrder, _, buyCall *domain.Call) {
			buyCall.Target = matchAsset
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sell, sellCall, buy, buyCall := matchPair(big.NewInt(100), big.NewInt(100))
			tt.mutate(&sell, &buy, &sellCall, &buyCall)
			_, err := MatchOrders(sell, sellCall, buy, buyCall)
			require.ErrorIs(t, err, domain.ErrPredicateMismatch)
		})
	}
}

func TestMatchOrdersAcceptsEitherSlotOrder(t *testing.T) {
	sell, sellCall, buy, buyCall := matchPair(big.NewInt(100), big.NewInt(100))

	m, err := MatchOrders(buy, buyCall, sell, sellCall)
	require.NoError(t, err)
	require.Equal(t, matchSeller, m.Seller)
	require.Equal(t, matchBuyer, m.Buyer)
}
