package settle

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// Match is the agreed outcome of two complementary orders: who sells, who
// buys, what moves, and at which resolved price.
type Match struct {
	Seller  common.Address
	Buyer   common.Address
	Asset   common.Address
	TokenID *big.Int
	Price   *big.Int
	Fill    uint64

	SellOrder ValidatedOrder
	BuyOrder  ValidatedOrder
}

// MatchOrders runs the symmetric predicate check: each order's declared
// trade shape is evaluated against the counter-order's proposed call, and
// both must accept. Any disagreement yields domain.ErrPredicateMismatch.
func MatchOrders(a ValidatedOrder, callA domain.Call, b ValidatedOrder, callB domain.Call) (Match, error) {
	if a.Order.Registry != b.Order.Registry {
		return Match{}, fmt.Errorf("%w: orders bound to different registries", domain.ErrPredicateMismatch)
	}
	if a.Order.Shape.Counterpart() != b.Order.Shape {
		return Match{}, fmt.Errorf("%w: shapes %s and %s are not reciprocal",
			domain.ErrPredicateMismatch, a.Order.Shape, b.Order.Shape)
	}

	sell, sellCall := a, callA
	buy, buyCall := b, callB
	if a.Order.Shape == domain.ShapeCurrencyForAsset {
		sell, sellCall = b, callB
		buy, buyCall = a, callA
	}

	if err := evalAssetForCurrency(sell, sellCall, buy, buyCall); err != nil {
		return Match{}, err
	}
	if err := evalCurrencyForAsset(buy, buyCall, sell); err != nil {
		return Match{}, err
	}

	// The buyer pays what they committed to; the seller's price is a floor.
	return Match{
		Seller:    sell.Order.Maker,
		Buyer:     buy.Order.Maker,
		Asset:     sell.Order.Terms.Asset,
		TokenID:   sell.Order.Terms.TokenID,
		Price:     new(big.Int).Set(buy.Order.Terms.Price),
		Fill:      1,
		SellOrder: sell,
		BuyOrder:  buy,
	}, nil
}

// evalAssetForCurrency is the seller-side predicate: the seller's own call
// must transfer exactly the listed token from the seller to the buyer, and
// the buyer's order must pay at least the listed price in the same currency.
func evalAssetForCurrency(sell ValidatedOrder, sellCall domain.Call, buy ValidatedOrder, buyCall domain.Call) error {
	terms := sell.Order.Terms

	if terms.Currency != (common.Address{}) {
		return fmt.Errorf("%w: only the native currency leg is supported", domain.ErrPredicateMismatch)
	}
	if sellCall.IsCurrencyLeg() || sellCall.Kind != domain.CallDirect {
		return fmt.Errorf("%w: seller call is not a direct asset transfer", domain.ErrPredicateMismatch)
	}
	if sellCall.Target != terms.Asset {
		return fmt.Errorf("%w: seller call targets %s, order lists asset %s",
			domain.ErrPredicateMismatch, sellCall.Target.Hex(), terms.Asset.Hex())
	}
	if sellCall.Transfer.TokenID == nil || terms.TokenID == nil ||
		sellCall.Transfer.TokenID.Cmp(terms.TokenID) != 0 {
		return fmt.Errorf("%w: seller call token does not match order", domain.ErrPredicateMismatch)
	}
	if sellCall.Transfer.From != sell.Order.Maker {
		return fmt.Errorf("%w: seller call moves a token the maker does not offer", domain.ErrPredicateMismatch)
	}
	if sellCall.Transfer.To != buy.Order.Maker {
		return fmt.Errorf("%w: seller call recipient is not the buyer", domain.ErrPredicateMismatch)
	}
	if !buyCall.IsCurrencyLeg() {
		return fmt.Errorf("%w: buyer call is not the currency leg", domain.ErrPredicateMismatch)
	}
	if buy.Order.Terms.Price == nil || terms.Price == nil ||
		buy.Order.Terms.Price.Cmp(terms.Price) < 0 {
		return fmt.Errorf("%w: buyer price below seller ask", domain.ErrPredicateMismatch)
	}
	return nil
}

// evalCurrencyForAsset is the buyer-side predicate: the buyer's order terms
// must name the same asset, token, and currency as the seller's.
func evalCurrencyForAsset(buy ValidatedOrder, buyCall domain.Call, sell ValidatedOrder) error {
	bt, st := buy.Order.Terms, sell.Order.Terms

	if buyCall.Kind != domain.CallDirect {
		return fmt.Errorf("%w: buyer call mode", domain.ErrPredicateMismatch)
	}
	if bt.Asset != st.Asset {
		return fmt.Errorf("%w: buyer wants asset %s, seller offers %s",
			domain.ErrPredicateMismatch, bt.Asset.Hex(), st.Asset.Hex())
	}
	if bt.TokenID == nil || st.TokenID == nil || bt.TokenID.Cmp(st.TokenID) != 0 {
		return fmt.Errorf("%w: buyer token does not match seller token", domain.ErrPredicateMismatch)
	}
	if bt.Currency != st.Currency {
		return fmt.Errorf("%w: currency mismatch", domain.ErrPredicateMismatch)
	}
	return nil
}
