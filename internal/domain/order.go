// Package domain defines the core types of the settlement engine: signed
// orders, proposed calls, fill records, per-asset trade history, and the
// liquidity-mining parameters, plus the store and ledger interfaces the
// engine depends on.
package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TradeShape identifies which side of a trade an order represents. It is a
// closed set: every order declares exactly one shape, and the matcher checks
// that the two shapes of a trade are reciprocal.
type TradeShape uint8

const (
	// ShapeAssetForCurrency is the seller side: "transfer my asset in
	// exchange for at least Price units of currency".
	ShapeAssetForCurrency TradeShape = iota
	// ShapeCurrencyForAsset is the buyer side: "pay Price units of currency
	// in exchange for the asset".
	ShapeCurrencyForAsset
)

func (s TradeShape) String() string {
	switch s {
	case ShapeAssetForCurrency:
		return "asset_for_currency"
	case ShapeCurrencyForAsset:
		return "currency_for_asset"
	default:
		return "unknown"
	}
}

// Counterpart returns the shape a matching counter-order must declare.
func (s TradeShape) Counterpart() TradeShape {
	if s == ShapeAssetForCurrency {
		return ShapeCurrencyForAsset
	}
	return ShapeAssetForCurrency
}

// ShapeTerms parameterizes a trade shape: which asset is traded, against
// which currency (the zero address means the native currency), for which
// token identifier, at which price.
type ShapeTerms struct {
	Asset    common.Address
	Currency common.Address // zero address = native currency
	TokenID  *big.Int
	Price    *big.Int
}

// Order is a signed statement of intent to trade. The (Maker, Salt) pair is
// unique per logical order; the signature covers the full canonical tuple,
// domain-separated by chain ID and registry so it cannot be replayed in
// another context.
type Order struct {
	Registry       common.Address // authorization domain the order is bound to
	Maker          common.Address
	Shape          TradeShape
	Terms          ShapeTerms
	MaximumFill    uint64
	ListingTime    uint64 // unix seconds; order invalid before this
	ExpirationTime uint64 // unix seconds; 0 means no expiry
	Salt           *big.Int
}

// OrderHash is the canonical 32-byte identity of an order, as produced by
// crypto.OrderDigest. Fill records are keyed by it.
type OrderHash [32]byte

// Hex returns the 0x-prefixed hex encoding of the hash.
func (h OrderHash) Hex() string {
	return "0x" + common.Bytes2Hex(h[:])
}

// FillRecord tracks how much of an order's MaximumFill has been consumed.
// It is mutated only by the settlement engine after a successful trade.
type FillRecord struct {
	Order OrderHash
	Fill  uint64
}
