package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AssetKey identifies a single traded asset: a contract plus a token ID.
type AssetKey struct {
	Contract common.Address
	TokenID  *big.Int
}

// String renders the key in "0xcontract:tokenID" form, used as a storage and
// cache key.
func (k AssetKey) String() string {
	tok := "0"
	if k.TokenID != nil {
		tok = k.TokenID.String()
	}
	return k.Contract.Hex() + ":" + tok
}

// AssetHistory is the per-asset trade metadata the reward engine reads and
// updates. Records are created lazily on the first qualifying trade and are
// never deleted.
type AssetHistory struct {
	Key              AssetKey
	HighestPriceSold *big.Int // highest price ever observed for this asset
	LastTradeHeight  uint64   // block height of the last qualifying trade
}

// EmptyHistory returns the zero history for an asset that has never traded:
// no recorded peak and a last-trade height of 0.
func EmptyHistory(key AssetKey) AssetHistory {
	return AssetHistory{
		Key:              key,
		HighestPriceSold: new(big.Int),
		LastTradeHeight:  0,
	}
}
