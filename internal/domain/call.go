package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CallKind is the execution mode of a proposed call.
type CallKind uint8

const (
	CallDirect CallKind = iota
	CallDelegate
)

// Call is an ephemeral, caller-proposed leg of a trade. For the asset leg,
// Target is the asset contract and Transfer describes the ownership change.
// For the native-currency leg, Target is the zero address and Transfer is
// unused; the currency movement is derived from the matched price.
type Call struct {
	Target   common.Address
	Kind     CallKind
	Transfer AssetTransfer
}

// AssetTransfer is the decoded payload of an asset-leg call.
type AssetTransfer struct {
	From    common.Address
	To      common.Address
	TokenID *big.Int
}

// IsCurrencyLeg reports whether the call is the native-currency leg of a
// trade (no contract invocation, value settled by the executor).
func (c Call) IsCurrencyLeg() bool {
	return c.Target == (common.Address{})
}
