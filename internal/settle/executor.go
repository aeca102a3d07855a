package settle

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// Executor performs the two legs of a matched trade against the ledgers as
// one all-or-nothing unit. It acts as the operator each seller has approved
// on the asset contract ("swap agent").
type Executor struct {
	assets   domain.AssetLedger
	funds    domain.FundsLedger
	operator common.Address
}

// NewExecutor creates an Executor moving assets under the given operator
// identity.
func NewExecutor(assets domain.AssetLedger, funds domain.FundsLedger, operator common.Address) *Executor {
	return &Executor{assets: assets, funds: funds, operator: operator}
}

// Operator returns the swap-agent address sellers approve.
func (e *Executor) Operator() common.Address {
	return e.operator
}

// ExecResult reports the currency split of an executed trade.
type ExecResult struct {
	Price          *big.Int
	PlatformFee    *big.Int
	SellerProceeds *big.Int
}

// Execute settles a matched trade: the buyer's attached value is debited,
// the asset moves from seller to buyer, and the value is split between the
// seller and the platform fee recipient.
//
// The attached value must equal the resolved price exactly; excess value is
// rejected, not refunded. If the asset leg fails after the buyer's debit,
// the debit is reversed — no partial movement is observable.
func (e *Executor) Execute(ctx context.Context, m Match, value *big.Int, fee domain.FeeConfig, primary bool) (ExecResult, error) {
	if m.Price == nil || m.Price.Sign() < 0 {
		return ExecResult{}, fmt.Errorf("%w: invalid price", domain.ErrArithmeticOverflow)
	}
	if value == nil || value.Cmp(m.Price) != 0 {
		got := "nil"
		if value != nil {
			got = value.String()
		}
		return ExecResult{}, fmt.Errorf("%w: attached value %s, price %s",
			domain.ErrInsufficientValue, got, m.Price.String())
	}

	bps := fee.SecondaryBps
	if primary {
		bps = fee.PrimaryBps
	}
	platformFee := new(big.Int).Mul(m.Price, new(big.Int).SetUint64(bps))
	platformFee.Div(platformFee, big.NewInt(domain.BasisPointsDenom))
	proceeds := new(big.Int).Sub(m.Price, platformFee)

	// Escrow the buyer's value first: if the buyer cannot pay, nothing has
	// moved yet.
	if err := e.funds.Debit(ctx, m.Buyer, m.Price); err != nil {
		return ExecResult{}, err
	}

	// Asset leg. On failure, reverse the escrow so the trade leaves no
	// trace.
	if err := e.assets.TransferFrom(ctx, m.Asset, e.operator, m.Seller, m.Buyer, m.TokenID); err != nil {
		if refundErr := e.funds.Credit(ctx, m.Buyer, m.Price); refundErr != nil {
			return ExecResult{}, fmt.Errorf("settle: refund after failed transfer: %v: %w", refundErr, err)
		}
		return ExecResult{}, err
	}

	// Currency split. Credits of non-negative amounts cannot fail.
	if err := e.funds.Credit(ctx, m.Seller, proceeds); err != nil {
		return ExecResult{}, fmt.Errorf("settle: credit seller: %w", err)
	}
	if err := e.funds.Credit(ctx, fee.Recipient, platformFee); err != nil {
		return ExecResult{}, fmt.Errorf("settle: credit fee recipient: %w", err)
	}

	return ExecResult{
		Price:          new(big.Int).Set(m.Price),
		PlatformFee:    platformFee,
		SellerProceeds: proceeds,
	}, nil
}
