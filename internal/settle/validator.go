// Package settle implements the settlement core: order validation, the
// trade-shape matcher, the atomic swap executor, and the engine that drives
// a trade through validation, execution, and reward issuance as one
// indivisible unit.
package settle

import (
	"context"
	"fmt"
	"time"

	"github.com/mosaicmarkets/mosaicd/internal/crypto"
	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// ValidatedOrder is the handle produced by a successful validation: the
// order, its canonical hash, and its current fill.
type ValidatedOrder struct {
	Order domain.Order
	Hash  domain.OrderHash
	Fill  uint64
}

// Validator checks order signatures, validity windows, and fill state. It
// never mutates anything.
type Validator struct {
	verifier *crypto.Verifier
	fills    domain.FillStore
	now      func() time.Time
}

// NewValidator creates a Validator reading fill state from fills.
func NewValidator(verifier *crypto.Verifier, fills domain.FillStore) *Validator {
	return &Validator{
		verifier: verifier,
		fills:    fills,
		now:      time.Now,
	}
}

// Validate verifies sig was produced by order.Maker over the canonical order
// tuple, that the order is inside its validity window, and that its fill
// record has room left. On success it returns the validated-order handle.
func (v *Validator) Validate(ctx context.Context, order domain.Order, sig []byte) (ValidatedOrder, error) {
	if err := v.verifier.VerifyOrder(order, sig); err != nil {
		return ValidatedOrder{}, err
	}

	now := uint64(v.now().Unix())
	if now < order.ListingTime {
		return ValidatedOrder{}, fmt.Errorf("%w: listing time %d", domain.ErrNotYetListed, order.ListingTime)
	}
	if order.ExpirationTime != 0 && now > order.ExpirationTime {
		return ValidatedOrder{}, fmt.Errorf("%w: expiration time %d", domain.ErrExpired, order.ExpirationTime)
	}

	hash := crypto.OrderDigest(order, v.verifier.ChainID())
	fill, err := v.fills.Fill(ctx, hash)
	if err != nil {
		return ValidatedOrder{}, fmt.Errorf("settle: read fill for %s: %w", hash.Hex(), err)
	}
	if fill >= order.MaximumFill {
		return ValidatedOrder{}, fmt.Errorf("%w: fill %d of %d consumed", domain.ErrFillExceeded, fill, order.MaximumFill)
	}

	return ValidatedOrder{Order: order, Hash: hash, Fill: fill}, nil
}
