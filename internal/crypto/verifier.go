package crypto

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// Verifier checks maker signatures on the engine side by recovering the
// signing address from the canonical order digest.
type Verifier struct {
	chainID int64
}

// NewVerifier creates a Verifier bound to the given chain ID.
func NewVerifier(chainID int64) *Verifier {
	return &Verifier{chainID: chainID}
}

// ChainID returns the chain the verifier is bound to.
func (v *Verifier) ChainID() int64 {
	return v.chainID
}

// RecoverMaker returns the address that produced sig over the canonical
// digest of order.
func (v *Verifier) RecoverMaker(order domain.Order, sig []byte) (common.Address, error) {
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("%w: signature length %d", domain.ErrInvalidSignature, len(sig))
	}

	digest := OrderDigest(order, v.chainID)

	// Normalize v from {27,28} to the {0,1} recovery ID Ecrecover expects.
	norm := make([]byte, 65)
	copy(norm, sig)
	if norm[64] >= 27 {
		norm[64] -= 27
	}

	pub, err := ethcrypto.SigToPub(digest[:], norm)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// VerifyOrder confirms sig was produced by order.Maker. It returns
// domain.ErrInvalidSignature when the recovered address differs.
func (v *Verifier) VerifyOrder(order domain.Order, sig []byte) error {
	recovered, err := v.RecoverMaker(order, sig)
	if err != nil {
		return err
	}
	if recovered != order.Maker {
		return fmt.Errorf("%w: signed by %s, maker is %s",
			domain.ErrInvalidSignature, recovered.Hex(), order.Maker.Hex())
	}
	return nil
}
