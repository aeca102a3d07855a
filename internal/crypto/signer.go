package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// Signer produces maker signatures over canonical order digests. In
// production the maker signs client-side; the engine only verifies. Signer
// is used by the sign CLI mode and by tests.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    int64
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key and
// the target chain ID.
func NewSigner(privateKeyHex string, chainID int64) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}

	return &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
		chainID:    chainID,
	}, nil
}

// Address returns the maker address derived from the signer's private key.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignOrder signs the canonical digest of order and returns the 65-byte
// r||s||v signature.
func (s *Signer) SignOrder(order domain.Order) ([]byte, error) {
	digest := OrderDigest(order, s.chainID)

	sig, err := ethcrypto.Sign(digest[:], s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: signing: %w", err)
	}

	// go-ethereum returns v in {0,1}; the wire form uses v in {27,28}.
	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}

// SignOrderHex signs order and returns the 0x-prefixed hex signature.
func (s *Signer) SignOrderHex(order domain.Order) (string, error) {
	sig, err := s.SignOrder(order)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(sig), nil
}
