package crypto

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// Well-known local-node account #0.
const (
	testKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	testChainID = 1337
)

func testOrder() domain.Order {
	return domain.Order{
		Registry: common.HexToAddress("0x00000000000000000000000000000000000000e1"),
		Maker:    common.HexToAddress(testAddress),
		Shape:    domain.ShapeAssetForCurrency,
		Terms: domain.ShapeTerms{
			Asset:   common.HexToAddress("0x00000000000000000000000000000000000000a1"),
			TokenID: big.NewInt(7),
			Price:   big.NewInt(100),
		},
		MaximumFill: 1,
		Salt:        big.NewInt(42),
	}
}

func TestSignerAddressDerivation(t *testing.T) {
	s, err := NewSigner(testKey, testChainID)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(testAddress), s.Address())

	// 0x prefix is accepted.
	s2, err := NewSigner("0x"+testKey, testChainID)
	require.NoError(t, err)
	require.Equal(t, s.Address(), s2.Address())
}

func TestNewSignerRejectsBadKey(t *testing.T) {
	_, err := NewSigner("not-hex", testChainID)
	require.Error(t, err)
}

func TestSignAndRecoverRoundtrip(t *testing.T) {
	s, err := NewSigner(testKey, testChainID)
	require.NoError(t, err)

	order := testOrder()
	sig, err := s.SignOrder(order)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	require.GreaterOrEqual(t, sig[64], byte(27))

	v := NewVerifier(testChainID)
	recovered, err := v.RecoverMaker(order, sig)
	require.NoError(t, err)
	require.Equal(t, s.Address(), recovered)
	require.NoError(t, v.VerifyOrder(order, sig))
}

func TestVerifyOrderDetectsTampering(t *testing.T) {
	s, err := NewSigner(testKey, testChainID)
	require.NoError(t, err)

	order := testOrder()
	sig, err := s.SignOrder(order)
	require.NoError(t, err)

	tampered := order
	tampered.Terms.Price = big.NewInt(1)
	err = NewVerifier(testChainID).VerifyOrder(tampered, sig)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestVerifyOrderRejectsWrongMaker(t *testing.T) {
	s, err := NewSigner(testKey, testChainID)
	require.NoError(t, err)

	order := testOrder()
	order.Maker = common.HexToAddress("0x00000000000000000000000000000000000000ff")
	sig, err := s.SignOrder(order)
	require.NoError(t, err)

	err = NewVerifier(testChainID).VerifyOrder(order, sig)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestVerifyOrderRejectsShortSignature(t *testing.T) {
	err := NewVerifier(testChainID).VerifyOrder(testOrder(), []byte{1, 2, 3})
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestDigestIsDomainSeparated(t *testing.T) {
	order := testOrder()
	base := OrderDigest(order, testChainID)

	require.NotEqual(t, base, OrderDigest(order, testChainID+1),
		"digest must change with the chain ID")

	other := order
	other.Registry = common.HexToAddress("0x00000000000000000000000000000000000000e2")
	require.NotEqual(t, base, OrderDigest(other, testChainID),
		"digest must change with the registry")

	resalted := order
	resalted.Salt = big.NewInt(43)
	require.NotEqual(t, base, OrderDigest(resalted, testChainID))
}

func TestSignatureFromOtherChainDoesNotVerify(t *testing.T) {
	s, err := NewSigner(testKey, testChainID)
	require.NoError(t, err)

	order := testOrder()
	sig, err := s.SignOrder(order)
	require.NoError(t, err)

	err = NewVerifier(testChainID+1).VerifyOrder(order, sig)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
}
