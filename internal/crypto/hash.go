// Package crypto implements canonical order hashing, maker-side signing, and
// engine-side signature verification for settlement orders, plus encrypted
// key storage for the sign CLI mode.
package crypto

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// EIP-712 domain constants. The registry address acts as the verifying
// contract, so the same order tuple signed for a different registry or chain
// produces a different digest.
const (
	domainName    = "Mosaic Marketplace"
	domainVersion = "1"
)

var (
	// EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)
	eip712DomainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"),
	)

	// Order(address registry,address maker,uint8 shape,address asset,address currency,uint256 tokenId,uint256 price,uint256 maximumFill,uint256 listingTime,uint256 expirationTime,uint256 salt)
	orderTypeHash = ethcrypto.Keccak256(
		[]byte("Order(address registry,address maker,uint8 shape,address asset,address currency,uint256 tokenId,uint256 price,uint256 maximumFill,uint256 listingTime,uint256 expirationTime,uint256 salt)"),
	)
)

// OrderDigest computes the canonical signing digest of an order:
//
//	keccak256("\x19\x01" || domainSeparator(chainID, registry) || structHash(order))
func OrderDigest(order domain.Order, chainID int64) domain.OrderHash {
	digest := ethcrypto.Keccak256(
		concatBytes(
			[]byte{0x19, 0x01},
			domainSeparator(chainID, order.Registry),
			orderStructHash(order),
		),
	)

	var h domain.OrderHash
	copy(h[:], digest)
	return h
}

// domainSeparator returns keccak256(abi.encode(typeHash, nameHash,
// versionHash, chainId, registry)).
func domainSeparator(chainID int64, registry common.Address) []byte {
	return ethcrypto.Keccak256(
		concatBytes(
			eip712DomainTypeHash,
			ethcrypto.Keccak256([]byte(domainName)),
			ethcrypto.Keccak256([]byte(domainVersion)),
			bigIntTo32Bytes(big.NewInt(chainID)),
			common.LeftPadBytes(registry.Bytes(), 32),
		),
	)
}

// orderStructHash encodes and hashes the order tuple field by field, each
// value left-padded to 32 bytes.
func orderStructHash(o domain.Order) []byte {
	return ethcrypto.Keccak256(
		concatBytes(
			orderTypeHash,
			common.LeftPadBytes(o.Registry.Bytes(), 32),
			common.LeftPadBytes(o.Maker.Bytes(), 32),
			bigIntTo32Bytes(big.NewInt(int64(o.Shape))),
			common.LeftPadBytes(o.Terms.Asset.Bytes(), 32),
			common.LeftPadBytes(o.Terms.Currency.Bytes(), 32),
			bigIntTo32Bytes(orZero(o.Terms.TokenID)),
			bigIntTo32Bytes(orZero(o.Terms.Price)),
			bigIntTo32Bytes(new(big.Int).SetUint64(o.MaximumFill)),
			bigIntTo32Bytes(new(big.Int).SetUint64(o.ListingTime)),
			bigIntTo32Bytes(new(big.Int).SetUint64(o.ExpirationTime)),
			bigIntTo32Bytes(orZero(o.Salt)),
		),
	)
}

func orZero(n *big.Int) *big.Int {
	if n == nil {
		return new(big.Int)
	}
	return n
}

// bigIntTo32Bytes returns a 32-byte big-endian representation of n.
func bigIntTo32Bytes(n *big.Int) []byte {
	b := n.Bytes()
	if len(b) >= 32 {
		return b[:32]
	}
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	return padded
}

// concatBytes concatenates multiple byte slices into one.
func concatBytes(slices ...[]byte) []byte {
	total := 0
	for _, s := range slices {
		total += len(s)
	}
	buf := make([]byte, 0, total)
	for _, s := range slices {
		buf = append(buf, s...)
	}
	return buf
}
