// Package cryptoutil wraps the secp256k1 primitives nanochain needs:
// key generation, address derivation and DER-encoded ECDSA signatures.
//
// We use decred's dcrec/secp256k1 implementation rather than
// go-ethereum's crypto package because the wire format the spec
// requires (ASN.1 DER, verified independently of any recovery id) is
// what this library produces natively; go-ethereum's Sign/Ecrecover
// pair is built around 65-byte recoverable signatures instead.
package cryptoutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// AddressLen is the hex length of an uncompressed secp256k1 public key
// ("04" + 64-byte X||Y).
const AddressLen = 130

// GenerateKey creates a fresh secp256k1 private key.
func GenerateKey() (*secp256k1.PrivateKey, error) {
	return secp256k1.GeneratePrivateKey()
}

// PrivateKeyFromHex parses a 32-byte hex-encoded scalar.
func PrivateKeyFromHex(hexKey string) (*secp256k1.PrivateKey, error) {
	b, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	return secp256k1.PrivKeyFromBytes(b), nil
}

// PrivateKeyHex serializes a private key to a 32-byte hex scalar.
func PrivateKeyHex(priv *secp256k1.PrivateKey) string {
	b := priv.Serialize()
	return hex.EncodeToString(b)
}

// PublicKeyHex returns the 130-char "04"-prefixed uncompressed public
// key hex string the spec calls an address.
func PublicKeyHex(priv *secp256k1.PrivateKey) string {
	pub := priv.PubKey()
	return hex.EncodeToString(pub.SerializeUncompressed())
}

// IsValidAddress checks the address format spec.md §4.2 requires: a
// 130-char hex string beginning with "04".
func IsValidAddress(address string) bool {
	if len(address) != AddressLen {
		return false
	}
	if address[:2] != "04" {
		return false
	}
	_, err := hex.DecodeString(address)
	return err == nil
}

// Sha256Hex returns the lowercase hex SHA-256 digest of data.
func Sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Sign produces a DER-encoded ECDSA signature over hash, hex-encoded.
func Sign(priv *secp256k1.PrivateKey, hash [32]byte) string {
	sig := ecdsa.Sign(priv, hash[:])
	return hex.EncodeToString(sig.Serialize())
}

// Verify checks a hex DER signature over hash against a hex public key.
func Verify(addressHex, signatureHex string, hash [32]byte) (bool, error) {
	pubBytes, err := hex.DecodeString(addressHex)
	if err != nil {
		return false, fmt.Errorf("decode address: %w", err)
	}
	pub, err := secp256k1.ParsePubKey(pubBytes)
	if err != nil {
		return false, fmt.Errorf("parse public key: %w", err)
	}
	sigBytes, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false, fmt.Errorf("parse signature: %w", err)
	}
	return sig.Verify(hash[:], pub), nil
}
