// Package leaf derives deterministic leaf commitments from credentials.
// The pipeline is fixed: Keccak-256 over the UTF-8 bytes, big-endian
// reduction into the BN254 scalar field, Poseidon arity-1 per input, then
// Poseidon arity-2 over the pair. The external registry was populated
// with this exact pipeline, so any change here silently orphans every
// registered leaf.
package leaf

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"

	"golang.org/x/crypto/sha3"

	"zkgate/go-backend/internal/poseidon"
)

// ErrInvalidInput marks a malformed email or an empty secret.
var ErrInvalidInput = errors.New("invalid credential input")

// Leaf is a public commitment to a credential, a field element in 32-byte
// big-endian form. Safe to transmit, store, and log in truncated form.
type Leaf [32]byte

// Hex returns the lowercase hex transport encoding, zero-padded to 64
// characters.
func (l Leaf) Hex() string {
	return hex.EncodeToString(l[:])
}

// Element returns the leaf as a field element.
func (l Leaf) Element() *big.Int {
	return new(big.Int).SetBytes(l[:])
}

// ParseHex decodes a 64-character hex string into a Leaf. The decoded
// value must lie in the scalar field.
func ParseHex(s string) (Leaf, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Leaf{}, fmt.Errorf("%w: leaf is not valid hex", ErrInvalidInput)
	}
	if len(raw) != 32 {
		return Leaf{}, fmt.Errorf("%w: leaf must be 32 bytes, got %d", ErrInvalidInput, len(raw))
	}
	if new(big.Int).SetBytes(raw).Cmp(poseidon.Modulus()) >= 0 {
		return Leaf{}, fmt.Errorf("%w: leaf exceeds field modulus", ErrInvalidInput)
	}
	var l Leaf
	copy(l[:], raw)
	return l, nil
}

// FromElement serializes a field element as a left-padded 32-byte leaf.
func FromElement(v *big.Int) Leaf {
	var l Leaf
	v.FillBytes(l[:])
	return l
}

// NormalizeEmail trims surrounding whitespace and lowercases the address,
// then checks it parses as a bare RFC 5322 address. Internal whitespace
// and Unicode forms are deliberately left untouched: the registry anchored
// leaves with this exact normalization, and diverging from it would
// produce different, unregistered leaves rather than errors.
func NormalizeEmail(email string) (string, error) {
	norm := strings.ToLower(strings.TrimSpace(email))
	if norm == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(norm)
	if err != nil || addr.Address != norm {
		return "", fmt.Errorf("%w: malformed email address", ErrInvalidInput)
	}
	return norm, nil
}

// Derive computes the leaf commitment for a credential. Pure and
// order-sensitive: (email, secret) and (secret, email) yield different
// leaves. The secret is hashed as given, with no normalization.
func Derive(email, secret string) (Leaf, error) {
	norm, err := NormalizeEmail(email)
	if err != nil {
		return Leaf{}, err
	}
	if secret == "" {
		return Leaf{}, fmt.Errorf("%w: secret is required", ErrInvalidInput)
	}

	emailHash, secretHash := PreimageHashes(norm, secret)
	return FromElement(poseidon.Hash(emailHash, secretHash)), nil
}

// PreimageHashes returns the two Poseidon arity-1 digests that form the
// leaf preimage. These are the private witness values of the leaf
// circuit; the caller must already have normalized the email.
func PreimageHashes(normalizedEmail, secret string) (*big.Int, *big.Int) {
	emailHash := poseidon.Hash(reduceToField([]byte(normalizedEmail)))
	secretHash := poseidon.Hash(reduceToField([]byte(secret)))
	return emailHash, secretHash
}

// reduceToField digests the input with Keccak-256, interprets the digest
// as a big-endian integer, and reduces it modulo the scalar field.
func reduceToField(data []byte) *big.Int {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	v := new(big.Int).SetBytes(h.Sum(nil))
	return v.Mod(v, poseidon.Modulus())
}
