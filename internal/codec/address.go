// Package codec implements the XRP Ledger wire encodings needed to build
// and sign transactions locally: the base58check address/seed alphabet and
// the canonical binary field serialization used for signing payloads and
// submitted transaction blobs.
package codec

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// The ledger uses its own base58 dictionary, not the Bitcoin one.
const alphabet = "rpshnaf39wBUDNEGHJKLM4PQRST7VWXYZ2bcdeCg65jkm8oFqi1tuvAxyz"

var xrplAlphabet = base58.NewAlphabet(alphabet)

// Payload type prefixes defined by the ledger's address codec.
var (
	prefixAccountID   = []byte{0x00}
	prefixSeedSecp256 = []byte{0x21}
	prefixSeedEd25519 = []byte{0x01, 0xE1, 0x4B}
)

const (
	accountIDLen  = 20
	seedEntropyLen = 16
	checksumLen   = 4
)

var (
	// ErrInvalidSeed reports a seed string that does not decode to key
	// material (bad alphabet, bad checksum, wrong prefix or length).
	ErrInvalidSeed = errors.New("invalid seed")

	// ErrInvalidAddress reports a classic address that does not decode to a
	// 20-byte account ID.
	ErrInvalidAddress = errors.New("invalid address")
)

// SeedKind identifies which signing algorithm a family seed selects.
type SeedKind int

const (
	SeedSecp256k1 SeedKind = iota
	SeedEd25519
)

func (k SeedKind) String() string {
	if k == SeedEd25519 {
		return "ed25519"
	}
	return "secp256k1"
}

func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:checksumLen]
}

func encodeChecked(payload []byte) string {
	buf := make([]byte, 0, len(payload)+checksumLen)
	buf = append(buf, payload...)
	buf = append(buf, checksum(payload)...)
	return base58.EncodeAlphabet(buf, xrplAlphabet)
}

func decodeChecked(s string) ([]byte, error) {
	raw, err := base58.DecodeAlphabet(s, xrplAlphabet)
	if err != nil {
		return nil, err
	}
	if len(raw) < checksumLen+1 {
		return nil, errors.New("payload too short")
	}
	payload := raw[:len(raw)-checksumLen]
	if !bytes.Equal(raw[len(raw)-checksumLen:], checksum(payload)) {
		return nil, errors.New("checksum mismatch")
	}
	return payload, nil
}

// DecodeSeed decodes a family seed string into its 16 bytes of entropy and
// the signing algorithm it selects.
func DecodeSeed(seed string) ([]byte, SeedKind, error) {
	payload, err := decodeChecked(seed)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	switch {
	case len(payload) == len(prefixSeedEd25519)+seedEntropyLen &&
		bytes.Equal(payload[:len(prefixSeedEd25519)], prefixSeedEd25519):
		return payload[len(prefixSeedEd25519):], SeedEd25519, nil
	case len(payload) == len(prefixSeedSecp256)+seedEntropyLen &&
		payload[0] == prefixSeedSecp256[0]:
		return payload[1:], SeedSecp256k1, nil
	}
	return nil, 0, fmt.Errorf("%w: unrecognized seed payload", ErrInvalidSeed)
}

// EncodeSeed encodes 16 bytes of entropy as a family seed string.
func EncodeSeed(entropy []byte, kind SeedKind) (string, error) {
	if len(entropy) != seedEntropyLen {
		return "", fmt.Errorf("%w: entropy must be %d bytes", ErrInvalidSeed, seedEntropyLen)
	}
	prefix := prefixSeedSecp256
	if kind == SeedEd25519 {
		prefix = prefixSeedEd25519
	}
	payload := make([]byte, 0, len(prefix)+seedEntropyLen)
	payload = append(payload, prefix...)
	payload = append(payload, entropy...)
	return encodeChecked(payload), nil
}

// EncodeAddress encodes a 20-byte account ID as a classic r-address.
func EncodeAddress(accountID []byte) (string, error) {
	if len(accountID) != accountIDLen {
		return "", fmt.Errorf("%w: account ID must be %d bytes", ErrInvalidAddress, accountIDLen)
	}
	payload := make([]byte, 0, 1+accountIDLen)
	payload = append(payload, prefixAccountID...)
	payload = append(payload, accountID...)
	return encodeChecked(payload), nil
}

// DecodeAddress decodes a classic r-address into its 20-byte account ID.
func DecodeAddress(address string) ([]byte, error) {
	payload, err := decodeChecked(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(payload) != 1+accountIDLen || payload[0] != prefixAccountID[0] {
		return nil, fmt.Errorf("%w: unrecognized address payload", ErrInvalidAddress)
	}
	return payload[1:], nil
}
