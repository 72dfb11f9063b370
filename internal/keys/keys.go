// Package keys derives signing keypairs and classic addresses from family
// seed strings. Derivation is pure and deterministic: the same seed always
// yields the same keypair, its address, and the same deterministic
// signatures. Both seed kinds are supported, ed25519 ("sEd...") and
// secp256k1 ("s...") with the standard root-to-account family derivation.
package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // mandated by the ledger's address scheme
	"xrplnft.demo/xnd/internal/codec"
)

// ErrInvalidSeed reports a seed that does not decode to a keypair.
var ErrInvalidSeed = codec.ErrInvalidSeed

// The ledger tags ed25519 public keys with a leading 0xED so they occupy
// the same 33 bytes as a compressed secp256k1 point.
const ed25519Prefix = 0xED

// KeyPair is the signing material derived from one seed: the private key,
// the 33-byte canonical public key, and the classic address they hash to.
type KeyPair struct {
	kind    codec.SeedKind
	edPriv  ed25519.PrivateKey
	secPriv *secp256k1.PrivateKey
	public  []byte
	address string
}

// Derive decodes seed and derives its keypair and address. It performs no
// I/O and fails only with ErrInvalidSeed.
func Derive(seed string) (*KeyPair, error) {
	entropy, kind, err := codec.DecodeSeed(seed)
	if err != nil {
		return nil, err
	}

	kp := &KeyPair{kind: kind}
	switch kind {
	case codec.SeedEd25519:
		kp.edPriv = ed25519.NewKeyFromSeed(codec.SHA512Half(entropy))
		pub := kp.edPriv.Public().(ed25519.PublicKey)
		kp.public = append([]byte{ed25519Prefix}, pub...)
	case codec.SeedSecp256k1:
		priv, err := deriveAccountKey(entropy)
		if err != nil {
			return nil, err
		}
		kp.secPriv = priv
		kp.public = priv.PubKey().SerializeCompressed()
	default:
		return nil, fmt.Errorf("%w: unsupported algorithm", ErrInvalidSeed)
	}

	kp.address, err = codec.EncodeAddress(accountID(kp.public))
	if err != nil {
		return nil, err
	}
	return kp, nil
}

// Address returns the classic r-address for this keypair.
func (k *KeyPair) Address() string {
	return k.address
}

// PublicKey returns the 33-byte canonical public key.
func (k *KeyPair) PublicKey() []byte {
	return k.public
}

// PublicKeyHex returns the public key as uppercase hex, the form carried in
// a transaction's SigningPubKey field display.
func (k *KeyPair) PublicKeyHex() string {
	return fmt.Sprintf("%X", k.public)
}

// Sign signs a serialized signing payload (already carrying the signing
// prefix). ed25519 signs the payload bytes directly; secp256k1 signs the
// SHA512Half digest with deterministic low-S ECDSA, DER encoded.
func (k *KeyPair) Sign(payload []byte) ([]byte, error) {
	switch k.kind {
	case codec.SeedEd25519:
		return ed25519.Sign(k.edPriv, payload), nil
	case codec.SeedSecp256k1:
		digest := codec.SHA512Half(payload)
		sig := secpecdsa.Sign(k.secPriv, digest)
		return sig.Serialize(), nil
	}
	return nil, errors.New("keypair has no private key")
}

// Verify checks a signature produced by Sign against the same payload.
func (k *KeyPair) Verify(payload, signature []byte) bool {
	switch k.kind {
	case codec.SeedEd25519:
		return ed25519.Verify(k.edPriv.Public().(ed25519.PublicKey), payload, signature)
	case codec.SeedSecp256k1:
		sig, err := secpecdsa.ParseDERSignature(signature)
		if err != nil {
			return false
		}
		return sig.Verify(codec.SHA512Half(payload), k.secPriv.PubKey())
	}
	return false
}

// accountID hashes a canonical public key to its 20-byte ledger account ID.
func accountID(publicKey []byte) []byte {
	sha := sha256.Sum256(publicKey)
	h := ripemd160.New()
	h.Write(sha[:])
	return h.Sum(nil)
}

// deriveAccountKey runs the secp256k1 family derivation: hash the entropy to
// a root key, then offset it by an intermediate scalar derived from the root
// public key and account index zero.
func deriveAccountKey(entropy []byte) (*secp256k1.PrivateKey, error) {
	root, err := deriveScalar(entropy)
	if err != nil {
		return nil, err
	}
	rootPub := secp256k1.NewPrivateKey(root).PubKey().SerializeCompressed()

	material := make([]byte, 0, len(rootPub)+4)
	material = append(material, rootPub...)
	material = binary.BigEndian.AppendUint32(material, 0) // account family index
	intermediate, err := deriveScalar(material)
	if err != nil {
		return nil, err
	}

	var sum secp256k1.ModNScalar
	sum.Add2(root, intermediate)
	if sum.IsZero() {
		return nil, fmt.Errorf("%w: derived zero scalar", ErrInvalidSeed)
	}
	return secp256k1.NewPrivateKey(&sum), nil
}

// deriveScalar hashes material with an appended 32-bit counter until the
// result is a valid non-zero curve scalar. Almost always succeeds on the
// first counter value.
func deriveScalar(material []byte) (*secp256k1.ModNScalar, error) {
	for i := uint32(0); i < 0xFFFFFFFF; i++ {
		candidate := binary.BigEndian.AppendUint32(append([]byte(nil), material...), i)
		digest := codec.SHA512Half(candidate)

		var s secp256k1.ModNScalar
		if overflow := s.SetByteSlice(digest); overflow || s.IsZero() {
			continue
		}
		return &s, nil
	}
	return nil, fmt.Errorf("%w: no valid scalar found", ErrInvalidSeed)
}
