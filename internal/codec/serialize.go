package codec

import (
	"bytes"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// Serialization field type codes, in canonical sort order.
const (
	TypeUInt16    = 1
	TypeUInt32    = 2
	TypeHash256   = 5
	TypeAmount    = 6
	TypeBlob      = 7
	TypeAccountID = 8
)

// Native amounts set this bit to mark "positive XRP" in the 64-bit drop
// encoding.
const nativePositiveBit = 0x4000000000000000

// Transactions are signed over the serialized fields prefixed with the
// single-signer prefix "STX\0".
var signingPrefix = []byte{0x53, 0x54, 0x58, 0x00}

// Writer accumulates canonically encoded transaction fields. Callers must
// emit fields in canonical (type code, field code) order; Writer does not
// sort for them.
type Writer struct {
	buf bytes.Buffer
}

func (w *Writer) header(typ, nth int) {
	// One byte when both fit in a nibble, otherwise the low nibble is zero
	// and the field code follows. None of our fields need a type escape.
	if nth < 16 {
		w.buf.WriteByte(byte(typ<<4 | nth))
		return
	}
	w.buf.WriteByte(byte(typ << 4))
	w.buf.WriteByte(byte(nth))
}

// UInt16 writes a 16-bit field.
func (w *Writer) UInt16(nth int, v uint16) {
	w.header(TypeUInt16, nth)
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

// UInt32 writes a 32-bit field.
func (w *Writer) UInt32(nth int, v uint32) {
	w.header(TypeUInt32, nth)
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// Hash256 writes a 256-bit hash field from its hex form (NFTokenID).
func (w *Writer) Hash256(nth int, hexDigest string) error {
	raw, err := hex.DecodeString(hexDigest)
	if err != nil {
		return fmt.Errorf("hash256 field %d: %w", nth, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("hash256 field %d: got %d bytes, want 32", nth, len(raw))
	}
	w.header(TypeHash256, nth)
	w.buf.Write(raw)
	return nil
}

// Drops writes a native currency amount field from a drop count.
func (w *Writer) Drops(nth int, drops uint64) {
	w.header(TypeAmount, nth)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], drops|nativePositiveBit)
	w.buf.Write(b[:])
}

// Blob writes a variable-length field.
func (w *Writer) Blob(nth int, data []byte) error {
	w.header(TypeBlob, nth)
	return w.vl(data)
}

// AccountID writes an account field from its classic address form. Account
// fields are length-prefixed even though the ID is always 20 bytes.
func (w *Writer) AccountID(nth int, address string) error {
	id, err := DecodeAddress(address)
	if err != nil {
		return fmt.Errorf("account field %d: %w", nth, err)
	}
	w.header(TypeAccountID, nth)
	return w.vl(id)
}

func (w *Writer) vl(data []byte) error {
	n := len(data)
	switch {
	case n <= 192:
		w.buf.WriteByte(byte(n))
	case n <= 12480:
		n -= 193
		w.buf.WriteByte(byte(193 + n>>8))
		w.buf.WriteByte(byte(n & 0xFF))
	case n <= 918744:
		n -= 12481
		w.buf.WriteByte(byte(241 + n>>16))
		w.buf.WriteByte(byte(n >> 8 & 0xFF))
		w.buf.WriteByte(byte(n & 0xFF))
	default:
		return fmt.Errorf("blob of %d bytes exceeds encodable length", len(data))
	}
	w.buf.Write(data)
	return nil
}

// Bytes returns the serialized fields written so far.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// SigningPayload prepends the single-signer prefix to serialized fields,
// producing the message actually signed.
func SigningPayload(serialized []byte) []byte {
	out := make([]byte, 0, len(signingPrefix)+len(serialized))
	out = append(out, signingPrefix...)
	out = append(out, serialized...)
	return out
}

// SHA512Half is the ledger's standard hash: the first half of SHA-512.
func SHA512Half(data []byte) []byte {
	sum := sha512.Sum512(data)
	return sum[:32]
}

// BlobHex renders a serialized transaction as the uppercase hex expected in
// a submit request's tx_blob.
func BlobHex(serialized []byte) string {
	return strings.ToUpper(hex.EncodeToString(serialized))
}
