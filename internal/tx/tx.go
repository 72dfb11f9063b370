// Package tx constructs the unsigned transaction payloads the demo submits:
// NFTokenMint and the two NFTokenCreateOffer variants. Construction is pure,
// validates its inputs before any network activity, and leaves signing to
// the caller.
package tx

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"xrplnft.demo/xnd/internal/codec"
	"xrplnft.demo/xnd/internal/keys"
)

// Validation failures. All are reported before a transaction is built.
var (
	ErrInvalidMintParameters = errors.New("invalid mint parameters")
	ErrInvalidAmount         = errors.New("invalid offer amount")
	ErrMissingOwner          = errors.New("buy offer requires an owner")
)

// Transaction type names and type codes.
const (
	TypeNFTokenMint        = "NFTokenMint"
	TypeNFTokenCreateOffer = "NFTokenCreateOffer"

	codeNFTokenMint        = 25
	codeNFTokenCreateOffer = 27
)

// FixedFee is the flat fee, in drops, carried by every transaction this
// demo submits. No dynamic fee estimation.
const FixedFee = "10"

// MintFlags is the NFTokenMint flag bitmask.
type MintFlags uint32

const (
	FlagBurnable     MintFlags = 1 // issuer may burn the token
	FlagOnlyXRP      MintFlags = 2 // offers must be denominated in XRP
	FlagTrustLine    MintFlags = 4 // issuer may hold a trust line for fees
	FlagTransferable MintFlags = 8 // token may be transferred between holders
)

// Offer direction discriminants for NFTokenCreateOffer's Flags field.
const (
	OfferFlagBuy  uint32 = 0
	OfferFlagSell uint32 = 1
)

// MintRequest carries the caller-supplied inputs for an NFTokenMint.
type MintRequest struct {
	Account     string    `json:"account"`
	TransferFee int       `json:"transfer_fee"` // basis points
	Taxon       int       `json:"taxon"`
	URI         string    `json:"uri"`
	Flags       MintFlags `json:"flags"`
}

// OfferCreateRequest carries the caller-supplied inputs for an
// NFTokenCreateOffer. Flags selects the variant: OfferFlagSell offers the
// signer's own token (Owner ignored, Destination optional), OfferFlagBuy
// bids on someone else's (Owner required, Destination ignored).
type OfferCreateRequest struct {
	Account     string `json:"account"`
	Owner       string `json:"owner,omitempty"`
	TokenID     string `json:"token_id"`
	Amount      string `json:"amount"` // drops
	Flags       uint32 `json:"flags"`
	Destination string `json:"destination,omitempty"`
}

// Transaction is an unsigned (until SignWith) transaction payload. Optional
// fields are pointers or omitempty so the marshaled form carries exactly
// the fields the variant permits.
type Transaction struct {
	TransactionType string  `json:"TransactionType"`
	Account         string  `json:"Account"`
	Owner           string  `json:"Owner,omitempty"`
	TransferFee     *uint16 `json:"TransferFee,omitempty"`
	NFTokenTaxon    *uint32 `json:"NFTokenTaxon,omitempty"`
	NFTokenID       string  `json:"NFTokenID,omitempty"`
	Amount          string  `json:"Amount,omitempty"`
	Flags           uint32  `json:"Flags"`
	Fee             string  `json:"Fee"`
	URI             string  `json:"URI,omitempty"`
	Sequence        uint32  `json:"Sequence"`
	Destination     string  `json:"Destination,omitempty"`
	SigningPubKey   string  `json:"SigningPubKey,omitempty"`
	TxnSignature    string  `json:"TxnSignature,omitempty"`
}

// BuildMint builds an unsigned NFTokenMint from req at the given account
// sequence.
func BuildMint(req MintRequest, sequence uint32) (*Transaction, error) {
	if req.TransferFee < 0 || req.Taxon < 0 {
		return nil, fmt.Errorf("%w: transfer fee and taxon must be non-negative", ErrInvalidMintParameters)
	}
	if req.TransferFee > 0xFFFF {
		return nil, fmt.Errorf("%w: transfer fee %d out of range", ErrInvalidMintParameters, req.TransferFee)
	}

	fee := uint16(req.TransferFee)
	taxon := uint32(req.Taxon)
	return &Transaction{
		TransactionType: TypeNFTokenMint,
		Account:         req.Account,
		TransferFee:     &fee,
		NFTokenTaxon:    &taxon,
		Flags:           uint32(req.Flags),
		Fee:             FixedFee,
		URI:             req.URI,
		Sequence:        sequence,
	}, nil
}

// BuildOfferCreate builds an unsigned NFTokenCreateOffer from req at the
// given account sequence. A sell offer never carries Owner (it is implicitly
// the signer); a buy offer must name the token's current owner and never
// carries Destination.
func BuildOfferCreate(req OfferCreateRequest, sequence uint32) (*Transaction, error) {
	drops, err := strconv.ParseUint(req.Amount, 10, 64)
	if err != nil || drops == 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, req.Amount)
	}

	t := &Transaction{
		TransactionType: TypeNFTokenCreateOffer,
		Account:         req.Account,
		NFTokenID:       req.TokenID,
		Amount:          req.Amount,
		Flags:           req.Flags,
		Fee:             FixedFee,
		Sequence:        sequence,
	}

	if req.Flags == OfferFlagSell {
		t.Destination = req.Destination
		return t, nil
	}
	if req.Owner == "" {
		return nil, ErrMissingOwner
	}
	t.Owner = req.Owner
	return t, nil
}

// typeCode maps the transaction type name to its 16-bit wire code.
func (t *Transaction) typeCode() (uint16, error) {
	switch t.TransactionType {
	case TypeNFTokenMint:
		return codeNFTokenMint, nil
	case TypeNFTokenCreateOffer:
		return codeNFTokenCreateOffer, nil
	}
	return 0, fmt.Errorf("unsupported transaction type %q", t.TransactionType)
}

// serialize emits the transaction's present fields in canonical order.
// TxnSignature is included only when forSubmission is set.
func (t *Transaction) serialize(forSubmission bool) ([]byte, error) {
	code, err := t.typeCode()
	if err != nil {
		return nil, err
	}
	feeDrops, err := strconv.ParseUint(t.Fee, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("fee %q: %w", t.Fee, err)
	}

	var w codec.Writer
	w.UInt16(2, code) // TransactionType
	if t.TransferFee != nil {
		w.UInt16(4, *t.TransferFee)
	}
	w.UInt32(2, t.Flags)
	w.UInt32(4, t.Sequence)
	if t.NFTokenTaxon != nil {
		w.UInt32(42, *t.NFTokenTaxon)
	}
	if t.NFTokenID != "" {
		if err := w.Hash256(10, t.NFTokenID); err != nil {
			return nil, err
		}
	}
	if t.Amount != "" {
		amountDrops, err := strconv.ParseUint(t.Amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, t.Amount)
		}
		w.Drops(1, amountDrops)
	}
	w.Drops(8, feeDrops)
	if t.SigningPubKey != "" {
		pub, err := hexBytes(t.SigningPubKey)
		if err != nil {
			return nil, fmt.Errorf("signing public key: %w", err)
		}
		if err := w.Blob(3, pub); err != nil {
			return nil, err
		}
	}
	if forSubmission && t.TxnSignature != "" {
		sig, err := hexBytes(t.TxnSignature)
		if err != nil {
			return nil, fmt.Errorf("signature: %w", err)
		}
		if err := w.Blob(4, sig); err != nil {
			return nil, err
		}
	}
	if t.URI != "" {
		if err := w.Blob(5, []byte(t.URI)); err != nil {
			return nil, err
		}
	}
	if err := w.AccountID(1, t.Account); err != nil {
		return nil, err
	}
	if t.Owner != "" {
		if err := w.AccountID(2, t.Owner); err != nil {
			return nil, err
		}
	}
	if t.Destination != "" {
		if err := w.AccountID(3, t.Destination); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

// SignWith signs the transaction with kp and returns the submission blob as
// uppercase hex. The transaction's SigningPubKey and TxnSignature fields
// are filled in as a side effect.
func (t *Transaction) SignWith(kp *keys.KeyPair) (string, error) {
	t.SigningPubKey = kp.PublicKeyHex()

	unsigned, err := t.serialize(false)
	if err != nil {
		return "", err
	}
	sig, err := kp.Sign(codec.SigningPayload(unsigned))
	if err != nil {
		return "", err
	}
	t.TxnSignature = fmt.Sprintf("%X", sig)

	signed, err := t.serialize(true)
	if err != nil {
		return "", err
	}
	return codec.BlobHex(signed), nil
}

func hexBytes(s string) ([]byte, error) {
	return hex.DecodeString(s)
}
