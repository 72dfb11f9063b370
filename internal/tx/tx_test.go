package tx

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"xrplnft.demo/xnd/internal/codec"
	"xrplnft.demo/xnd/internal/keys"
)

const testTokenID = "000813A05A7F4C1D0C8C4D1A9E2B3C4D5E6F708192A3B4C5D6E7F8091A2B3C4D"

// testKeyPair derives a throwaway keypair from fixed entropy so tests have
// valid addresses without touching a network.
func testKeyPair(t *testing.T, tag byte) *keys.KeyPair {
	t.Helper()
	entropy := make([]byte, 16)
	entropy[15] = tag
	seed, err := codec.EncodeSeed(entropy, codec.SeedEd25519)
	if err != nil {
		t.Fatalf("EncodeSeed failed: %v", err)
	}
	kp, err := keys.Derive(seed)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	return kp
}

func marshalFields(t *testing.T, txn *Transaction) map[string]any {
	t.Helper()
	raw, err := json.Marshal(txn)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	return fields
}

func TestBuildMint(t *testing.T) {
	account := testKeyPair(t, 1).Address()
	txn, err := BuildMint(MintRequest{
		Account:     account,
		TransferFee: 314,
		Taxon:       7,
		URI:         "ipfs://example",
		Flags:       FlagTransferable | FlagBurnable,
	}, 42)
	if err != nil {
		t.Fatalf("BuildMint failed: %v", err)
	}
	if txn.TransactionType != TypeNFTokenMint {
		t.Errorf("type = %s", txn.TransactionType)
	}
	if txn.Fee != FixedFee {
		t.Errorf("fee = %s, want %s", txn.Fee, FixedFee)
	}
	if txn.TransferFee == nil || *txn.TransferFee != 314 {
		t.Errorf("transfer fee = %v", txn.TransferFee)
	}
	if txn.NFTokenTaxon == nil || *txn.NFTokenTaxon != 7 {
		t.Errorf("taxon = %v", txn.NFTokenTaxon)
	}
	if txn.Flags != 9 {
		t.Errorf("flags = %d, want 9", txn.Flags)
	}
	if txn.Sequence != 42 {
		t.Errorf("sequence = %d, want 42", txn.Sequence)
	}
}

func TestBuildMintZeroValuesPresent(t *testing.T) {
	// A zero transfer fee and zero taxon are meaningful and must survive
	// marshaling rather than being dropped as empty.
	txn, err := BuildMint(MintRequest{Account: testKeyPair(t, 1).Address()}, 1)
	if err != nil {
		t.Fatalf("BuildMint failed: %v", err)
	}
	fields := marshalFields(t, txn)
	for _, key := range []string{"TransferFee", "NFTokenTaxon"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("marshaled mint lacks %s", key)
		}
	}
}

func TestBuildMintRejectsBadParameters(t *testing.T) {
	account := testKeyPair(t, 1).Address()
	cases := []MintRequest{
		{Account: account, TransferFee: -1},
		{Account: account, Taxon: -1},
		{Account: account, TransferFee: 0x10000},
	}
	for _, req := range cases {
		if _, err := BuildMint(req, 1); !errors.Is(err, ErrInvalidMintParameters) {
			t.Errorf("BuildMint(%+v) = %v, want ErrInvalidMintParameters", req, err)
		}
	}
}

func TestBuildSellOfferOmitsOwner(t *testing.T) {
	signer := testKeyPair(t, 1)
	buyer := testKeyPair(t, 2)

	txn, err := BuildOfferCreate(OfferCreateRequest{
		Account:     signer.Address(),
		Owner:       buyer.Address(), // must be ignored for sells
		TokenID:     testTokenID,
		Amount:      "1000000",
		Flags:       OfferFlagSell,
		Destination: buyer.Address(),
	}, 5)
	if err != nil {
		t.Fatalf("BuildOfferCreate failed: %v", err)
	}
	if txn.Owner != "" {
		t.Errorf("sell offer carries Owner %s", txn.Owner)
	}
	if txn.Destination != buyer.Address() {
		t.Errorf("destination = %s, want %s", txn.Destination, buyer.Address())
	}

	fields := marshalFields(t, txn)
	if _, ok := fields["Owner"]; ok {
		t.Error("marshaled sell offer carries Owner")
	}
	if _, ok := fields["Destination"]; !ok {
		t.Error("marshaled sell offer lacks Destination")
	}
}

func TestBuildBuyOfferRequiresOwner(t *testing.T) {
	signer := testKeyPair(t, 1)
	owner := testKeyPair(t, 2)

	_, err := BuildOfferCreate(OfferCreateRequest{
		Account: signer.Address(),
		TokenID: testTokenID,
		Amount:  "1000000",
		Flags:   OfferFlagBuy,
	}, 5)
	if !errors.Is(err, ErrMissingOwner) {
		t.Fatalf("buy without owner = %v, want ErrMissingOwner", err)
	}

	txn, err := BuildOfferCreate(OfferCreateRequest{
		Account:     signer.Address(),
		Owner:       owner.Address(),
		TokenID:     testTokenID,
		Amount:      "1000000",
		Flags:       OfferFlagBuy,
		Destination: owner.Address(), // must be ignored for buys
	}, 5)
	if err != nil {
		t.Fatalf("BuildOfferCreate failed: %v", err)
	}
	if txn.Owner != owner.Address() {
		t.Errorf("owner = %s, want %s", txn.Owner, owner.Address())
	}
	if txn.Destination != "" {
		t.Errorf("buy offer carries Destination %s", txn.Destination)
	}

	fields := marshalFields(t, txn)
	if _, ok := fields["Destination"]; ok {
		t.Error("marshaled buy offer carries Destination")
	}
}

func TestBuildOfferRejectsBadAmounts(t *testing.T) {
	account := testKeyPair(t, 1).Address()
	for _, amount := range []string{"", "0", "-5", "1.5", "drops"} {
		req := OfferCreateRequest{
			Account: account,
			TokenID: testTokenID,
			Amount:  amount,
			Flags:   OfferFlagSell,
		}
		if _, err := BuildOfferCreate(req, 1); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("amount %q = %v, want ErrInvalidAmount", amount, err)
		}
	}
}

func TestSignWithProducesSubmittableBlob(t *testing.T) {
	signer := testKeyPair(t, 1)
	txn, err := BuildMint(MintRequest{
		Account: signer.Address(),
		Taxon:   1,
		URI:     "ipfs://example",
		Flags:   FlagTransferable,
	}, 10)
	if err != nil {
		t.Fatalf("BuildMint failed: %v", err)
	}

	blob, err := txn.SignWith(signer)
	if err != nil {
		t.Fatalf("SignWith failed: %v", err)
	}
	if blob != strings.ToUpper(blob) {
		t.Error("blob is not uppercase hex")
	}
	raw, err := hex.DecodeString(blob)
	if err != nil {
		t.Fatalf("blob is not hex: %v", err)
	}
	// Canonical order starts with TransactionType; NFTokenMint is 25.
	if raw[0] != 0x12 || raw[1] != 0x00 || raw[2] != 0x19 {
		t.Errorf("blob prefix = %X, want 120019", raw[:3])
	}
	if txn.SigningPubKey != signer.PublicKeyHex() {
		t.Errorf("SigningPubKey = %s", txn.SigningPubKey)
	}
	if txn.TxnSignature == "" {
		t.Error("TxnSignature not set")
	}
	// The signature covers the unsigned form with the signing prefix.
	unsigned, err := txn.serialize(false)
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	sig, err := hex.DecodeString(txn.TxnSignature)
	if err != nil {
		t.Fatalf("signature is not hex: %v", err)
	}
	if !signer.Verify(codec.SigningPayload(unsigned), sig) {
		t.Error("signature does not verify over the signing payload")
	}
}

func TestSignWithOfferBlobPrefix(t *testing.T) {
	signer := testKeyPair(t, 1)
	txn, err := BuildOfferCreate(OfferCreateRequest{
		Account: signer.Address(),
		TokenID: testTokenID,
		Amount:  "25000000",
		Flags:   OfferFlagSell,
	}, 3)
	if err != nil {
		t.Fatalf("BuildOfferCreate failed: %v", err)
	}
	blob, err := txn.SignWith(signer)
	if err != nil {
		t.Fatalf("SignWith failed: %v", err)
	}
	// NFTokenCreateOffer is type 27.
	if !strings.HasPrefix(blob, "12001B") {
		t.Errorf("blob prefix = %s, want 12001B", blob[:6])
	}
}
