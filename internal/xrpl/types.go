// Package xrpl defines the wire shapes exchanged with a ledger node over
// its websocket API and the aggregate domain types the demo builds from
// them (tokens, offers, per-account snapshots).
package xrpl

import (
	"fmt"
	"strings"
)

// Version is the current version of the demo service.
const Version = "0.1.0"

// BuildTime is set at build time via -ldflags.
var BuildTime = "dev"

// Commands understood by the node that this demo issues.
const (
	CmdAccountInfo   = "account_info"
	CmdAccountNFTs   = "account_nfts"
	CmdNFTBuyOffers  = "nft_buy_offers"
	CmdNFTSellOffers = "nft_sell_offers"
	CmdSubmit        = "submit"
)

// DropsPerXRP is the number of indivisible drops in one display unit.
const DropsPerXRP = 1_000_000

// NFToken is one minted token as reported by account_nfts.
type NFToken struct {
	NFTokenID    string `json:"NFTokenID"`
	Issuer       string `json:"Issuer"`
	URI          string `json:"URI,omitempty"`
	Flags        uint32 `json:"Flags"`
	TransferFee  uint16 `json:"TransferFee"`
	NFTokenTaxon uint32 `json:"NFTokenTaxon"`
	Serial       uint32 `json:"nft_serial"`
}

// Offer is one standing buy or sell offer against a token, as reported by
// nft_buy_offers / nft_sell_offers.
type Offer struct {
	OfferIndex  string `json:"nft_offer_index"`
	Owner       string `json:"owner"`
	Amount      string `json:"amount"`
	Flags       uint32 `json:"flags"`
	Destination string `json:"destination,omitempty"`
}

// AccountData is the account_root entry inside an account_info result.
// Balance arrives as a decimal string of drops.
type AccountData struct {
	Account  string `json:"Account"`
	Balance  uint64 `json:"Balance,string"`
	Sequence uint32 `json:"Sequence"`
	Flags    uint32 `json:"Flags"`
}

// AccountInfoResult is the result payload of an account_info request.
type AccountInfoResult struct {
	AccountData AccountData `json:"account_data"`
}

// AccountNFTsResult is the result payload of an account_nfts request.
type AccountNFTsResult struct {
	AccountNFTs []NFToken `json:"account_nfts"`
}

// NFTOffersResult is the result payload of an offer enumeration request.
// A node reporting no offers may omit the field entirely.
type NFTOffersResult struct {
	Offers []Offer `json:"offers"`
}

// SubmitResult is the result payload of a submit request. A non-empty
// ErrorException is the node rejecting the transaction; it is an outcome,
// not a transport failure.
type SubmitResult struct {
	ErrorException string `json:"error_exception"`
	EngineResult   string `json:"engine_result"`
	TxBlob         string `json:"tx_blob"`
}

// AccountSummary is the display form of an account: address plus XRP
// balance in display units.
type AccountSummary struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

// AccountNFT is a token joined with its current buy and sell offers.
type AccountNFT struct {
	NFToken
	BuyOffers  []Offer `json:"buy_offers"`
	SellOffers []Offer `json:"sell_offers"`
}

// AccountSnapshot is a best-effort point-in-time read of one account: its
// summary plus every token and the offers against each. It is rebuilt whole
// on every reload; the ledger may advance between the underlying calls, so
// cross-call consistency is not guaranteed.
type AccountSnapshot struct {
	Address string       `json:"address"`
	Balance string       `json:"balance"`
	Nfts    []AccountNFT `json:"nfts"`
}

// Clone returns a deep copy safe to hand to observers while the original
// keeps growing.
func (s AccountSnapshot) Clone() AccountSnapshot {
	out := s
	out.Nfts = make([]AccountNFT, len(s.Nfts))
	for i, n := range s.Nfts {
		c := n
		c.BuyOffers = append([]Offer(nil), n.BuyOffers...)
		c.SellOffers = append([]Offer(nil), n.SellOffers...)
		out.Nfts[i] = c
	}
	return out
}

// DropsToXRP converts a drop count to a display-unit decimal string with
// trailing zeros trimmed ("25000000" drops -> "25", "25500000" -> "25.5").
func DropsToXRP(drops uint64) string {
	whole := drops / DropsPerXRP
	frac := drops % DropsPerXRP
	if frac == 0 {
		return fmt.Sprintf("%d", whole)
	}
	s := strings.TrimRight(fmt.Sprintf("%06d", frac), "0")
	return fmt.Sprintf("%d.%s", whole, s)
}
