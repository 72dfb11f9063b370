package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"xrplnft.demo/xnd/internal/codec"
	"xrplnft.demo/xnd/internal/keys"
	"xrplnft.demo/xnd/internal/tx"
	"xrplnft.demo/xnd/internal/xrpl"
)

const (
	tokenOne = "00081388000000000000000000000000000000000000000000000000000000A1"
	tokenTwo = "00081388000000000000000000000000000000000000000000000000000000A2"
)

// testSeed builds a deterministic throwaway seed.
func testSeed(t *testing.T, tag byte) string {
	t.Helper()
	entropy := make([]byte, 16)
	entropy[15] = tag
	seed, err := codec.EncodeSeed(entropy, codec.SeedEd25519)
	if err != nil {
		t.Fatalf("EncodeSeed failed: %v", err)
	}
	return seed
}

// scriptedNode is an in-process ledger node. Each incoming request is
// answered by respond; the command sequence is recorded for assertions.
type scriptedNode struct {
	srv *httptest.Server

	mu       sync.Mutex
	commands []string
	requests []map[string]any

	respond func(command string, req map[string]any) (result map[string]any, errCode string)
}

func newScriptedNode(t *testing.T, respond func(command string, req map[string]any) (map[string]any, string)) *scriptedNode {
	t.Helper()
	n := &scriptedNode{respond: respond}
	upgrader := websocket.Upgrader{}
	n.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			var req map[string]any
			if err := ws.ReadJSON(&req); err != nil {
				return
			}
			command, _ := req["command"].(string)
			n.mu.Lock()
			n.commands = append(n.commands, command)
			n.requests = append(n.requests, req)
			n.mu.Unlock()

			result, errCode := n.respond(command, req)
			resp := map[string]any{"id": req["id"], "type": "response"}
			if errCode != "" {
				resp["status"] = "error"
				resp["error"] = errCode
			} else {
				resp["status"] = "success"
				resp["result"] = result
			}
			if err := ws.WriteJSON(resp); err != nil {
				return
			}
		}
	}))
	t.Cleanup(n.srv.Close)
	return n
}

func (n *scriptedNode) url() string {
	return "ws" + strings.TrimPrefix(n.srv.URL, "http")
}

func (n *scriptedNode) commandLog() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.commands...)
}

func (n *scriptedNode) requestCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.requests)
}

func accountInfoResult(address string, balance string, sequence uint32) map[string]any {
	return map[string]any{
		"account_data": map[string]any{
			"Account":  address,
			"Balance":  balance,
			"Sequence": sequence,
		},
	}
}

func tokenEntry(id string, issuer string) map[string]any {
	return map[string]any{
		"NFTokenID":    id,
		"Issuer":       issuer,
		"Flags":        8,
		"NFTokenTaxon": 0,
		"nft_serial":   1,
	}
}

func newTestFacade(t *testing.T, n *scriptedNode, seed string) *Facade {
	t.Helper()
	f, err := New(n.url(), seed, time.Second)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestReloadAggregatesAndPublishes(t *testing.T) {
	seed := testSeed(t, 1)
	kp, _ := keys.Derive(seed)
	addr := kp.Address()

	node := newScriptedNode(t, func(command string, req map[string]any) (map[string]any, string) {
		switch command {
		case xrpl.CmdAccountInfo:
			return accountInfoResult(addr, "25000000", 7), ""
		case xrpl.CmdAccountNFTs:
			return map[string]any{"account_nfts": []any{
				tokenEntry(tokenOne, addr),
				tokenEntry(tokenTwo, addr),
			}}, ""
		case xrpl.CmdNFTBuyOffers:
			if req["nft_id"] == tokenOne {
				return map[string]any{"offers": []any{
					map[string]any{"nft_offer_index": "B1", "owner": addr, "amount": "500000"},
				}}, ""
			}
			// No offers field at all for the second token.
			return map[string]any{}, ""
		case xrpl.CmdNFTSellOffers:
			return map[string]any{}, "objectNotFound"
		}
		return nil, "unknownCmd"
	})

	f := newTestFacade(t, node, seed)

	var published []xrpl.AccountSnapshot
	f.OnUpdate(func(s xrpl.AccountSnapshot) {
		published = append(published, s)
	})

	snapshot, err := f.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	// Two tokens cost exactly 2+2N requests in a fixed order.
	want := []string{
		xrpl.CmdAccountInfo, xrpl.CmdAccountNFTs,
		xrpl.CmdNFTBuyOffers, xrpl.CmdNFTSellOffers,
		xrpl.CmdNFTBuyOffers, xrpl.CmdNFTSellOffers,
	}
	got := node.commandLog()
	if len(got) != len(want) {
		t.Fatalf("command log = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if snapshot.Address != addr {
		t.Errorf("address = %s, want %s", snapshot.Address, addr)
	}
	if snapshot.Balance != "25" {
		t.Errorf("balance = %s, want 25", snapshot.Balance)
	}
	if len(snapshot.Nfts) != 2 {
		t.Fatalf("nft count = %d, want 2", len(snapshot.Nfts))
	}
	if len(snapshot.Nfts[0].BuyOffers) != 1 || snapshot.Nfts[0].BuyOffers[0].Amount != "500000" {
		t.Errorf("token one buy offers = %+v", snapshot.Nfts[0].BuyOffers)
	}
	// Absent and objectNotFound both come back as empty, never nil.
	if snapshot.Nfts[1].BuyOffers == nil || len(snapshot.Nfts[1].BuyOffers) != 0 {
		t.Errorf("token two buy offers = %+v", snapshot.Nfts[1].BuyOffers)
	}
	if snapshot.Nfts[0].SellOffers == nil || len(snapshot.Nfts[0].SellOffers) != 0 {
		t.Errorf("token one sell offers = %+v", snapshot.Nfts[0].SellOffers)
	}

	// Progressive publishing: one snapshot per resolved token, growing.
	if len(published) != 2 {
		t.Fatalf("published %d snapshots, want 2", len(published))
	}
	if len(published[0].Nfts) != 1 || len(published[1].Nfts) != 2 {
		t.Errorf("published sizes = %d, %d", len(published[0].Nfts), len(published[1].Nfts))
	}
	// Observers got copies, not the live aggregate.
	published[0].Nfts[0].BuyOffers[0].Amount = "tampered"
	if snapshot.Nfts[0].BuyOffers[0].Amount != "500000" {
		t.Error("observer snapshot aliases the returned aggregate")
	}
}

func TestReloadWrapsFailures(t *testing.T) {
	seed := testSeed(t, 2)
	node := newScriptedNode(t, func(command string, req map[string]any) (map[string]any, string) {
		return nil, "actNotFound"
	})
	f := newTestFacade(t, node, seed)

	_, err := f.Reload(context.Background())
	if !errors.Is(err, ErrReloadFailed) {
		t.Fatalf("Reload = %v, want ErrReloadFailed", err)
	}
	// The underlying cause stays in the chain so callers can branch on it.
	if !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("Reload = %v, want wrapped ErrAccountNotFound", err)
	}
}

func TestGetAccountSummaryNotFound(t *testing.T) {
	seed := testSeed(t, 3)
	node := newScriptedNode(t, func(command string, req map[string]any) (map[string]any, string) {
		return nil, "actNotFound"
	})
	f := newTestFacade(t, node, seed)

	_, err := f.GetAccountSummary(context.Background())
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("GetAccountSummary = %v, want ErrAccountNotFound", err)
	}
}

func TestGetOffersEmptyResult(t *testing.T) {
	seed := testSeed(t, 4)
	node := newScriptedNode(t, func(command string, req map[string]any) (map[string]any, string) {
		return map[string]any{}, ""
	})
	f := newTestFacade(t, node, seed)

	offers, err := f.GetOffers(context.Background(), OffersSell, tokenOne)
	if err != nil {
		t.Fatalf("GetOffers failed: %v", err)
	}
	if offers == nil || len(offers) != 0 {
		t.Errorf("offers = %#v, want empty slice", offers)
	}
}

func TestMintOutcomes(t *testing.T) {
	seed := testSeed(t, 5)
	kp, _ := keys.Derive(seed)
	addr := kp.Address()

	var rejection string
	var submittedBlob string
	var mu sync.Mutex
	node := newScriptedNode(t, func(command string, req map[string]any) (map[string]any, string) {
		switch command {
		case xrpl.CmdAccountInfo:
			return accountInfoResult(addr, "100000000", 11), ""
		case xrpl.CmdSubmit:
			mu.Lock()
			blob, _ := req["tx_blob"].(string)
			submittedBlob = blob
			reject := rejection
			mu.Unlock()
			if reject != "" {
				return map[string]any{"error_exception": reject}, ""
			}
			return map[string]any{"engine_result": "tesSUCCESS"}, ""
		}
		return nil, "unknownCmd"
	})
	f := newTestFacade(t, node, seed)

	req := tx.MintRequest{Account: addr, Taxon: 1, URI: "ipfs://x", Flags: tx.FlagTransferable}

	outcome, err := f.Mint(context.Background(), req)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	if outcome != "" {
		t.Errorf("outcome = %q, want success", outcome)
	}
	mu.Lock()
	blob := submittedBlob
	mu.Unlock()
	if !strings.HasPrefix(blob, "120019") {
		t.Errorf("submitted blob prefix = %.6s, want 120019", blob)
	}

	// A node rejection is an outcome string, not an error.
	mu.Lock()
	rejection = "Invalid URI"
	mu.Unlock()
	outcome, err = f.Mint(context.Background(), req)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	if outcome != "Invalid URI" {
		t.Errorf("outcome = %q, want Invalid URI", outcome)
	}
}

func TestMintValidatesBeforeNetwork(t *testing.T) {
	seed := testSeed(t, 6)
	node := newScriptedNode(t, func(command string, req map[string]any) (map[string]any, string) {
		return nil, "unknownCmd"
	})
	f := newTestFacade(t, node, seed)

	_, err := f.Mint(context.Background(), tx.MintRequest{TransferFee: -1})
	if !errors.Is(err, tx.ErrInvalidMintParameters) {
		t.Fatalf("Mint = %v, want ErrInvalidMintParameters", err)
	}
	if node.requestCount() != 0 {
		t.Errorf("invalid mint reached the node: %v", node.commandLog())
	}
}

func TestCreateOfferWithOverrideSeed(t *testing.T) {
	facadeSeed := testSeed(t, 7)
	buyerSeed := testSeed(t, 8)
	facadeKP, _ := keys.Derive(facadeSeed)
	buyerKP, _ := keys.Derive(buyerSeed)

	var infoAccounts []string
	var mu sync.Mutex
	node := newScriptedNode(t, func(command string, req map[string]any) (map[string]any, string) {
		switch command {
		case xrpl.CmdAccountInfo:
			account, _ := req["account"].(string)
			mu.Lock()
			infoAccounts = append(infoAccounts, account)
			mu.Unlock()
			return accountInfoResult(account, "50000000", 3), ""
		case xrpl.CmdSubmit:
			return map[string]any{"engine_result": "tesSUCCESS"}, ""
		}
		return nil, "unknownCmd"
	})
	f := newTestFacade(t, node, facadeSeed)

	outcome, err := f.CreateOffer(context.Background(), tx.OfferCreateRequest{
		Account: buyerKP.Address(),
		Owner:   facadeKP.Address(),
		TokenID: tokenOne,
		Amount:  "1000000",
		Flags:   tx.OfferFlagBuy,
	}, buyerSeed)
	if err != nil {
		t.Fatalf("CreateOffer failed: %v", err)
	}
	if outcome != "" {
		t.Errorf("outcome = %q", outcome)
	}

	// The sequence lookup ran as the override signer.
	mu.Lock()
	accounts := append([]string(nil), infoAccounts...)
	mu.Unlock()
	if len(accounts) != 1 || accounts[0] != buyerKP.Address() {
		t.Errorf("account_info accounts = %v, want [%s]", accounts, buyerKP.Address())
	}

	// The override is transient: the façade still speaks as its own seed.
	if f.Address() != facadeKP.Address() {
		t.Errorf("facade address = %s, want %s", f.Address(), facadeKP.Address())
	}
}

func TestSetSeedSwitchesAccount(t *testing.T) {
	first := testSeed(t, 9)
	second := testSeed(t, 10)
	firstKP, _ := keys.Derive(first)
	secondKP, _ := keys.Derive(second)

	node := newScriptedNode(t, func(command string, req map[string]any) (map[string]any, string) {
		return map[string]any{}, ""
	})
	f := newTestFacade(t, node, first)

	if f.Address() != firstKP.Address() {
		t.Fatalf("address = %s, want %s", f.Address(), firstKP.Address())
	}
	if err := f.SetSeed(second); err != nil {
		t.Fatalf("SetSeed failed: %v", err)
	}
	if f.Address() != secondKP.Address() {
		t.Errorf("address after SetSeed = %s, want %s", f.Address(), secondKP.Address())
	}
	if err := f.SetSeed("garbage"); !errors.Is(err, keys.ErrInvalidSeed) {
		t.Fatalf("SetSeed(garbage) = %v, want ErrInvalidSeed", err)
	}
	// A rejected seed leaves the current account untouched.
	if f.Address() != secondKP.Address() {
		t.Errorf("address after failed SetSeed = %s", f.Address())
	}
}
