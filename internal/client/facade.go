// Package client is the ledger client façade: it composes a node
// connection, key material for the current seed, and the transaction
// builders into the operations the demo needs: account summary, token and
// offer enumeration, mint and offer submission, and the full per-account
// reload aggregation.
//
// A Facade serializes its own operations with a mutex; concurrent calls on
// one instance queue rather than interleave on the shared connection.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"xrplnft.demo/xnd/internal/keys"
	"xrplnft.demo/xnd/internal/node"
	"xrplnft.demo/xnd/internal/tx"
	"xrplnft.demo/xnd/internal/xrpl"
)

var (
	// ErrAccountNotFound reports an account_info lookup that found no
	// ledger entry for the address. A user-visible condition, not a crash.
	ErrAccountNotFound = errors.New("account not found")

	// ErrReloadFailed wraps any failure occurring mid-aggregation in
	// Reload. Observers may already have seen a partial snapshot; the
	// operation as a whole still reports failed and returns nothing.
	ErrReloadFailed = errors.New("reload failed")
)

// OfferDirection selects which side of the book to enumerate.
type OfferDirection string

const (
	OffersBuy  OfferDirection = "buy"
	OffersSell OfferDirection = "sell"
)

// nftPageLimit caps account_nfts enumeration. Only the first page is
// fetched; accounts holding more tokens than this are truncated. A known
// demo limitation, kept deliberately.
const nftPageLimit = 100

// Facade is a stateful ledger client bound to one seed and one connection.
type Facade struct {
	conn *node.Conn
	kp   *keys.KeyPair
	seed string

	// onUpdate, when set, receives a copy of the growing snapshot after
	// each token is fully resolved during Reload.
	onUpdate func(xrpl.AccountSnapshot)

	mu sync.Mutex // serializes operations on the shared connection
}

// New derives key material from seed and returns a façade talking to the
// given websocket endpoint. The connection starts out closed; every
// operation acquires and releases it itself.
func New(nodeURL, seed string, timeout time.Duration) (*Facade, error) {
	kp, err := keys.Derive(seed)
	if err != nil {
		return nil, err
	}
	return &Facade{
		conn: node.New(nodeURL, timeout),
		kp:   kp,
		seed: seed,
	}, nil
}

// SetSeed re-derives the façade's key material from a new seed. Subsequent
// operations sign and read as the new account.
func (f *Facade) SetSeed(seed string) error {
	kp, err := keys.Derive(seed)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kp = kp
	f.seed = seed
	return nil
}

// OnUpdate registers the reload progress observer. Register before calling
// Reload; the callback runs on the reloading goroutine.
func (f *Facade) OnUpdate(fn func(xrpl.AccountSnapshot)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onUpdate = fn
}

// Address returns the classic address of the façade's current seed.
func (f *Facade) Address() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.kp.Address()
}

// Close releases the underlying connection.
func (f *Facade) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conn.Close()
}

// GetAccountSummary fetches the façade account's address and XRP balance
// from the validated ledger.
func (f *Facade) GetAccountSummary(ctx context.Context) (xrpl.AccountSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.conn.Reinstate(); err != nil {
		return xrpl.AccountSummary{}, err
	}
	return f.accountSummary(ctx)
}

func (f *Facade) accountSummary(ctx context.Context) (xrpl.AccountSummary, error) {
	data, err := f.accountInfo(ctx, f.kp.Address())
	if err != nil {
		return xrpl.AccountSummary{}, err
	}
	return xrpl.AccountSummary{
		Address: data.Account,
		Balance: xrpl.DropsToXRP(data.Balance),
	}, nil
}

// accountInfo reads the current account_root entry for address, mapping
// the node's actNotFound to ErrAccountNotFound.
func (f *Facade) accountInfo(ctx context.Context, address string) (xrpl.AccountData, error) {
	result, err := f.conn.Send(ctx, xrpl.CmdAccountInfo, map[string]any{
		"account":      address,
		"ledger_index": "validated",
	})
	if err != nil {
		var nodeErr *node.Error
		if errors.As(err, &nodeErr) && nodeErr.Code == "actNotFound" {
			return xrpl.AccountData{}, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
		}
		return xrpl.AccountData{}, err
	}

	var info xrpl.AccountInfoResult
	if err := json.Unmarshal(result, &info); err != nil {
		return xrpl.AccountData{}, fmt.Errorf("%w: account_info: %v", node.ErrProtocol, err)
	}
	return info.AccountData, nil
}

// GetNfts enumerates the tokens held by address. Only the first page (up to
// 100 tokens) is returned; see nftPageLimit.
func (f *Facade) GetNfts(ctx context.Context, address string) ([]xrpl.NFToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.conn.Reinstate(); err != nil {
		return nil, err
	}
	return f.nfts(ctx, address)
}

func (f *Facade) nfts(ctx context.Context, address string) ([]xrpl.NFToken, error) {
	result, err := f.conn.Send(ctx, xrpl.CmdAccountNFTs, map[string]any{
		"account": address,
		"limit":   nftPageLimit,
	})
	if err != nil {
		return nil, err
	}
	var page xrpl.AccountNFTsResult
	if err := json.Unmarshal(result, &page); err != nil {
		return nil, fmt.Errorf("%w: account_nfts: %v", node.ErrProtocol, err)
	}
	if page.AccountNFTs == nil {
		return []xrpl.NFToken{}, nil
	}
	return page.AccountNFTs, nil
}

// GetOffers enumerates the standing buy or sell offers against tokenID. A
// node reporting no offers yields an empty slice, not an error.
func (f *Facade) GetOffers(ctx context.Context, direction OfferDirection, tokenID string) ([]xrpl.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.conn.Reinstate(); err != nil {
		return nil, err
	}
	return f.offers(ctx, direction, tokenID)
}

func (f *Facade) offers(ctx context.Context, direction OfferDirection, tokenID string) ([]xrpl.Offer, error) {
	command := xrpl.CmdNFTSellOffers
	if direction == OffersBuy {
		command = xrpl.CmdNFTBuyOffers
	}
	result, err := f.conn.Send(ctx, command, map[string]any{"nft_id": tokenID})
	if err != nil {
		var nodeErr *node.Error
		if errors.As(err, &nodeErr) && nodeErr.Code == "objectNotFound" {
			return []xrpl.Offer{}, nil
		}
		return nil, err
	}
	var offers xrpl.NFTOffersResult
	if err := json.Unmarshal(result, &offers); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", node.ErrProtocol, command, err)
	}
	if offers.Offers == nil {
		return []xrpl.Offer{}, nil
	}
	return offers.Offers, nil
}

// Mint signs and submits an NFTokenMint as the façade's account. The
// returned string is the node's rejection message, empty on success; only
// transport and validation problems surface as errors. The connection is
// closed when the call returns.
func (f *Facade) Mint(ctx context.Context, req tx.MintRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.submitSigned(ctx, f.kp, func(sequence uint32) (*tx.Transaction, error) {
		return tx.BuildMint(req, sequence)
	})
}

// CreateOffer signs and submits an NFTokenCreateOffer. When overrideSeed is
// non-empty the transaction is signed by a transient keypair derived from
// it, without mutating the façade's stored seed; otherwise the façade's own
// account signs. Outcome semantics match Mint.
func (f *Facade) CreateOffer(ctx context.Context, req tx.OfferCreateRequest, overrideSeed string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	signer := f.kp
	if overrideSeed != "" {
		kp, err := keys.Derive(overrideSeed)
		if err != nil {
			return "", err
		}
		signer = kp
	}
	return f.submitSigned(ctx, signer, func(sequence uint32) (*tx.Transaction, error) {
		return tx.BuildOfferCreate(req, sequence)
	})
}

// submitSigned runs the shared write path: read the signer's sequence,
// build, sign, submit, and close the connection on every exit.
func (f *Facade) submitSigned(ctx context.Context, signer *keys.KeyPair, build func(uint32) (*tx.Transaction, error)) (string, error) {
	// Validate before touching the network.
	if _, err := build(0); err != nil {
		return "", err
	}

	if err := f.conn.Reinstate(); err != nil {
		return "", err
	}
	defer f.conn.Close()

	account, err := f.accountInfo(ctx, signer.Address())
	if err != nil {
		return "", err
	}
	txn, err := build(account.Sequence)
	if err != nil {
		return "", err
	}
	blob, err := txn.SignWith(signer)
	if err != nil {
		return "", err
	}

	result, err := f.conn.Send(ctx, xrpl.CmdSubmit, map[string]any{"tx_blob": blob})
	if err != nil {
		return "", err
	}
	var submit xrpl.SubmitResult
	if err := json.Unmarshal(result, &submit); err != nil {
		return "", fmt.Errorf("%w: submit: %v", node.ErrProtocol, err)
	}
	return submit.ErrorException, nil
}

// Reload rebuilds the full account snapshot: summary, token list, then the
// buy and sell offers of each token in order, 2+2N requests in total. After
// each token resolves, the registered observer receives a copy of the
// snapshot so far. Any failure wraps as ErrReloadFailed and discards the
// aggregate; observers may have seen a partial snapshot that the failed
// call never returns. The connection is closed on every exit.
func (f *Facade) Reload(ctx context.Context) (xrpl.AccountSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot, err := f.reload(ctx)
	if err != nil {
		return xrpl.AccountSnapshot{}, fmt.Errorf("%w: %w", ErrReloadFailed, err)
	}
	return snapshot, nil
}

func (f *Facade) reload(ctx context.Context) (xrpl.AccountSnapshot, error) {
	var snapshot xrpl.AccountSnapshot

	if err := f.conn.Reinstate(); err != nil {
		return snapshot, err
	}
	defer f.conn.Close()

	summary, err := f.accountSummary(ctx)
	if err != nil {
		return snapshot, err
	}
	snapshot.Address = summary.Address
	snapshot.Balance = summary.Balance

	tokens, err := f.nfts(ctx, f.kp.Address())
	if err != nil {
		return snapshot, err
	}

	snapshot.Nfts = make([]xrpl.AccountNFT, 0, len(tokens))
	for _, token := range tokens {
		buy, err := f.offers(ctx, OffersBuy, token.NFTokenID)
		if err != nil {
			return snapshot, fmt.Errorf("buy offers for %s: %w", token.NFTokenID, err)
		}
		sell, err := f.offers(ctx, OffersSell, token.NFTokenID)
		if err != nil {
			return snapshot, fmt.Errorf("sell offers for %s: %w", token.NFTokenID, err)
		}
		snapshot.Nfts = append(snapshot.Nfts, xrpl.AccountNFT{
			NFToken:    token,
			BuyOffers:  buy,
			SellOffers: sell,
		})
		if f.onUpdate != nil {
			f.onUpdate(snapshot.Clone())
		}
	}
	return snapshot, nil
}
