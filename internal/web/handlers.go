package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"xrplnft.demo/xnd/internal/client"
	"xrplnft.demo/xnd/internal/keys"
	"xrplnft.demo/xnd/internal/seeds"
	"xrplnft.demo/xnd/internal/tx"
	"xrplnft.demo/xnd/internal/xrpl"
)

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// handleHealth reports liveness.
//
// @Title: Health
// @Route: GET /api/health
// @Description: Liveness probe
// @Response: {"status": "ok"}
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleVersion reports the running version.
//
// @Title: Version
// @Route: GET /api/version
// @Description: Service version and build time
// @Response: {"version": "...", "build_time": "..."}
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"version":    xrpl.Version,
		"build_time": xrpl.BuildTime,
	})
}

// handleActivity returns recent activity log entries.
//
// @Title: Activity
// @Route: GET /api/activity
// @Description: Recent activity entries, newest first
// @Response: [{"timestamp": "...", "text": "...", "level": "info"}]
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.logger.Recent(50))
}

// handleSeeds lists the stored demo accounts.
//
// @Title: List seeds
// @Route: GET /api/seeds
// @Description: Stored demo seeds and their addresses
// @Response: [{"seed": "...", "address": "...", "added_at": "..."}]
func (s *Server) handleSeeds(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.All()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []seeds.Entry{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}

// handleFundSeed provisions a new funded account from the faucet and
// stores its seed.
//
// @Title: Fund account
// @Route: POST /api/seeds/fund
// @Description: Request fresh credentials from the testnet faucet
// @Response: {"seed": "...", "address": "..."}
func (s *Server) handleFundSeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	seed, err := s.faucet.NewCredentials(r.Context())
	if err != nil {
		s.logger.Errorf("faucet request failed: %v", err)
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	kp, err := keys.Derive(seed)
	if err != nil {
		s.logger.Errorf("faucet returned an undecodable seed: %v", err)
		s.writeError(w, http.StatusBadGateway, "faucet returned an invalid seed")
		return
	}
	if err := s.store.Add(seed, kp.Address()); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Infof("funded new account %s", kp.Address())
	s.writeJSON(w, http.StatusOK, map[string]string{
		"seed":    seed,
		"address": kp.Address(),
	})
}

// handleDeleteSeed removes a stored seed.
//
// @Title: Delete seed
// @Route: POST /api/seeds/delete
// @Description: Remove a stored seed from the local list
// @Response: 204 No Content
func (s *Server) handleDeleteSeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var body struct {
		Seed string `json:"seed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Seed == "" {
		s.writeError(w, http.StatusBadRequest, "seed is required")
		return
	}
	if err := s.store.Remove(body.Seed); err != nil {
		if errors.Is(err, seeds.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "unknown seed")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReload rebuilds the account snapshot for a seed, streaming
// progress over SSE and returning the final snapshot.
//
// @Title: Reload account
// @Route: POST /api/reload
// @Description: Fetch balance, tokens, and per-token offers for a seed
// @Response: {"address": "...", "balance": "...", "nfts": [...]}
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var body struct {
		Seed string `json:"seed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Seed == "" {
		s.writeError(w, http.StatusBadRequest, "seed is required")
		return
	}

	facade, err := s.newFacade(body.Seed)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer facade.Close()

	facade.OnUpdate(func(snapshot xrpl.AccountSnapshot) {
		s.broker.broadcastEvent("snapshot", snapshot)
	})

	snapshot, err := facade.Reload(r.Context())
	if err != nil {
		if errors.Is(err, client.ErrAccountNotFound) {
			s.writeError(w, http.StatusNotFound, "account not found on ledger")
			return
		}
		s.logger.Errorf("reload failed: %v", err)
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.logger.Infof("reloaded %s: %s XRP, %d tokens", snapshot.Address, snapshot.Balance, len(snapshot.Nfts))
	s.broker.broadcastEvent("snapshot", snapshot)
	s.writeJSON(w, http.StatusOK, snapshot)
}

// mintBody is the JSON request for handleMint.
type mintBody struct {
	Seed        string `json:"seed"`
	TransferFee int    `json:"transfer_fee"`
	Taxon       int    `json:"taxon"`
	URI         string `json:"uri"`
	Flags       uint32 `json:"flags"`
}

// handleMint signs and submits an NFTokenMint for a seed.
//
// @Title: Mint token
// @Route: POST /api/mint
// @Description: Sign and submit an NFTokenMint transaction
// @Response: {"ok": true} or {"ok": false, "message": "..."}
func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var body mintBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Seed == "" {
		s.writeError(w, http.StatusBadRequest, "seed is required")
		return
	}

	facade, err := s.newFacade(body.Seed)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer facade.Close()

	kp, err := keys.Derive(body.Seed)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	outcome, err := facade.Mint(r.Context(), tx.MintRequest{
		Account:     kp.Address(),
		TransferFee: body.TransferFee,
		Taxon:       body.Taxon,
		URI:         body.URI,
		Flags:       tx.MintFlags(body.Flags),
	})
	if err != nil {
		s.logger.Errorf("mint failed: %v", err)
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logSubmission("mint", kp.Address(), outcome)
	s.writeJSON(w, http.StatusOK, submissionResponse(outcome))
}

// offerBody is the JSON request for handleOffer.
type offerBody struct {
	Seed         string `json:"seed"`
	OverrideSeed string `json:"override_seed,omitempty"`
	Account      string `json:"account"`
	Owner        string `json:"owner,omitempty"`
	TokenID      string `json:"token_id"`
	Amount       string `json:"amount"`
	Flags        uint32 `json:"flags"`
	Destination  string `json:"destination,omitempty"`
}

// handleOffer signs and submits an NFTokenCreateOffer for a seed,
// optionally signed by a different stored seed (buy offers from another
// account).
//
// @Title: Create offer
// @Route: POST /api/offer
// @Description: Sign and submit an NFTokenCreateOffer transaction
// @Response: {"ok": true} or {"ok": false, "message": "..."}
func (s *Server) handleOffer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var body offerBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Seed == "" {
		s.writeError(w, http.StatusBadRequest, "seed is required")
		return
	}

	facade, err := s.newFacade(body.Seed)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer facade.Close()

	outcome, err := facade.CreateOffer(r.Context(), tx.OfferCreateRequest{
		Account:     body.Account,
		Owner:       body.Owner,
		TokenID:     body.TokenID,
		Amount:      body.Amount,
		Flags:       body.Flags,
		Destination: body.Destination,
	}, body.OverrideSeed)
	if err != nil {
		s.logger.Errorf("offer create failed: %v", err)
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logSubmission("offer", body.Account, outcome)
	s.writeJSON(w, http.StatusOK, submissionResponse(outcome))
}

func (s *Server) logSubmission(kind, account, outcome string) {
	if outcome == "" {
		s.logger.Infof("%s submitted for %s", kind, account)
		return
	}
	s.logger.Warningf("%s rejected for %s: %s", kind, account, outcome)
	log.Printf("%s rejected for %s: %s", kind, account, outcome)
}

// submissionResponse renders the error-as-value submit contract: a
// rejected transaction is an outcome, not an HTTP error.
func submissionResponse(outcome string) map[string]any {
	if outcome == "" {
		return map[string]any{"ok": true}
	}
	return map[string]any{"ok": false, "message": outcome}
}
