// Package web implements the HTTP server and dashboard for xnd. It serves
// the demo page, JSON API endpoints for seed management and ledger
// operations, and an SSE stream carrying reload progress so the page can
// render tokens as they resolve.
package web

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"xrplnft.demo/xnd/internal/client"
	"xrplnft.demo/xnd/internal/config"
	"xrplnft.demo/xnd/internal/docs"
	"xrplnft.demo/xnd/internal/logger"
	"xrplnft.demo/xnd/internal/seeds"
	"xrplnft.demo/xnd/internal/tx"
	"xrplnft.demo/xnd/internal/xrpl"
)

// Facade is the slice of the ledger client the web layer drives. Satisfied
// by *client.Facade; tests substitute a fake.
type Facade interface {
	OnUpdate(fn func(xrpl.AccountSnapshot))
	Reload(ctx context.Context) (xrpl.AccountSnapshot, error)
	Mint(ctx context.Context, req tx.MintRequest) (string, error)
	CreateOffer(ctx context.Context, req tx.OfferCreateRequest, overrideSeed string) (string, error)
	Close() error
}

// FaucetProvider provisions funded demo credentials.
type FaucetProvider interface {
	NewCredentials(ctx context.Context) (string, error)
}

// TemplateData holds the data passed to the page template.
type TemplateData struct {
	CurrentVersion string
	BuildTime      string
	NodeURL        string
}

// Server is the web server for the dashboard and API.
type Server struct {
	cfg       *config.Config
	store     *seeds.Store
	faucet    FaucetProvider
	logger    *logger.Logger
	docs      *docs.Service
	broker    *sseBroker
	templates *template.Template

	// newFacade builds a ledger façade for one request's seed.
	newFacade func(seed string) (Facade, error)
}

// NewServer creates a web server wired to the real ledger client.
func NewServer(cfg *config.Config, store *seeds.Store, faucet FaucetProvider) (*Server, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		store:     store,
		faucet:    faucet,
		logger:    logger.New(200), // keep the last 200 activity entries
		docs:      docs.NewService(cfg.DocsDir),
		broker:    newSSEBroker(),
		templates: templates,
	}
	s.newFacade = func(seed string) (Facade, error) {
		return client.New(cfg.NodeURL, seed, time.Duration(cfg.SendTimeoutSecs)*time.Second)
	}

	s.logger.Infof("xnd server initialized, node %s", cfg.NodeURL)
	return s, nil
}

// Logger returns the server's activity logger.
func (s *Server) Logger() *logger.Logger {
	return s.logger
}

// Routes builds the server's request mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Page routes
	mux.HandleFunc("/", s.handlePageLoad)
	mux.HandleFunc("/views/docs", s.handleDocsView)
	mux.HandleFunc("/views/api", s.handleAPIView)

	// API routes
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/activity", s.handleActivity)
	mux.HandleFunc("/api/seeds", s.handleSeeds)
	mux.HandleFunc("/api/seeds/fund", s.handleFundSeed)
	mux.HandleFunc("/api/seeds/delete", s.handleDeleteSeed)
	mux.HandleFunc("/api/reload", s.handleReload)
	mux.HandleFunc("/api/mint", s.handleMint)
	mux.HandleFunc("/api/offer", s.handleOffer)

	// SSE stream
	mux.HandleFunc("/api/stream", s.handleStream)

	return mux
}

// Start runs the web server, reporting its exit on the returned channel.
func (s *Server) Start() <-chan error {
	log.Printf("Web UI: starting dashboard and API server on http://localhost:%d", s.cfg.Port)

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	errCh := make(chan error, 1)
	go func() {
		errCh <- http.ListenAndServe(addr, s.Routes())
		close(errCh)
	}()
	return errCh
}

func (s *Server) handlePageLoad(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.setCacheHeaders(w)
	err := s.templates.ExecuteTemplate(w, "index.html", TemplateData{
		CurrentVersion: xrpl.Version,
		BuildTime:      xrpl.BuildTime,
		NodeURL:        s.cfg.NodeURL,
	})
	if err != nil {
		log.Printf("Error executing page template: %s", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// handleDocsView renders one asciidoc guide as an HTML fragment.
//
// @Title: Docs view
// @Route: GET /views/docs?file=guide.adoc
// @Description: Rendered documentation fragment
// @Response: text/html
func (s *Server) handleDocsView(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("file")
	available, err := s.docs.List()
	if err != nil {
		http.Error(w, "No documentation available", http.StatusNotFound)
		return
	}
	if name == "" && len(available) > 0 {
		name = available[0]
	}

	valid := false
	for _, doc := range available {
		if doc == name {
			valid = true
			break
		}
	}
	if !valid {
		http.Error(w, "Unknown document", http.StatusNotFound)
		return
	}

	html, err := s.docs.Render(name)
	if err != nil {
		log.Printf("Error rendering doc %s: %v", name, err)
		http.Error(w, "Failed to render document", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

// handleAPIView serves the generated API reference fragment (see
// cmd/docgen).
func (s *Server) handleAPIView(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(filepath.Join("internal", "web", "api-view.html"))
	if err != nil {
		http.Error(w, "API reference not generated", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

func (s *Server) setCacheHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}
