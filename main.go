// Package main is the entry point for xnd, the XRPL NFT demo service.
// It initializes the seed store, faucet client, and web dashboard.
package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"xrplnft.demo/xnd/internal/config"
	"xrplnft.demo/xnd/internal/faucet"
	"xrplnft.demo/xnd/internal/seeds"
	"xrplnft.demo/xnd/internal/web"
)

func main() {
	log.Println("xnd starting...")

	// Optional .env for local development; the environment wins over the
	// config file either way.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env")
	}

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize seed store
	store, err := seeds.NewStore(cfg.SeedsFile)
	if err != nil {
		log.Fatalf("Failed to initialize seed store: %v", err)
	}
	defer store.Close()
	log.Println("Seed store initialized")

	// Faucet client for provisioning demo accounts
	faucetClient := faucet.NewClient(cfg.FaucetURL)

	if err := ensurePortAvailable(cfg.Port); err != nil {
		log.Fatalf("Port %d unavailable: %v", cfg.Port, err)
	}

	// Initialize web server
	server, err := web.NewServer(cfg, store, faucetClient)
	if err != nil {
		log.Fatalf("Failed to initialize web server: %v", err)
	}

	// Start web server
	serverErrors := server.Start()
	go func() {
		if err := <-serverErrors; err != nil {
			log.Fatalf("Web server exited: %v", err)
		}
	}()
	log.Printf("Web dashboard available at http://localhost:%d", cfg.Port)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
}

func ensurePortAvailable(port int) error {
	addr := fmt.Sprintf(":%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return listener.Close()
}
