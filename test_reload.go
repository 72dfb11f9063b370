//go:build manual
// +build manual

// Quick test of the reload aggregation against a live testnet node
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"xrplnft.demo/xnd/internal/client"
	"xrplnft.demo/xnd/internal/config"
	"xrplnft.demo/xnd/internal/xrpl"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <seed>\n", os.Args[0])
		os.Exit(1)
	}

	cfg := config.Get()
	fmt.Printf("Node: %s\n", cfg.NodeURL)

	facade, err := client.New(cfg.NodeURL, os.Args[1], 15*time.Second)
	if err != nil {
		log.Fatalf("Failed to derive seed: %v", err)
	}
	defer facade.Close()

	fmt.Printf("Account: %s\n", facade.Address())

	facade.OnUpdate(func(s xrpl.AccountSnapshot) {
		fmt.Printf("  ... %d token(s) resolved\n", len(s.Nfts))
	})

	start := time.Now()
	snapshot, err := facade.Reload(context.Background())
	if err != nil {
		log.Fatalf("Reload failed: %v", err)
	}

	fmt.Printf("Balance: %s XRP\n", snapshot.Balance)
	fmt.Printf("Tokens:  %d (in %s)\n", len(snapshot.Nfts), time.Since(start).Truncate(time.Millisecond))
	for _, nft := range snapshot.Nfts {
		fmt.Printf("  %s buy=%d sell=%d\n", nft.NFTokenID, len(nft.BuyOffers), len(nft.SellOffers))
	}
}
