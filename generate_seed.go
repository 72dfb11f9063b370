//go:build manual
// +build manual

// Generate a fresh family seed and its derived address, without the faucet
package main

import (
	"crypto/rand"
	"fmt"
	"os"

	"xrplnft.demo/xnd/internal/codec"
	"xrplnft.demo/xnd/internal/keys"
)

func main() {
	kind := codec.SeedEd25519
	if len(os.Args) > 1 && os.Args[1] == "secp256k1" {
		kind = codec.SeedSecp256k1
	}

	entropy := make([]byte, 16)
	if _, err := rand.Read(entropy); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read entropy: %v\n", err)
		os.Exit(1)
	}

	seed, err := codec.EncodeSeed(entropy, kind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode seed: %v\n", err)
		os.Exit(1)
	}
	kp, err := keys.Derive(seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to derive keypair: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Algorithm: %s\n", kind)
	fmt.Printf("Seed:      %s\n", seed)
	fmt.Printf("Address:   %s\n", kp.Address())
	fmt.Printf("PublicKey: %s\n", kp.PublicKeyHex())
	fmt.Println()
	fmt.Println("Note: the account does not exist on the ledger until it is funded.")
}
