// Package faucet provisions demo credentials from the testnet's
// credential-issuing endpoint. One POST yields one funded seed.
package faucet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client wraps the faucet HTTP endpoint.
type Client struct {
	url    string
	client *http.Client
}

// NewClient creates a faucet client for the given newcreds endpoint.
func NewClient(url string) *Client {
	return &Client{
		url: url,
		client: &http.Client{
			Timeout: 30 * time.Second, // funding waits for a validated ledger
		},
	}
}

// NewCredentials requests a freshly funded account and returns its seed.
func (c *Client) NewCredentials(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("build faucet request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("faucet request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read faucet response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("faucet returned %s: %s", resp.Status, string(body))
	}

	// The hooks-testnet endpoint names the field "secret"; accept "seed"
	// as well for compatibility with other faucets.
	var creds struct {
		Secret string `json:"secret"`
		Seed   string `json:"seed"`
	}
	if err := json.Unmarshal(body, &creds); err != nil {
		return "", fmt.Errorf("parse faucet response: %w (body: %s)", err, string(body))
	}

	seed := creds.Secret
	if seed == "" {
		seed = creds.Seed
	}
	if seed == "" {
		return "", fmt.Errorf("faucet response carried no seed (body: %s)", string(body))
	}
	return seed, nil
}
