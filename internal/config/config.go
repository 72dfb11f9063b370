// Package config centralizes runtime configuration for xnd. It loads a
// JSON configuration file and exposes a process-wide configuration with
// sensible defaults. Tests and development builds will use defaults when
// the file is not present. Operators can place a JSON file at
// /etc/xnd/config.json or specify a different path via the CONFIG_FILE env
// var; individual values can also come from the environment (.env is
// loaded by main).
package config

import (
	"encoding/json"
	"os"
	"strconv"
)

// Config holds configurable options for the xnd service.
type Config struct {
	NodeURL         string `json:"node_url"`
	FaucetURL       string `json:"faucet_url"`
	Port            int    `json:"port"`
	SeedsFile       string `json:"seeds_file"`
	SendTimeoutSecs int    `json:"send_timeout_secs"`
	DocsDir         string `json:"docs_dir"`
}

var cfg *Config

func defaults() *Config {
	return &Config{
		NodeURL:         "wss://hooks-testnet-v2.xrpl-labs.com",
		FaucetURL:       "https://hooks-testnet-v2.xrpl-labs.com/newcreds",
		Port:            8080,
		SeedsFile:       "seeds.db",
		SendTimeoutSecs: 15,
		DocsDir:         "internal/docs",
	}
}

// LoadConfig reads a JSON file at path. If the file does not exist or
// cannot be parsed, LoadConfig returns defaults (and no error) so that the
// application can run in development with minimal friction. Environment
// variables override file values.
func LoadConfig(path string) (*Config, error) {
	def := defaults()

	c := def
	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			var parsed Config
			if err := json.Unmarshal(b, &parsed); err == nil {
				c = &parsed
			}
		}
	}

	// merge defaults for any zero-value fields
	if c.NodeURL == "" {
		c.NodeURL = def.NodeURL
	}
	if c.FaucetURL == "" {
		c.FaucetURL = def.FaucetURL
	}
	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.SeedsFile == "" {
		c.SeedsFile = def.SeedsFile
	}
	if c.SendTimeoutSecs == 0 {
		c.SendTimeoutSecs = def.SendTimeoutSecs
	}
	if c.DocsDir == "" {
		c.DocsDir = def.DocsDir
	}

	applyEnv(c)
	cfg = c
	return cfg, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("XND_NODE_URL"); v != "" {
		c.NodeURL = v
	}
	if v := os.Getenv("XND_FAUCET_URL"); v != "" {
		c.FaucetURL = v
	}
	if v := os.Getenv("XND_SEEDS_FILE"); v != "" {
		c.SeedsFile = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 && port <= 65535 {
			c.Port = port
		}
	}
}

// Get returns the loaded configuration. If LoadConfig hasn't been called
// yet, it returns defaults.
func Get() *Config {
	if cfg == nil {
		LoadConfig("")
	}
	return cfg
}
