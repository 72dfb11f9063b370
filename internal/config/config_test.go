package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	c, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if c.NodeURL == "" || c.FaucetURL == "" {
		t.Errorf("defaults missing endpoints: %+v", c)
	}
	if c.Port != 8080 {
		t.Errorf("default port = %d, want 8080", c.Port)
	}
	if c.SendTimeoutSecs != 15 {
		t.Errorf("default send timeout = %d, want 15", c.SendTimeoutSecs)
	}
}

func TestLoadConfigFileWithDefaultMerge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"node_url": "wss://example.test", "port": 9999}`), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if c.NodeURL != "wss://example.test" {
		t.Errorf("node_url = %s", c.NodeURL)
	}
	if c.Port != 9999 {
		t.Errorf("port = %d, want 9999", c.Port)
	}
	// Unset fields fall back to defaults.
	if c.SeedsFile != "seeds.db" {
		t.Errorf("seeds_file = %s, want seeds.db", c.SeedsFile)
	}
}

func TestLoadConfigMissingFileFallsBack(t *testing.T) {
	c, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if c.NodeURL == "" {
		t.Error("missing file did not fall back to defaults")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("XND_NODE_URL", "wss://env.test")
	t.Setenv("PORT", "1234")

	c, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if c.NodeURL != "wss://env.test" {
		t.Errorf("node_url = %s, want wss://env.test", c.NodeURL)
	}
	if c.Port != 1234 {
		t.Errorf("port = %d, want 1234", c.Port)
	}
}
