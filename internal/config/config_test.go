package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
chains:
  - chain: ethereum
    rpc_url: http://localhost:8545
  - chain: bitcoin
    refresh: 30s
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Server.Listen != ":8080" {
		t.Errorf("Server.Listen = %q, want :8080", cfg.Server.Listen)
	}
	if cfg.Poller.Interval != 2*time.Second || cfg.Poller.MaxAttempts != 5 {
		t.Errorf("Poller = %+v, want 2s/5", cfg.Poller)
	}
	if cfg.Vendors.Dune.BaseURL != "https://api.dune.com/api/v1" {
		t.Errorf("Dune.BaseURL = %q", cfg.Vendors.Dune.BaseURL)
	}

	eth, ok := cfg.Chain("ethereum")
	if !ok {
		t.Fatal("ethereum chain missing")
	}
	if eth.Refresh != 10*time.Second || eth.ListLimit != 10 || eth.Workers != 2 {
		t.Errorf("ethereum defaults = %+v", eth)
	}
	btc, _ := cfg.Chain("bitcoin")
	if btc.Refresh != 30*time.Second {
		t.Errorf("bitcoin refresh = %v, want 30s", btc.Refresh)
	}
}

func TestParseRejectsUnknownChain(t *testing.T) {
	if _, err := Parse([]byte("chains:\n  - chain: dogecoin\n")); err == nil {
		t.Fatal("expected error for unsupported chain")
	}
}

func TestParseRejectsDuplicateChain(t *testing.T) {
	data := []byte("chains:\n  - chain: bitcoin\n  - chain: bitcoin\n")
	if _, err := Parse(data); err == nil {
		t.Fatal("expected error for duplicate chain")
	}
}

func TestSolanaRequiresRPC(t *testing.T) {
	if _, err := Parse([]byte("chains:\n  - chain: solana\n")); err == nil {
		t.Fatal("expected error for solana without rpc_url")
	}
}

func TestApplyEnvOverridesKeys(t *testing.T) {
	cfg := &AppConfig{}
	cfg.Vendors.Dune.APIKey = "from-file"
	cfg.applyDefaults()

	env := map[string]string{"DUNE_API_KEY": "from-env"}
	cfg.applyEnv(func(k string) string { return env[k] })

	if cfg.Vendors.Dune.APIKey != "from-env" {
		t.Errorf("Dune.APIKey = %q, want from-env", cfg.Vendors.Dune.APIKey)
	}
	if cfg.Vendors.Moralis.APIKey != "" {
		t.Errorf("Moralis.APIKey = %q, want empty", cfg.Vendors.Moralis.APIKey)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  listen: \":9999\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server.Listen != ":9999" {
		t.Errorf("Server.Listen = %q, want :9999", cfg.Server.Listen)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
