package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "velora.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config file not written: %v", err)
	}
	if cfg.DefaultChainID != 1 {
		t.Fatalf("default chain = %d, want 1", cfg.DefaultChainID)
	}
	for _, chainID := range []uint64{1, 137, 56} {
		if _, ok := cfg.NetworkFor(chainID); !ok {
			t.Fatalf("default config missing network %d", chainID)
		}
	}

	// Reloading reads the file that was just written.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(again.Networks) != len(cfg.Networks) {
		t.Fatalf("reload networks = %d, want %d", len(again.Networks), len(cfg.Networks))
	}
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "velora.toml")
	body := `
DefaultChainID = 137
GatewayListen = ":9000"
EventArchivePath = "/tmp/events.db"

[[Networks]]
ChainID = 137
Name = "Polygon"
RPCURL = "https://polygon.example"
Explorer = "https://polygonscan.com"

[Contracts]
Token = "0x1111111111111111111111111111111111111111"
Staking = "0x2222222222222222222222222222222222222222"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GatewayListen != ":9000" {
		t.Fatalf("listen = %q", cfg.GatewayListen)
	}
	endpoints := cfg.Endpoints()
	if endpoints[137] != "https://polygon.example" {
		t.Fatalf("endpoints = %+v", endpoints)
	}
	addrs := cfg.ContractAddresses()
	if addrs.Token.Hex() != "0x1111111111111111111111111111111111111111" {
		t.Fatalf("token address = %s", addrs.Token.Hex())
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	base := func() *Config {
		return &Config{
			DefaultChainID: 1,
			Networks: []Network{
				{ChainID: 1, Name: "Mainnet", RPCURL: "https://rpc.example"},
			},
		}
	}
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no networks", func(c *Config) { c.Networks = nil }},
		{"zero chain id", func(c *Config) { c.Networks[0].ChainID = 0 }},
		{"missing rpc", func(c *Config) { c.Networks[0].RPCURL = "" }},
		{"default not registered", func(c *Config) { c.DefaultChainID = 999 }},
		{"bad address", func(c *Config) { c.Contracts.Token = "not-hex" }},
		{"duplicate chain id", func(c *Config) {
			c.Networks = append(c.Networks, Network{ChainID: 1, Name: "dup", RPCURL: "https://dup.example"})
		}},
	}
	for _, tc := range cases {
		cfg := base()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}
