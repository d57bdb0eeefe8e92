package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"veloracloud/contracts"
)

// Network describes one chain the client can attach to.
type Network struct {
	ChainID  uint64 `toml:"ChainID"`
	Name     string `toml:"Name"`
	RPCURL   string `toml:"RPCURL"`
	Explorer string `toml:"Explorer"`
}

// ContractSet holds the deployed contract addresses as hex strings.
type ContractSet struct {
	Token         string `toml:"Token"`
	Marketplace   string `toml:"Marketplace"`
	StorageEscrow string `toml:"StorageEscrow"`
	Staking       string `toml:"Staking"`
}

type Config struct {
	DefaultChainID   uint64      `toml:"DefaultChainID"`
	GatewayListen    string      `toml:"GatewayListen"`
	EventArchivePath string      `toml:"EventArchivePath"`
	LogFile          string      `toml:"LogFile"`
	Networks         []Network   `toml:"Networks"`
	Contracts        ContractSet `toml:"Contracts"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks chain and address consistency.
func (c *Config) Validate() error {
	if len(c.Networks) == 0 {
		return fmt.Errorf("at least one network is required")
	}
	seen := make(map[uint64]bool, len(c.Networks))
	for _, n := range c.Networks {
		if n.ChainID == 0 {
			return fmt.Errorf("network %q has no chain id", n.Name)
		}
		if seen[n.ChainID] {
			return fmt.Errorf("duplicate network chain id %d", n.ChainID)
		}
		seen[n.ChainID] = true
		if n.RPCURL == "" {
			return fmt.Errorf("network %q has no RPC endpoint", n.Name)
		}
	}
	if !seen[c.DefaultChainID] {
		return fmt.Errorf("default chain id %d is not a configured network", c.DefaultChainID)
	}
	for name, addr := range map[string]string{
		"Token":         c.Contracts.Token,
		"Marketplace":   c.Contracts.Marketplace,
		"StorageEscrow": c.Contracts.StorageEscrow,
		"Staking":       c.Contracts.Staking,
	} {
		if addr != "" && !common.IsHexAddress(addr) {
			return fmt.Errorf("contract %s address %q is not a valid address", name, addr)
		}
	}
	return nil
}

// NetworkFor returns the network registered under chainID.
func (c *Config) NetworkFor(chainID uint64) (Network, bool) {
	for _, n := range c.Networks {
		if n.ChainID == chainID {
			return n, true
		}
	}
	return Network{}, false
}

// Endpoints returns the chain id to RPC endpoint map the provider dials from.
func (c *Config) Endpoints() map[uint64]string {
	out := make(map[uint64]string, len(c.Networks))
	for _, n := range c.Networks {
		out[n.ChainID] = n.RPCURL
	}
	return out
}

// ContractAddresses parses the configured hex addresses.
func (c *Config) ContractAddresses() contracts.Addresses {
	return contracts.Addresses{
		Token:         common.HexToAddress(c.Contracts.Token),
		Marketplace:   common.HexToAddress(c.Contracts.Marketplace),
		StorageEscrow: common.HexToAddress(c.Contracts.StorageEscrow),
		Staking:       common.HexToAddress(c.Contracts.Staking),
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		DefaultChainID:   1,
		GatewayListen:    ":8546",
		EventArchivePath: "./velora-data/events.db",
		Networks: []Network{
			{ChainID: 1, Name: "Ethereum Mainnet", RPCURL: "https://cloudflare-eth.com", Explorer: "https://etherscan.io"},
			{ChainID: 137, Name: "Polygon", RPCURL: "https://polygon-rpc.com", Explorer: "https://polygonscan.com"},
			{ChainID: 56, Name: "BSC", RPCURL: "https://bsc-dataseed.binance.org", Explorer: "https://bscscan.com"},
		},
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
