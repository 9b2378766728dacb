package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type ChainConfig struct {
	Chain     string        `yaml:"chain"`
	RPCUrl    string        `yaml:"rpc_url"`
	APIKey    string        `yaml:"api_key"`
	Refresh   time.Duration `yaml:"refresh"`
	ListLimit int           `yaml:"list_limit"`
	Workers   int           `yaml:"workers"`
}

// VendorConfig describes one third-party API. APIKeyEnv names an environment
// variable that overrides APIKey when set.
type VendorConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	APIKeyEnv string `yaml:"api_key_env"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type PollerConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
}

type CacheConfig struct {
	Path string `yaml:"path"`
}

type ArchiveConfig struct {
	DSN string `yaml:"dsn"`
}

type VendorsConfig struct {
	Dune        VendorConfig `yaml:"dune"`
	Moralis     VendorConfig `yaml:"moralis"`
	Blockchair  VendorConfig `yaml:"blockchair"`
	Mempool     VendorConfig `yaml:"mempool"`
	BlockCypher VendorConfig `yaml:"blockcypher"`
	CoinGecko   VendorConfig `yaml:"coingecko"`
}

type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Poller  PollerConfig  `yaml:"poller"`
	Vendors VendorsConfig `yaml:"vendors"`
	Chains  []ChainConfig `yaml:"chains"`
	Cache   CacheConfig   `yaml:"cache"`
	Archive ArchiveConfig `yaml:"archive"`
}

func LoadConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML, fills defaults and resolves API keys from the environment.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *AppConfig {
	cfg := &AppConfig{
		Chains: []ChainConfig{
			{Chain: "ethereum", RPCUrl: "https://ethereum-rpc.publicnode.com"},
			{Chain: "bitcoin"},
			{Chain: "solana", RPCUrl: "https://api.mainnet-beta.solana.com"},
		},
	}
	cfg.applyDefaults()
	cfg.applyEnv(os.Getenv)
	return cfg
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Poller.Interval <= 0 {
		c.Poller.Interval = 2 * time.Second
	}
	if c.Poller.MaxAttempts <= 0 {
		c.Poller.MaxAttempts = 5
	}

	defaultVendor(&c.Vendors.Dune, "https://api.dune.com/api/v1", "DUNE_API_KEY")
	defaultVendor(&c.Vendors.Moralis, "https://deep-index.moralis.io/api/v2.2", "MORALIS_API_KEY")
	defaultVendor(&c.Vendors.Blockchair, "https://api.blockchair.com/bitcoin", "BLOCKCHAIR_API_KEY")
	defaultVendor(&c.Vendors.Mempool, "https://mempool.space/api", "")
	defaultVendor(&c.Vendors.BlockCypher, "https://api.blockcypher.com/v1/btc/main", "BLOCKCYPHER_TOKEN")
	defaultVendor(&c.Vendors.CoinGecko, "https://api.coingecko.com/api/v3", "COINGECKO_API_KEY")

	for i := range c.Chains {
		ch := &c.Chains[i]
		if ch.Refresh <= 0 {
			ch.Refresh = 10 * time.Second
		}
		if ch.ListLimit <= 0 {
			ch.ListLimit = 10
		}
		if ch.Workers <= 0 {
			ch.Workers = 2
		}
	}
}

func defaultVendor(v *VendorConfig, baseURL, env string) {
	if v.BaseURL == "" {
		v.BaseURL = baseURL
	}
	if v.APIKeyEnv == "" {
		v.APIKeyEnv = env
	}
}

func (c *AppConfig) applyEnv(getenv func(string) string) {
	for _, v := range []*VendorConfig{
		&c.Vendors.Dune, &c.Vendors.Moralis, &c.Vendors.Blockchair,
		&c.Vendors.Mempool, &c.Vendors.BlockCypher, &c.Vendors.CoinGecko,
	} {
		if v.APIKeyEnv == "" {
			continue
		}
		if key := getenv(v.APIKeyEnv); key != "" {
			v.APIKey = key
		}
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *AppConfig) Validate() error {
	seen := make(map[string]bool)
	for _, ch := range c.Chains {
		switch ch.Chain {
		case "ethereum", "bitcoin", "solana":
		default:
			return fmt.Errorf("unsupported chain: %q", ch.Chain)
		}
		if seen[ch.Chain] {
			return fmt.Errorf("chain %q configured twice", ch.Chain)
		}
		seen[ch.Chain] = true
		if ch.Chain == "solana" && ch.RPCUrl == "" {
			return fmt.Errorf("chain solana: rpc_url is required")
		}
	}
	return nil
}

// Chain returns the configuration of the named chain.
func (c *AppConfig) Chain(name string) (ChainConfig, bool) {
	for _, ch := range c.Chains {
		if ch.Chain == name {
			return ch, true
		}
	}
	return ChainConfig{}, false
}
