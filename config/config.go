package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	RPCAddress  string `toml:"RPCAddress"`
	DataDir     string `toml:"DataDir"`
	Environment string `toml:"Environment"`

	// Contract wiring.
	SocialAddress    string `toml:"SocialAddress"`
	FeeLedgerAddress string `toml:"FeeLedgerAddress"`
	OwnerAccount     string `toml:"OwnerAccount"`
	TreasuryAccount  string `toml:"TreasuryAccount"`

	// Host economics. StorageByteCost is the price per persisted byte in host
	// currency; FeeTokenSupply is minted to the treasury at genesis.
	StorageByteCost string `toml:"StorageByteCost"`
	FeeTokenSupply  string `toml:"FeeTokenSupply"`

	// Initial admin settings applied at contract construction.
	AccountRecentLikesLimit          uint8 `toml:"AccountRecentLikesLimit"`
	AddMessageExtraFeePercent        uint8 `toml:"AddMessageExtraFeePercent"`
	LikePostExtraFeePercent          uint8 `toml:"LikePostExtraFeePercent"`
	LikeMessageExtraFeePercent       uint8 `toml:"LikeMessageExtraFeePercent"`
	AddFriendExtraFeePercent         uint8 `toml:"AddFriendExtraFeePercent"`
	UpdateProfileExtraFeePercent     uint8 `toml:"UpdateProfileExtraFeePercent"`
	AccountRecentLikeExtraFeePercent uint8 `toml:"AccountRecentLikeExtraFeePercent"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = ":8545"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./feed-data"
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "local"
	}
	if strings.TrimSpace(c.SocialAddress) == "" {
		c.SocialAddress = "social.feed"
	}
	if strings.TrimSpace(c.FeeLedgerAddress) == "" {
		c.FeeLedgerAddress = "fee.feed"
	}
	if strings.TrimSpace(c.OwnerAccount) == "" {
		c.OwnerAccount = "admin.feed"
	}
	if strings.TrimSpace(c.TreasuryAccount) == "" {
		c.TreasuryAccount = "treasury.feed"
	}
	if strings.TrimSpace(c.StorageByteCost) == "" {
		c.StorageByteCost = "1"
	}
	if strings.TrimSpace(c.FeeTokenSupply) == "" {
		c.FeeTokenSupply = "1000000000"
	}
}

// Validate rejects configurations the daemon cannot start with.
func (c *Config) Validate() error {
	if _, err := c.ParseStorageByteCost(); err != nil {
		return err
	}
	if _, err := c.ParseFeeTokenSupply(); err != nil {
		return err
	}
	if c.SocialAddress == c.FeeLedgerAddress {
		return fmt.Errorf("config: SocialAddress and FeeLedgerAddress must differ")
	}
	return nil
}

// ParseStorageByteCost returns the per-byte storage price as an integer.
func (c *Config) ParseStorageByteCost() (*big.Int, error) {
	cost, ok := new(big.Int).SetString(strings.TrimSpace(c.StorageByteCost), 10)
	if !ok || cost.Sign() < 0 {
		return nil, fmt.Errorf("config: invalid StorageByteCost %q", c.StorageByteCost)
	}
	return cost, nil
}

// ParseFeeTokenSupply returns the genesis fee-token supply as an integer.
func (c *Config) ParseFeeTokenSupply() (*big.Int, error) {
	supply, ok := new(big.Int).SetString(strings.TrimSpace(c.FeeTokenSupply), 10)
	if !ok || supply.Sign() < 0 {
		return nil, fmt.Errorf("config: invalid FeeTokenSupply %q", c.FeeTokenSupply)
	}
	return supply, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:              ":8545",
		DataDir:                 "./feed-data",
		Environment:             "local",
		SocialAddress:           "social.feed",
		FeeLedgerAddress:        "fee.feed",
		OwnerAccount:            "admin.feed",
		TreasuryAccount:         "treasury.feed",
		StorageByteCost:         "1",
		FeeTokenSupply:          "1000000000",
		AccountRecentLikesLimit: 5,
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
