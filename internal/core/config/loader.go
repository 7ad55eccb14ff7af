package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v2"

	"github.com/vietddude/depositverifier/internal/core/domain"
)

// Token deployed for the deposit flow on BSC mainnet.
const (
	DefaultTokenAddress = "0x1601C48F1178F1F9A9b0Be5f5bD7bb20CfD157F3"
	DefaultTokenSymbol  = "TZEE"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}

	if cfg.Chain.ChainID == "" {
		cfg.Chain.ChainID = domain.ChainIDBSC
	}
	if cfg.Chain.InternalCode == "" {
		cfg.Chain.InternalCode = domain.ChainIDToName[cfg.Chain.ChainID]
	}
	if cfg.Chain.RPCTimeout == 0 {
		cfg.Chain.RPCTimeout = 15 * time.Second
	}
	if cfg.Chain.TokenAddress == "" {
		cfg.Chain.TokenAddress = DefaultTokenAddress
	}
	if cfg.Chain.TokenSymbol == "" {
		cfg.Chain.TokenSymbol = DefaultTokenSymbol
	}
	if cfg.Chain.Decimals == 0 {
		cfg.Chain.Decimals = domain.TokenDecimals
	}
	if cfg.Chain.Breaker.MaxFailures == 0 {
		cfg.Chain.Breaker.MaxFailures = 5
	}
	if cfg.Chain.Breaker.OpenTimeout == 0 {
		cfg.Chain.Breaker.OpenTimeout = 30 * time.Second
	}
	cfg.Chain.TokenAddress = strings.ToLower(cfg.Chain.TokenAddress)
	cfg.Chain.DepositAddress = strings.ToLower(cfg.Chain.DepositAddress)

	// ~3-4 days of BSC blocks
	if cfg.Verify.DefaultLookbackBlocks == 0 {
		cfg.Verify.DefaultLookbackBlocks = 100000
	}
	if cfg.Verify.MaxLookbackBlocks == 0 {
		cfg.Verify.MaxLookbackBlocks = 500000
	}
	if cfg.Verify.DefaultMinConfirmations == 0 {
		cfg.Verify.DefaultMinConfirmations = 5
	}

	if cfg.Redis.LockTTL == 0 {
		cfg.Redis.LockTTL = 2 * time.Minute
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "pgx"
	}
}

// Validate checks the settings the verifier cannot run without.
func (c *AppConfig) Validate() error {
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("%w: chain.rpc_url is required", domain.ErrConfiguration)
	}
	if c.Chain.DepositAddress == "" {
		return fmt.Errorf("%w: chain.deposit_address is required", domain.ErrConfiguration)
	}
	if !common.IsHexAddress(c.Chain.DepositAddress) || !strings.HasPrefix(c.Chain.DepositAddress, "0x") {
		return fmt.Errorf("%w: chain.deposit_address %q is not an address", domain.ErrConfiguration, c.Chain.DepositAddress)
	}
	if !common.IsHexAddress(c.Chain.TokenAddress) || !strings.HasPrefix(c.Chain.TokenAddress, "0x") {
		return fmt.Errorf("%w: chain.token_address %q is not an address", domain.ErrConfiguration, c.Chain.TokenAddress)
	}
	if c.Chain.Decimals != domain.TokenDecimals {
		return fmt.Errorf("%w: chain.decimals must be %d", domain.ErrConfiguration, domain.TokenDecimals)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("%w: auth.jwt_secret is required", domain.ErrConfiguration)
	}
	if c.Verify.DefaultLookbackBlocks > c.Verify.MaxLookbackBlocks {
		return fmt.Errorf("%w: verify.default_lookback_blocks exceeds max_lookback_blocks", domain.ErrConfiguration)
	}
	return nil
}
