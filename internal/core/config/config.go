package config

import (
	"time"

	"github.com/vietddude/depositverifier/internal/core/domain"
	redisclient "github.com/vietddude/depositverifier/internal/infra/redis"
	"github.com/vietddude/depositverifier/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Chain    ChainConfig        `yaml:"chain"`
	Verify   VerifyConfig       `yaml:"verify"`
	Auth     AuthConfig         `yaml:"auth"`
	Redis    redisclient.Config `yaml:"redis"`
	Logging  LoggingConfig      `yaml:"logging"`
	Database postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               int           `yaml:"port"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	CORSOrigins        []string      `yaml:"cors_origins"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"` // 0 = disabled
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ChainConfig describes the single chain, token and custodial address this service watches.
type ChainConfig struct {
	ChainID        domain.ChainID   `yaml:"id"`
	InternalCode   domain.ChainName `yaml:"name"`
	RPCURL         string           `yaml:"rpc_url"`
	RPCTimeout     time.Duration    `yaml:"rpc_timeout"`
	TokenAddress   string           `yaml:"token_address"`
	TokenSymbol    string           `yaml:"token_symbol"`
	Decimals       int              `yaml:"decimals"`
	DepositAddress string           `yaml:"deposit_address"`
	Breaker        BreakerConfig    `yaml:"breaker"`
}

// BreakerConfig tunes the circuit breaker in front of the RPC endpoint.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"` // consecutive failures before opening
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// VerifyConfig holds defaults and bounds for caller-tunable verify parameters.
type VerifyConfig struct {
	DefaultLookbackBlocks   uint64 `yaml:"default_lookback_blocks"`
	MaxLookbackBlocks       uint64 `yaml:"max_lookback_blocks"`
	DefaultMinConfirmations uint64 `yaml:"default_min_confirmations"`
	MinConfirmationsFloor   uint64 `yaml:"min_confirmations_floor"`
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"` // optional, checked when set
}
