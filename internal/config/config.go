// Package config defines the top-level configuration for the settlement
// engine and provides validation helpers.
package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by MOSAIC_* environment
// variables.
type Config struct {
	Chain    ChainConfig    `toml:"chain"`
	Signer   SignerConfig   `toml:"signer"`
	Storage  StorageConfig  `toml:"storage"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Archive  ArchiveConfig  `toml:"archive"`
	Market   MarketConfig   `toml:"market"`
	Mining   MiningConfig   `toml:"mining"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// ChainConfig binds the engine to a chain: the block clock source and the
// order registry identity that signed orders commit to.
type ChainConfig struct {
	// RPCURL is the JSON-RPC endpoint used for the block clock. When empty
	// the engine runs on a local manual clock (development mode).
	RPCURL   string `toml:"rpc_url"`
	ChainID  int64  `toml:"chain_id"`
	Registry string `toml:"registry"`
}

// SignerConfig holds the operator's signing key material, either raw or in
// an encrypted keyfile.
type SignerConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Backend is "memory" or "postgres".
	Backend string `toml:"backend"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis is optional; without
// it the engine runs single-instance with no cache, lock manager, or event
// fan-out.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the settlement
// archive.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls periodic archival of old settlement-journal rows to
// blob storage.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// MarketConfig holds the platform fee split and the swap-agent identity.
type MarketConfig struct {
	FeeRecipient    string `toml:"fee_recipient"`
	PrimaryFeeBps   uint64 `toml:"primary_fee_bps"`
	SecondaryFeeBps uint64 `toml:"secondary_fee_bps"`
	Operator        string `toml:"operator"`
}

// MiningConfig seeds the liquidity-mining parameters. Amounts are decimal
// strings so wei-scale integers survive TOML intact.
type MiningConfig struct {
	Epsilon           string `toml:"epsilon"`
	Alpha             string `toml:"alpha"`
	Gamma             string `toml:"gamma"`
	Omega             string `toml:"omega"`
	PriceThreshold    string `toml:"price_threshold"`
	MaxRewardPerTrade string `toml:"max_reward_per_trade"`
	Enabled           bool   `toml:"enabled"`
	WhitelistOnly     bool   `toml:"whitelist_only"`
}

// ServerConfig holds the HTTP API configuration. The three governance keys
// map to roles: super-admin covers everything, admin covers fee changes,
// whitelister covers reward-whitelist changes.
type ServerConfig struct {
	Enabled       bool     `toml:"enabled"`
	Port          int      `toml:"port"`
	CORSOrigins   []string `toml:"cors_origins"`
	APIKey        string   `toml:"api_key"`
	AdminKey      string   `toml:"admin_key"`
	SuperAdminKey string   `toml:"super_admin_key"`
	WhitelistKey  string   `toml:"whitelist_key"`
}

// NotifyConfig holds operator alert channels. All channels are optional;
// with none configured, alerting is disabled. Events filters which event
// types are forwarded; empty means all.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration wraps time.Duration for TOML text decoding ("30m", "24h").
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Defaults returns the built-in configuration a TOML file is merged over.
func Defaults() Config {
	defaults := domain.DefaultMiningParams()
	return Config{
		Chain: ChainConfig{
			ChainID: 1,
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
		Postgres: PostgresConfig{
			Port:          5432,
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Archive: ArchiveConfig{
			RetentionDays: 90,
			Interval:      duration{24 * time.Hour},
		},
		Market: MarketConfig{
			FeeRecipient:    "0x0000000000000000000000000000000000000000",
			PrimaryFeeBps:   1000,
			SecondaryFeeBps: 1000,
		},
		Mining: MiningConfig{
			Epsilon:           defaults.Epsilon.String(),
			Alpha:             defaults.Alpha.String(),
			Gamma:             defaults.Gamma.String(),
			Omega:             defaults.Omega.String(),
			PriceThreshold:    defaults.PriceThreshold.String(),
			MaxRewardPerTrade: defaults.MaxRewardPerTrade.String(),
			Enabled:           true,
			WhitelistOnly:     false,
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8080,
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// Params converts the config's string amounts into a validated parameter
// set.
func (m MiningConfig) Params() (domain.MiningParams, error) {
	p := domain.MiningParams{Enabled: m.Enabled, WhitelistOnly: m.WhitelistOnly}

	fields := []struct {
		name string
		dst  **big.Int
		src  string
	}{
		{"epsilon", &p.Epsilon, m.Epsilon},
		{"alpha", &p.Alpha, m.Alpha},
		{"gamma", &p.Gamma, m.Gamma},
		{"omega", &p.Omega, m.Omega},
		{"price_threshold", &p.PriceThreshold, m.PriceThreshold},
		{"max_reward_per_trade", &p.MaxRewardPerTrade, m.MaxRewardPerTrade},
	}
	for _, f := range fields {
		n, ok := new(big.Int).SetString(f.src, 10)
		if !ok {
			return domain.MiningParams{}, fmt.Errorf("config: mining.%s: invalid amount %q", f.name, f.src)
		}
		*f.dst = n
	}

	if err := p.Validate(); err != nil {
		return domain.MiningParams{}, err
	}
	return p, nil
}

// Fees converts the market section into a validated fee configuration.
func (m MarketConfig) Fees() (domain.FeeConfig, error) {
	if !common.IsHexAddress(m.FeeRecipient) {
		return domain.FeeConfig{}, fmt.Errorf("config: market.fee_recipient: invalid address %q", m.FeeRecipient)
	}
	f := domain.FeeConfig{
		Recipient:    common.HexToAddress(m.FeeRecipient),
		PrimaryBps:   m.PrimaryFeeBps,
		SecondaryBps: m.SecondaryFeeBps,
	}
	if err := f.Validate(); err != nil {
		return domain.FeeConfig{}, err
	}
	return f, nil
}

// Validate checks internal consistency of the loaded configuration.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Mode) {
	case "serve", "keygen", "sign-order":
	default:
		return fmt.Errorf("config: unknown mode %q", c.Mode)
	}

	switch strings.ToLower(c.Storage.Backend) {
	case "memory":
	case "postgres":
		if c.Postgres.DSN == "" && (c.Postgres.Host == "" || c.Postgres.Database == "" || c.Postgres.User == "") {
			return fmt.Errorf("config: postgres backend selected but connection parameters are incomplete")
		}
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}

	if c.Chain.ChainID <= 0 {
		return fmt.Errorf("config: chain.chain_id must be positive")
	}
	if c.Chain.Registry != "" && !common.IsHexAddress(c.Chain.Registry) {
		return fmt.Errorf("config: chain.registry: invalid address %q", c.Chain.Registry)
	}
	if c.Market.Operator != "" && !common.IsHexAddress(c.Market.Operator) {
		return fmt.Errorf("config: market.operator: invalid address %q", c.Market.Operator)
	}

	if _, err := c.Mining.Params(); err != nil {
		return err
	}
	if _, err := c.Market.Fees(); err != nil {
		return err
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("config: server.port out of range: %d", c.Server.Port)
	}
	if c.Archive.Enabled {
		if c.S3.Bucket == "" || c.S3.Region == "" {
			return fmt.Errorf("config: archive enabled but s3 bucket/region missing")
		}
		if c.Archive.RetentionDays <= 0 {
			return fmt.Errorf("config: archive.retention_days must be positive")
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}

	return nil
}
