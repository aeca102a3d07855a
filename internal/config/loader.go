package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MOSAIC_* environment variable overrides, and
// returns the final Config. The caller should invoke Config.Validate after
// Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MOSAIC_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Chain.RPCURL, "MOSAIC_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "MOSAIC_CHAIN_ID")
	setStr(&cfg.Chain.Registry, "MOSAIC_CHAIN_REGISTRY")

	setStr(&cfg.Signer.PrivateKey, "MOSAIC_SIGNER_PRIVATE_KEY")
	setStr(&cfg.Signer.EncryptedKeyPath, "MOSAIC_SIGNER_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Signer.KeyPassword, "MOSAIC_SIGNER_KEY_PASSWORD")

	setStr(&cfg.Storage.Backend, "MOSAIC_STORAGE_BACKEND")

	setStr(&cfg.Postgres.DSN, "MOSAIC_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MOSAIC_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MOSAIC_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MOSAIC_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MOSAIC_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MOSAIC_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MOSAIC_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MOSAIC_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MOSAIC_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "MOSAIC_POSTGRES_RUN_MIGRATIONS")

	setBool(&cfg.Redis.Enabled, "MOSAIC_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "MOSAIC_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MOSAIC_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MOSAIC_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MOSAIC_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MOSAIC_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MOSAIC_REDIS_TLS_ENABLED")

	setStr(&cfg.S3.Endpoint, "MOSAIC_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MOSAIC_S3_REGION")
	setStr(&cfg.S3.Bucket, "MOSAIC_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MOSAIC_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MOSAIC_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MOSAIC_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MOSAIC_S3_FORCE_PATH_STYLE")

	setBool(&cfg.Archive.Enabled, "MOSAIC_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "MOSAIC_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "MOSAIC_ARCHIVE_INTERVAL")

	setStr(&cfg.Market.FeeRecipient, "MOSAIC_MARKET_FEE_RECIPIENT")
	setUint64(&cfg.Market.PrimaryFeeBps, "MOSAIC_MARKET_PRIMARY_FEE_BPS")
	setUint64(&cfg.Market.SecondaryFeeBps, "MOSAIC_MARKET_SECONDARY_FEE_BPS")
	setStr(&cfg.Market.Operator, "MOSAIC_MARKET_OPERATOR")

	setStr(&cfg.Mining.Epsilon, "MOSAIC_MINING_EPSILON")
	setStr(&cfg.Mining.Alpha, "MOSAIC_MINING_ALPHA")
	setStr(&cfg.Mining.Gamma, "MOSAIC_MINING_GAMMA")
	setStr(&cfg.Mining.Omega, "MOSAIC_MINING_OMEGA")
	setStr(&cfg.Mining.PriceThreshold, "MOSAIC_MINING_PRICE_THRESHOLD")
	setStr(&cfg.Mining.MaxRewardPerTrade, "MOSAIC_MINING_MAX_REWARD_PER_TRADE")
	setBool(&cfg.Mining.Enabled, "MOSAIC_MINING_ENABLED")
	setBool(&cfg.Mining.WhitelistOnly, "MOSAIC_MINING_WHITELIST_ONLY")

	setBool(&cfg.Server.Enabled, "MOSAIC_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "MOSAIC_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "MOSAIC_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "MOSAIC_SERVER_API_KEY")
	setStr(&cfg.Server.AdminKey, "MOSAIC_SERVER_ADMIN_KEY")
	setStr(&cfg.Server.SuperAdminKey, "MOSAIC_SERVER_SUPER_ADMIN_KEY")
	setStr(&cfg.Server.WhitelistKey, "MOSAIC_SERVER_WHITELIST_KEY")

	setStr(&cfg.Notify.TelegramToken, "MOSAIC_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MOSAIC_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MOSAIC_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MOSAIC_NOTIFY_EVENTS")

	setStr(&cfg.Mode, "MOSAIC_MODE")
	setStr(&cfg.LogLevel, "MOSAIC_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
