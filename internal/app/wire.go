package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	s3blob "github.com/mosaicmarkets/mosaicd/internal/blob/s3"
	"github.com/mosaicmarkets/mosaicd/internal/cache/redis"
	"github.com/mosaicmarkets/mosaicd/internal/chain"
	"github.com/mosaicmarkets/mosaicd/internal/config"
	"github.com/mosaicmarkets/mosaicd/internal/crypto"
	"github.com/mosaicmarkets/mosaicd/internal/domain"
	"github.com/mosaicmarkets/mosaicd/internal/ledger"
	"github.com/mosaicmarkets/mosaicd/internal/notify"
	"github.com/mosaicmarkets/mosaicd/internal/settle"
	"github.com/mosaicmarkets/mosaicd/internal/store/memory"
	"github.com/mosaicmarkets/mosaicd/internal/store/postgres"
)

// Dependencies bundles everything the operating modes need. It is built by
// Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	Fills       domain.FillStore
	History     domain.HistoryStore
	Params      domain.ParamStore
	Whitelist   domain.WhitelistStore
	Settlements domain.SettlementStore

	// Ledgers
	Assets  domain.AssetLedger
	Funds   domain.FundsLedger
	Rewards domain.RewardMinter

	// Redis-backed extras; nil when Redis is disabled.
	HistoryCache domain.HistoryCache
	LockManager  domain.LockManager
	SignalBus    domain.SignalBus

	// Archival; nil unless the archive is enabled.
	Archiver *s3blob.Archiver

	// Operator alerting; always present, a no-op without configured senders.
	Notifier *notify.Notifier

	Clock  domain.BlockClock
	Engine *settle.Engine
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them with a cleanup function for shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	mining, err := cfg.Mining.Params()
	if err != nil {
		return nil, nil, fmt.Errorf("wire: mining params: %w", err)
	}
	fees, err := cfg.Market.Fees()
	if err != nil {
		return nil, nil, fmt.Errorf("wire: fee config: %w", err)
	}

	// --- Storage backend ---
	switch strings.ToLower(cfg.Storage.Backend) {
	case "postgres":
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.Fills = postgres.NewFillStore(pool)
		deps.History = postgres.NewHistoryStore(pool)
		deps.Params = postgres.NewParamStore(pool)
		deps.Whitelist = postgres.NewWhitelistStore(pool)
		deps.Settlements = postgres.NewSettlementStore(pool)

	default: // "memory"
		// The memory backend is seeded from the config's mining and fee
		// sections; the postgres backend keeps the parameters governed
		// through the admin API instead.
		deps.Fills = memory.NewFillStore()
		deps.History = memory.NewHistoryStore()
		deps.Params = memory.NewParamStore(mining, fees)
		deps.Whitelist = memory.NewWhitelistStore()
		deps.Settlements = memory.NewSettlementStore()
	}

	// --- Redis (optional) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.HistoryCache = redis.NewHistoryCache(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
	}

	// --- S3 archive (optional) ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), deps.Settlements, logger)
	}

	// --- Block clock ---
	if cfg.Chain.RPCURL != "" {
		ethClock, err := chain.Dial(cfg.Chain.RPCURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: chain clock: %w", err)
		}
		closers = append(closers, ethClock.Close)
		deps.Clock = ethClock
	} else {
		deps.Clock = chain.NewManualClock(0)
	}

	// --- Operator alerting ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Ledgers ---
	assets := ledger.NewAssetBook()
	funds := ledger.NewFundsBook()
	rewards := ledger.NewRewardBook()
	deps.Assets = assets
	deps.Funds = funds
	deps.Rewards = rewards

	// --- Settlement engine ---
	operator := common.HexToAddress(cfg.Market.Operator)
	verifier := crypto.NewVerifier(cfg.Chain.ChainID)
	deps.Engine = settle.NewEngine(settle.EngineConfig{
		Validator: settle.NewValidator(verifier, deps.Fills),
		Executor:  settle.NewExecutor(assets, funds, operator),
		Fills:     deps.Fills,
		History:   deps.History,
		Params:    deps.Params,
		Whitelist: deps.Whitelist,
		Rewards:   rewards,
		Clock:     deps.Clock,
		Locks:     deps.LockManager,
		Logger:    logger,
	})

	return deps, cleanup, nil
}
