package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/sync/errgroup"

	"github.com/mosaicmarkets/mosaicd/internal/crypto"
	"github.com/mosaicmarkets/mosaicd/internal/domain"
	"github.com/mosaicmarkets/mosaicd/internal/notify"
	"github.com/mosaicmarkets/mosaicd/internal/server"
	"github.com/mosaicmarkets/mosaicd/internal/server/handler"
	"github.com/mosaicmarkets/mosaicd/internal/server/ws"
	"github.com/mosaicmarkets/mosaicd/internal/service"
)

// ServeMode runs the settlement API: the HTTP server, the WebSocket hub when
// Redis fan-out is available, and the periodic archive loop when configured.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	settlementSvc := service.NewSettlementService(
		deps.Engine, deps.Settlements, deps.Params, deps.History,
		deps.Whitelist, deps.HistoryCache, deps.Clock, deps.SignalBus,
		a.logger,
	)
	querySvc := service.NewQueryService(
		deps.History, deps.HistoryCache, deps.Params,
		deps.Whitelist, deps.Settlements, a.logger,
	)
	adminSvc := service.NewAdminService(deps.Params, deps.Whitelist, a.logger)

	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.logger)
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	if a.cfg.Server.Enabled {
		srv := server.NewServer(server.Config{
			Port:          a.cfg.Server.Port,
			CORSOrigins:   a.cfg.Server.CORSOrigins,
			APIKey:        a.cfg.Server.APIKey,
			AdminKey:      a.cfg.Server.AdminKey,
			SuperAdminKey: a.cfg.Server.SuperAdminKey,
			WhitelistKey:  a.cfg.Server.WhitelistKey,
		}, server.Handlers{
			Health: handler.NewHealthHandler(a.logger),
			Trades: handler.NewTradeHandler(settlementSvc, a.logger),
			Assets: handler.NewAssetHandler(querySvc, a.logger),
			Params: handler.NewParamsHandler(querySvc, a.logger),
			Admin:  handler.NewAdminHandler(adminSvc, a.logger),
		}, hub, a.logger)

		g.Go(srv.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutCtx)
		})
	}

	// Alerts need both the bus and at least one configured channel.
	if deps.SignalBus != nil && deps.Notifier.HasSenders() {
		alerts := notify.NewSettlementAlerts(deps.SignalBus, deps.Notifier, a.logger)
		g.Go(func() error {
			return alerts.Run(ctx)
		})
	}

	if deps.Archiver != nil {
		g.Go(func() error {
			return a.archiveLoop(ctx, deps)
		})
	}

	return g.Wait()
}

// archiveLoop periodically moves settlement rows older than the retention
// window to blob storage. Failures are logged and retried on the next tick.
func (a *App) archiveLoop(ctx context.Context, deps *Dependencies) error {
	interval := a.cfg.Archive.Interval.Duration
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	retention := time.Duration(a.cfg.Archive.RetentionDays) * 24 * time.Hour

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-retention)
			n, err := deps.Archiver.ArchiveBefore(ctx, cutoff)
			if err != nil {
				a.logger.ErrorContext(ctx, "archive run failed",
					slog.String("error", err.Error()),
				)
				continue
			}
			if n > 0 {
				a.logger.InfoContext(ctx, "archive run complete",
					slog.Int("settlements", n),
					slog.Time("cutoff", cutoff),
				)
			}
		}
	}
}

// KeygenMode generates (or takes from config) a maker private key, encrypts
// it with the configured password, and writes the keyfile.
func (a *App) KeygenMode(_ context.Context) error {
	keyHex := a.cfg.Signer.PrivateKey
	if keyHex == "" {
		key, err := ethcrypto.GenerateKey()
		if err != nil {
			return fmt.Errorf("app: generate key: %w", err)
		}
		keyHex = common.Bytes2Hex(ethcrypto.FromECDSA(key))
	}

	if a.cfg.Signer.KeyPassword == "" {
		return fmt.Errorf("app: keygen requires signer.key_password")
	}
	path := a.cfg.Signer.EncryptedKeyPath
	if path == "" {
		path = "mosaic-key.json"
	}

	encrypted, err := crypto.EncryptKey(keyHex, a.cfg.Signer.KeyPassword)
	if err != nil {
		return fmt.Errorf("app: encrypt key: %w", err)
	}
	if err := os.WriteFile(path, encrypted, 0o600); err != nil {
		return fmt.Errorf("app: write keyfile: %w", err)
	}

	signer, err := crypto.NewSigner(keyHex, a.cfg.Chain.ChainID)
	if err != nil {
		return fmt.Errorf("app: derive address: %w", err)
	}
	fmt.Printf("address: %s\nkeyfile: %s\n", signer.Address().Hex(), path)
	return nil
}

// signOrderInput is the JSON accepted on stdin by the sign-order mode.
// Amounts are decimal strings so wei-scale values survive JSON intact.
type signOrderInput struct {
	Registry       string `json:"registry"`
	Shape          uint8  `json:"shape"`
	Asset          string `json:"asset"`
	Currency       string `json:"currency"`
	TokenID        string `json:"token_id"`
	Price          string `json:"price"`
	MaximumFill    uint64 `json:"maximum_fill"`
	ListingTime    uint64 `json:"listing_time"`
	ExpirationTime uint64 `json:"expiration_time"`
	Salt           string `json:"salt"`
}

// SignOrderMode reads an order from stdin, signs it with the configured key,
// and prints the maker address, order hash, and signature.
func (a *App) SignOrderMode(_ context.Context) error {
	keyHex, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    a.cfg.Signer.PrivateKey,
		EncryptedKeyPath: a.cfg.Signer.EncryptedKeyPath,
		KeyPassword:      a.cfg.Signer.KeyPassword,
	})
	if err != nil {
		return fmt.Errorf("app: load key: %w", err)
	}
	signer, err := crypto.NewSigner(keyHex, a.cfg.Chain.ChainID)
	if err != nil {
		return fmt.Errorf("app: signer: %w", err)
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("app: read order: %w", err)
	}
	var in signOrderInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return fmt.Errorf("app: decode order: %w", err)
	}

	order, err := in.toOrder(signer.Address())
	if err != nil {
		return err
	}

	sig, err := signer.SignOrderHex(order)
	if err != nil {
		return fmt.Errorf("app: sign order: %w", err)
	}
	hash := crypto.OrderDigest(order, a.cfg.Chain.ChainID)

	out, err := json.MarshalIndent(map[string]string{
		"maker":     order.Maker.Hex(),
		"hash":      hash.Hex(),
		"signature": sig,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("app: encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func (in signOrderInput) toOrder(maker common.Address) (domain.Order, error) {
	if in.Shape > uint8(domain.ShapeCurrencyForAsset) {
		return domain.Order{}, fmt.Errorf("app: unknown shape %d", in.Shape)
	}
	for name, addr := range map[string]string{
		"registry": in.Registry, "asset": in.Asset, "currency": in.Currency,
	} {
		if addr != "" && !common.IsHexAddress(addr) {
			return domain.Order{}, fmt.Errorf("app: %s: invalid address %q", name, addr)
		}
	}

	tokenID, ok := new(big.Int).SetString(in.TokenID, 10)
	if !ok {
		return domain.Order{}, fmt.Errorf("app: token_id: invalid amount %q", in.TokenID)
	}
	price, ok := new(big.Int).SetString(in.Price, 10)
	if !ok {
		return domain.Order{}, fmt.Errorf("app: price: invalid amount %q", in.Price)
	}
	salt, ok := new(big.Int).SetString(in.Salt, 10)
	if !ok {
		return domain.Order{}, fmt.Errorf("app: salt: invalid amount %q", in.Salt)
	}

	return domain.Order{
		Registry: common.HexToAddress(in.Registry),
		Maker:    maker,
		Shape:    domain.TradeShape(in.Shape),
		Terms: domain.ShapeTerms{
			Asset:    common.HexToAddress(in.Asset),
			Currency: common.HexToAddress(in.Currency),
			TokenID:  tokenID,
			Price:    price,
		},
		MaximumFill:    in.MaximumFill,
		ListingTime:    in.ListingTime,
		ExpirationTime: in.ExpirationTime,
		Salt:           salt,
	}, nil
}
