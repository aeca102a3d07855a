// Package server assembles the HTTP and WebSocket API on top of the
// application services.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mosaicmarkets/mosaicd/internal/server/handler"
	"github.com/mosaicmarkets/mosaicd/internal/server/middleware"
	"github.com/mosaicmarkets/mosaicd/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // empty disables general authentication

	// Governance roles. The super-admin key covers the whole governance
	// surface; the admin key covers fee configuration; the whitelist key
	// covers reward-whitelist changes only.
	AdminKey      string
	SuperAdminKey string
	WhitelistKey  string
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health *handler.HealthHandler
	Trades *handler.TradeHandler
	Assets *handler.AssetHandler
	Params *handler.ParamsHandler
	Admin  *handler.AdminHandler
}

// Server is the HTTP + WebSocket API server for the settlement engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered, wires up the
// middleware chain, and attaches the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Settlement endpoints.
	mux.HandleFunc("POST /api/trades", handlers.Trades.Settle)
	mux.HandleFunc("POST /api/trades/preview", handlers.Trades.Preview)
	mux.HandleFunc("GET /api/settlements/{id}", handlers.Assets.GetSettlement)
	mux.HandleFunc("GET /api/stats", handlers.Assets.GetStats)

	// Asset read endpoints.
	mux.HandleFunc("GET /api/assets/{contract}/{token}/history", handlers.Assets.GetHistory)
	mux.HandleFunc("GET /api/assets/{contract}/{token}/settlements", handlers.Assets.ListSettlements)

	// Parameter read endpoints.
	mux.HandleFunc("GET /api/params/mining", handlers.Params.GetMiningParams)
	mux.HandleFunc("GET /api/params/fees", handlers.Params.GetFeeConfig)

	// Governance surface. Mining parameters are super-admin only; fee
	// configuration also accepts the admin key; the whitelist has its own
	// whitelister role.
	mux.HandleFunc("PUT /api/admin/params/mining",
		middleware.RequireRole(handlers.Admin.UpdateMiningParams, cfg.SuperAdminKey))
	mux.HandleFunc("PUT /api/admin/params/fees",
		middleware.RequireRole(handlers.Admin.UpdateFeeConfig, cfg.AdminKey, cfg.SuperAdminKey))
	mux.HandleFunc("POST /api/admin/whitelist",
		middleware.RequireRole(handlers.Admin.UpdateWhitelist, cfg.WhitelistKey, cfg.SuperAdminKey))

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware sets CORS headers for the allowed origins. No configured
// origins means all origins are allowed.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
