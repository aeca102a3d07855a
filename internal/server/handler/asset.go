package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// QueryService defines what the asset and settlement read handlers require
// from the service layer.
type QueryService interface {
	AssetHistory(ctx context.Context, key domain.AssetKey) (domain.AssetHistory, error)
	IsWhitelisted(ctx context.Context, key domain.AssetKey) (bool, error)
	Settlement(ctx context.Context, id string) (domain.Settlement, error)
	SettlementsByAsset(ctx context.Context, key domain.AssetKey, opts domain.ListOpts) ([]domain.Settlement, error)
	MiningParams(ctx context.Context) (domain.MiningParams, error)
	FeeConfig(ctx context.Context) (domain.FeeConfig, error)
	SettlementCount(ctx context.Context) (int64, error)
}

// AssetHandler serves asset history and settlement read endpoints.
type AssetHandler struct {
	queries QueryService
	logger  *slog.Logger
}

// NewAssetHandler creates an AssetHandler.
func NewAssetHandler(queries QueryService, logger *slog.Logger) *AssetHandler {
	return &AssetHandler{queries: queries, logger: logger}
}

type historyResponse struct {
	Contract         string `json:"contract"`
	TokenID          string `json:"token_id"`
	HighestPriceSold string `json:"highest_price_sold"`
	LastTradeHeight  uint64 `json:"last_trade_height"`
	Whitelisted      bool   `json:"whitelisted"`
}

// GetHistory returns the recorded trade history for an asset.
// GET /api/assets/{contract}/{token}/history
func (h *AssetHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	key, err := parseAssetKey(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hist, err := h.queries.AssetHistory(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no trade history for asset")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get history failed",
			slog.String("asset", key.String()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	listed, err := h.queries.IsWhitelisted(r.Context(), key)
	if err != nil {
		listed = false
	}

	writeJSON(w, http.StatusOK, historyResponse{
		Contract:         hist.Key.Contract.Hex(),
		TokenID:          bigString(hist.Key.TokenID),
		HighestPriceSold: bigString(hist.HighestPriceSold),
		LastTradeHeight:  hist.LastTradeHeight,
		Whitelisted:      listed,
	})
}

type listSettlementsResponse struct {
	Settlements []settlementDTO `json:"settlements"`
}

// ListSettlements returns the journaled settlements for an asset, newest
// first.
// GET /api/assets/{contract}/{token}/settlements
func (h *AssetHandler) ListSettlements(w http.ResponseWriter, r *http.Request) {
	key, err := parseAssetKey(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.queries.SettlementsByAsset(r.Context(), key, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list settlements failed",
			slog.String("asset", key.String()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list settlements")
		return
	}

	out := make([]settlementDTO, 0, len(rows))
	for _, s := range rows {
		out = append(out, settlementToDTO(s))
	}
	writeJSON(w, http.StatusOK, listSettlementsResponse{Settlements: out})
}

// GetSettlement returns a single journaled settlement by ID.
// GET /api/settlements/{id}
func (h *AssetHandler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "settlement id required")
		return
	}

	s, err := h.queries.Settlement(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "settlement not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load settlement")
		return
	}
	writeJSON(w, http.StatusOK, settlementToDTO(s))
}

type statsResponse struct {
	SettlementCount int64 `json:"settlement_count"`
}

// GetStats returns aggregate journal statistics.
// GET /api/stats
func (h *AssetHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	count, err := h.queries.SettlementCount(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: settlement count failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{SettlementCount: count})
}
