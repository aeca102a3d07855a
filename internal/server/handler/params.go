package handler

import (
	"log/slog"
	"net/http"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// ParamsHandler serves the public read endpoints for mining parameters and
// the fee configuration.
type ParamsHandler struct {
	queries QueryService
	logger  *slog.Logger
}

// NewParamsHandler creates a ParamsHandler.
func NewParamsHandler(queries QueryService, logger *slog.Logger) *ParamsHandler {
	return &ParamsHandler{queries: queries, logger: logger}
}

// miningParamsDTO is the wire form of the mining parameter set. All amounts
// travel as decimal strings.
type miningParamsDTO struct {
	Epsilon           string `json:"epsilon"`
	Alpha             string `json:"alpha"`
	Gamma             string `json:"gamma"`
	Omega             string `json:"omega"`
	PriceThreshold    string `json:"price_threshold"`
	MaxRewardPerTrade string `json:"max_reward_per_trade"`
	Enabled           bool   `json:"enabled"`
	WhitelistOnly     bool   `json:"whitelist_only"`
}

func miningParamsToDTO(p domain.MiningParams) miningParamsDTO {
	return miningParamsDTO{
		Epsilon:           bigString(p.Epsilon),
		Alpha:             bigString(p.Alpha),
		Gamma:             bigString(p.Gamma),
		Omega:             bigString(p.Omega),
		PriceThreshold:    bigString(p.PriceThreshold),
		MaxRewardPerTrade: bigString(p.MaxRewardPerTrade),
		Enabled:           p.Enabled,
		WhitelistOnly:     p.WhitelistOnly,
	}
}

type feeConfigDTO struct {
	Recipient    string `json:"recipient"`
	PrimaryBps   uint64 `json:"primary_bps"`
	SecondaryBps uint64 `json:"secondary_bps"`
}

// GetMiningParams returns the active liquidity-mining parameters.
// GET /api/params/mining
func (h *ParamsHandler) GetMiningParams(w http.ResponseWriter, r *http.Request) {
	p, err := h.queries.MiningParams(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get mining params failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load mining params")
		return
	}
	writeJSON(w, http.StatusOK, miningParamsToDTO(p))
}

// GetFeeConfig returns the active fee configuration.
// GET /api/params/fees
func (h *ParamsHandler) GetFeeConfig(w http.ResponseWriter, r *http.Request) {
	f, err := h.queries.FeeConfig(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get fee config failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load fee config")
		return
	}
	writeJSON(w, http.StatusOK, feeConfigDTO{
		Recipient:    f.Recipient.Hex(),
		PrimaryBps:   f.PrimaryBps,
		SecondaryBps: f.SecondaryBps,
	})
}
