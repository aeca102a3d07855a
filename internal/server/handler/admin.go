package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// AdminService defines what the admin handler requires from the service
// layer.
type AdminService interface {
	SetMiningParams(ctx context.Context, p domain.MiningParams) error
	SetFeeConfig(ctx context.Context, f domain.FeeConfig) error
	SetWhitelisted(ctx context.Context, asset common.Address, whitelisted bool) error
}

// AdminHandler serves the governance write endpoints. Authentication is
// enforced by the route wiring, not here.
type AdminHandler struct {
	admin  AdminService
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(admin AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

// UpdateMiningParams replaces the liquidity-mining parameter set.
// PUT /api/admin/params/mining
func (h *AdminHandler) UpdateMiningParams(w http.ResponseWriter, r *http.Request) {
	var dto miningParamsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	p := domain.MiningParams{Enabled: dto.Enabled, WhitelistOnly: dto.WhitelistOnly}
	var err error
	if p.Epsilon, err = parseBigInt(dto.Epsilon); err != nil {
		writeError(w, http.StatusBadRequest, "epsilon: "+err.Error())
		return
	}
	if p.Alpha, err = parseBigInt(dto.Alpha); err != nil {
		writeError(w, http.StatusBadRequest, "alpha: "+err.Error())
		return
	}
	if p.Gamma, err = parseBigInt(dto.Gamma); err != nil {
		writeError(w, http.StatusBadRequest, "gamma: "+err.Error())
		return
	}
	if p.Omega, err = parseBigInt(dto.Omega); err != nil {
		writeError(w, http.StatusBadRequest, "omega: "+err.Error())
		return
	}
	if p.PriceThreshold, err = parseBigInt(dto.PriceThreshold); err != nil {
		writeError(w, http.StatusBadRequest, "price_threshold: "+err.Error())
		return
	}
	if p.MaxRewardPerTrade, err = parseBigInt(dto.MaxRewardPerTrade); err != nil {
		writeError(w, http.StatusBadRequest, "max_reward_per_trade: "+err.Error())
		return
	}

	if err := h.admin.SetMiningParams(r.Context(), p); err != nil {
		if errors.Is(err, domain.ErrInvalidParams) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: set mining params failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to update mining params")
		return
	}
	writeJSON(w, http.StatusOK, miningParamsToDTO(p))
}

// UpdateFeeConfig replaces the fee configuration.
// PUT /api/admin/params/fees
func (h *AdminHandler) UpdateFeeConfig(w http.ResponseWriter, r *http.Request) {
	var dto feeConfigDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	recipient, err := parseAddress(dto.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, "recipient: "+err.Error())
		return
	}

	f := domain.FeeConfig{
		Recipient:    recipient,
		PrimaryBps:   dto.PrimaryBps,
		SecondaryBps: dto.SecondaryBps,
	}
	if err := h.admin.SetFeeConfig(r.Context(), f); err != nil {
		if errors.Is(err, domain.ErrInvalidParams) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: set fee config failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to update fee config")
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

type whitelistRequest struct {
	Asset       string `json:"asset"`
	Whitelisted bool   `json:"whitelisted"`
}

// UpdateWhitelist adds or removes an asset contract from the reward
// whitelist.
// POST /api/admin/whitelist
func (h *AdminHandler) UpdateWhitelist(w http.ResponseWriter, r *http.Request) {
	var dto whitelistRequest
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	asset, err := parseAddress(dto.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, "asset: "+err.Error())
		return
	}

	if err := h.admin.SetWhitelisted(r.Context(), asset, dto.Whitelisted); err != nil {
		if errors.Is(err, domain.ErrInvalidParams) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: set whitelist failed",
			slog.String("asset", asset.Hex()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to update whitelist")
		return
	}
	writeJSON(w, http.StatusOK, dto)
}
