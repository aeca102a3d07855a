package handler

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// SettlementService defines what the trade handler requires from the
// service layer.
type SettlementService interface {
	Settle(ctx context.Context, req domain.TradeRequest) (domain.Settlement, error)
	PredictReward(ctx context.Context, key domain.AssetKey, price *big.Int) (*big.Int, error)
}

// TradeHandler serves the settlement endpoints.
type TradeHandler struct {
	settlements SettlementService
	logger      *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(settlements SettlementService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{settlements: settlements, logger: logger}
}

// orderDTO is the wire form of a signed order. Amounts and the salt travel
// as decimal strings; addresses as 0x-hex.
type orderDTO struct {
	Registry       string `json:"registry"`
	Maker          string `json:"maker"`
	Shape          uint8  `json:"shape"`
	Asset          string `json:"asset"`
	Currency       string `json:"currency,omitempty"`
	TokenID        string `json:"token_id"`
	Price          string `json:"price"`
	MaximumFill    uint64 `json:"maximum_fill"`
	ListingTime    uint64 `json:"listing_time"`
	ExpirationTime uint64 `json:"expiration_time"`
	Salt           string `json:"salt"`
}

// callDTO is the wire form of a proposed call. A call with an empty target
// is the currency leg.
type callDTO struct {
	Target  string `json:"target,omitempty"`
	Kind    uint8  `json:"kind"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	TokenID string `json:"token_id,omitempty"`
}

type tradeRequestDTO struct {
	OrderA   orderDTO `json:"order_a"`
	SigA     string   `json:"sig_a"`
	CallA    callDTO  `json:"call_a"`
	OrderB   orderDTO `json:"order_b"`
	SigB     string   `json:"sig_b"`
	CallB    callDTO  `json:"call_b"`
	Caller   string   `json:"caller"`
	Value    string   `json:"value"`
	Metadata string   `json:"metadata,omitempty"`
}

// settlementDTO is the wire form of a journaled settlement.
type settlementDTO struct {
	ID          string    `json:"id"`
	Asset       string    `json:"asset"`
	TokenID     string    `json:"token_id"`
	Seller      string    `json:"seller"`
	Buyer       string    `json:"buyer"`
	Price       string    `json:"price"`
	PlatformFee string    `json:"platform_fee"`
	Reward      string    `json:"reward"`
	BlockHeight uint64    `json:"block_height"`
	Primary     bool      `json:"primary"`
	SettledAt   time.Time `json:"settled_at"`
}

func settlementToDTO(s domain.Settlement) settlementDTO {
	return settlementDTO{
		ID:          s.ID,
		Asset:       s.Asset.Hex(),
		TokenID:     bigString(s.TokenID),
		Seller:      s.Seller.Hex(),
		Buyer:       s.Buyer.Hex(),
		Price:       bigString(s.Price),
		PlatformFee: bigString(s.PlatformFee),
		Reward:      bigString(s.Reward),
		BlockHeight: s.BlockHeight,
		Primary:     s.Primary,
		SettledAt:   s.SettledAt,
	}
}

// Settle accepts two signed orders plus their calls and runs the atomic
// swap.
// POST /api/trades
func (h *TradeHandler) Settle(w http.ResponseWriter, r *http.Request) {
	var dto tradeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	req, err := decodeTradeRequest(dto)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	settlement, err := h.settlements.Settle(r.Context(), req)
	if err != nil {
		h.logger.InfoContext(r.Context(), "handler: trade rejected",
			slog.String("caller", req.Caller.Hex()),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, settlementToDTO(settlement))
}

type previewRequest struct {
	Asset   string `json:"asset"`
	TokenID string `json:"token_id"`
	Price   string `json:"price"`
}

// Preview returns the reward a hypothetical trade at the given price would
// mine at the current block height, without settling anything.
// POST /api/trades/preview
func (h *TradeHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var dto previewRequest
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	asset, err := parseAddress(dto.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tokenID, err := parseBigInt(dto.TokenID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id: "+err.Error())
		return
	}
	price, err := parseBigInt(dto.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price: "+err.Error())
		return
	}

	reward, err := h.settlements.PredictReward(r.Context(),
		domain.AssetKey{Contract: asset, TokenID: tokenID}, price)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"reward": bigString(reward)})
}

func decodeTradeRequest(dto tradeRequestDTO) (domain.TradeRequest, error) {
	var req domain.TradeRequest
	var err error

	if req.OrderA, err = decodeOrder(dto.OrderA, "order_a"); err != nil {
		return domain.TradeRequest{}, err
	}
	if req.OrderB, err = decodeOrder(dto.OrderB, "order_b"); err != nil {
		return domain.TradeRequest{}, err
	}
	if req.SigA, err = decodeHex(dto.SigA, "sig_a"); err != nil {
		return domain.TradeRequest{}, err
	}
	if req.SigB, err = decodeHex(dto.SigB, "sig_b"); err != nil {
		return domain.TradeRequest{}, err
	}
	if req.CallA, err = decodeCall(dto.CallA, "call_a"); err != nil {
		return domain.TradeRequest{}, err
	}
	if req.CallB, err = decodeCall(dto.CallB, "call_b"); err != nil {
		return domain.TradeRequest{}, err
	}
	if req.Caller, err = parseAddress(dto.Caller); err != nil {
		return domain.TradeRequest{}, fmt.Errorf("caller: %w", err)
	}
	if req.Value, err = parseBigInt(dto.Value); err != nil {
		return domain.TradeRequest{}, fmt.Errorf("value: %w", err)
	}

	if dto.Metadata != "" {
		meta, err := decodeHex(dto.Metadata, "metadata")
		if err != nil {
			return domain.TradeRequest{}, err
		}
		if len(meta) > len(req.Metadata) {
			return domain.TradeRequest{}, fmt.Errorf("metadata exceeds 32 bytes")
		}
		copy(req.Metadata[:], meta)
	}

	return req, nil
}

func decodeOrder(dto orderDTO, field string) (domain.Order, error) {
	var o domain.Order
	var err error

	if o.Registry, err = parseAddress(dto.Registry); err != nil {
		return domain.Order{}, fmt.Errorf("%s.registry: %w", field, err)
	}
	if o.Maker, err = parseAddress(dto.Maker); err != nil {
		return domain.Order{}, fmt.Errorf("%s.maker: %w", field, err)
	}
	if dto.Shape > uint8(domain.ShapeCurrencyForAsset) {
		return domain.Order{}, fmt.Errorf("%s.shape: unknown trade shape %d", field, dto.Shape)
	}
	o.Shape = domain.TradeShape(dto.Shape)

	if o.Terms.Asset, err = parseAddress(dto.Asset); err != nil {
		return domain.Order{}, fmt.Errorf("%s.asset: %w", field, err)
	}
	if dto.Currency != "" {
		if o.Terms.Currency, err = parseAddress(dto.Currency); err != nil {
			return domain.Order{}, fmt.Errorf("%s.currency: %w", field, err)
		}
	}
	if o.Terms.TokenID, err = parseBigInt(dto.TokenID); err != nil {
		return domain.Order{}, fmt.Errorf("%s.token_id: %w", field, err)
	}
	if o.Terms.Price, err = parseBigInt(dto.Price); err != nil {
		return domain.Order{}, fmt.Errorf("%s.price: %w", field, err)
	}
	if o.Salt, err = parseBigInt(dto.Salt); err != nil {
		return domain.Order{}, fmt.Errorf("%s.salt: %w", field, err)
	}

	o.MaximumFill = dto.MaximumFill
	o.ListingTime = dto.ListingTime
	o.ExpirationTime = dto.ExpirationTime
	return o, nil
}

func decodeCall(dto callDTO, field string) (domain.Call, error) {
	var c domain.Call
	var err error

	// An all-empty call is the buyer's currency leg.
	if dto.Target == "" && dto.From == "" && dto.To == "" && dto.TokenID == "" {
		return c, nil
	}

	if c.Target, err = parseAddress(dto.Target); err != nil {
		return domain.Call{}, fmt.Errorf("%s.target: %w", field, err)
	}
	if dto.Kind > uint8(domain.CallDelegate) {
		return domain.Call{}, fmt.Errorf("%s.kind: unknown call kind %d", field, dto.Kind)
	}
	c.Kind = domain.CallKind(dto.Kind)

	if c.Transfer.From, err = parseAddress(dto.From); err != nil {
		return domain.Call{}, fmt.Errorf("%s.from: %w", field, err)
	}
	if c.Transfer.To, err = parseAddress(dto.To); err != nil {
		return domain.Call{}, fmt.Errorf("%s.to: %w", field, err)
	}
	if c.Transfer.TokenID, err = parseBigInt(dto.TokenID); err != nil {
		return domain.Call{}, fmt.Errorf("%s.token_id: %w", field, err)
	}
	return c, nil
}

func decodeHex(s, field string) ([]byte, error) {
	data, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid hex: %w", field, err)
	}
	return data, nil
}
