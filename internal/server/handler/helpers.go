// Package handler contains the HTTP handlers for the marketplace API.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the domain's sentinel errors onto HTTP status codes.
// Unknown errors become an opaque 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrLockHeld):
		writeError(w, http.StatusConflict, "asset is being settled, retry shortly")
	case errors.Is(err, domain.ErrAssetTransferFailed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidSignature),
		errors.Is(err, domain.ErrNotYetListed),
		errors.Is(err, domain.ErrExpired),
		errors.Is(err, domain.ErrFillExceeded),
		errors.Is(err, domain.ErrPredicateMismatch),
		errors.Is(err, domain.ErrInsufficientValue),
		errors.Is(err, domain.ErrArithmeticOverflow),
		errors.Is(err, domain.ErrBlockOrder),
		errors.Is(err, domain.ErrInvalidParams):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseListOpts extracts standard pagination parameters from the query
// string. Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// parseAssetKey reads {contract} and {token} path parameters into an
// AssetKey.
func parseAssetKey(r *http.Request) (domain.AssetKey, error) {
	addr, err := parseAddress(r.PathValue("contract"))
	if err != nil {
		return domain.AssetKey{}, err
	}
	tokenID, err := parseBigInt(r.PathValue("token"))
	if err != nil {
		return domain.AssetKey{}, fmt.Errorf("invalid token id: %w", err)
	}
	return domain.AssetKey{Contract: addr, TokenID: tokenID}, nil
}

// parseAddress validates and decodes a 20-byte hex address.
func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// parseBigInt decodes a non-negative decimal string.
func parseBigInt(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return n, nil
}

func bigString(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}
