package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

const historyTTL = 5 * time.Minute

// HistoryCache implements domain.HistoryCache using JSON-serialized asset
// history records with a short TTL. The query path reads through it; the
// settlement path writes around it and invalidates.
//
// Key schema:
//
//	history:{contract}:{tokenID} - JSON-encoded record
type HistoryCache struct {
	rdb *redis.Client
}

// NewHistoryCache creates a HistoryCache backed by the given Client.
func NewHistoryCache(c *Client) *HistoryCache {
	return &HistoryCache{rdb: c.Underlying()}
}

func historyKey(key domain.AssetKey) string {
	tokenID := "0"
	if key.TokenID != nil {
		tokenID = key.TokenID.String()
	}
	return "history:" + strings.ToLower(key.Contract.Hex()) + ":" + tokenID
}

// cachedHistory is the wire form of an asset history record. Amounts travel
// as decimal strings.
type cachedHistory struct {
	Contract         string `json:"contract"`
	TokenID          string `json:"token_id"`
	HighestPriceSold string `json:"highest_price_sold"`
	LastTradeHeight  uint64 `json:"last_trade_height"`
}

// Set stores an asset history record with a 5-minute TTL.
func (hc *HistoryCache) Set(ctx context.Context, hist domain.AssetHistory) error {
	rec := cachedHistory{
		Contract:        strings.ToLower(hist.Key.Contract.Hex()),
		LastTradeHeight: hist.LastTradeHeight,
	}
	if hist.Key.TokenID != nil {
		rec.TokenID = hist.Key.TokenID.String()
	} else {
		rec.TokenID = "0"
	}
	if hist.HighestPriceSold != nil {
		rec.HighestPriceSold = hist.HighestPriceSold.String()
	} else {
		rec.HighestPriceSold = "0"
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis: marshal history %s: %w", hist.Key, err)
	}
	if err := hc.rdb.Set(ctx, historyKey(hist.Key), data, historyTTL).Err(); err != nil {
		return fmt.Errorf("redis: set history %s: %w", hist.Key, err)
	}
	return nil
}

// Get retrieves a cached history record. It returns domain.ErrNotFound when
// the key does not exist or the cached entry is malformed.
func (hc *HistoryCache) Get(ctx context.Context, key domain.AssetKey) (domain.AssetHistory, error) {
	data, err := hc.rdb.Get(ctx, historyKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.AssetHistory{}, domain.ErrNotFound
		}
		return domain.AssetHistory{}, fmt.Errorf("redis: get history %s: %w", key, err)
	}

	var rec cachedHistory
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.AssetHistory{}, fmt.Errorf("redis: unmarshal history %s: %w", key, err)
	}

	price, ok := new(big.Int).SetString(rec.HighestPriceSold, 10)
	tokenID, ok2 := new(big.Int).SetString(rec.TokenID, 10)
	if !ok || !ok2 {
		// Treat a corrupted entry as a miss; the store is authoritative.
		_ = hc.rdb.Del(ctx, historyKey(key)).Err()
		return domain.AssetHistory{}, domain.ErrNotFound
	}

	return domain.AssetHistory{
		Key: domain.AssetKey{
			Contract: common.HexToAddress(rec.Contract),
			TokenID:  tokenID,
		},
		HighestPriceSold: price,
		LastTradeHeight:  rec.LastTradeHeight,
	}, nil
}

// Invalidate removes a history record from the cache.
func (hc *HistoryCache) Invalidate(ctx context.Context, key domain.AssetKey) error {
	if err := hc.rdb.Del(ctx, historyKey(key)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate history %s: %w", key, err)
	}
	return nil
}

var _ domain.HistoryCache = (*HistoryCache)(nil)
