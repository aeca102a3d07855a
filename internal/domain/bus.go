package domain

import (
	"context"
	"time"
)

// StreamMessage is a single entry read from a durable event stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub event distribution plus durable, ordered
// streams for settlement events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// HistoryCache is a read-through cache in front of the history store, used
// by the query path only; the settlement path always reads the store.
type HistoryCache interface {
	Get(ctx context.Context, key AssetKey) (AssetHistory, error)
	Set(ctx context.Context, hist AssetHistory) error
	Invalidate(ctx context.Context, key AssetKey) error
}

// LockManager provides distributed locks so that multi-instance deployments
// serialize settlements on the same asset.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// BlobWriter uploads a named object to blob storage.
type BlobWriter interface {
	Write(ctx context.Context, key string, data []byte) error
}

// Archiver moves old settlement-journal rows to blob storage.
type Archiver interface {
	ArchiveBefore(ctx context.Context, before time.Time) (int, error)
}
