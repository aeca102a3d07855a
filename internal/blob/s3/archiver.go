package s3blob

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// SettlementArchiveStore is the narrow slice of the settlement journal the
// archiver needs: time-ranged reads and the matching delete.
type SettlementArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Settlement, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Archiver implements domain.Archiver by serializing old settlement-journal
// rows to JSONL, uploading the file to blob storage, and deleting the rows
// from the primary store once the upload has succeeded.
type Archiver struct {
	writer      domain.BlobWriter
	settlements SettlementArchiveStore
	logger      *slog.Logger
}

// NewArchiver creates an Archiver over the given writer and journal.
func NewArchiver(writer domain.BlobWriter, settlements SettlementArchiveStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer:      writer,
		settlements: settlements,
		logger:      logger,
	}
}

// archivedSettlement is the JSONL wire form of a journal row. Amounts travel
// as decimal strings.
type archivedSettlement struct {
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
	OrderASalt  string    `json:"order_a_salt"`
	OrderBSalt  string    `json:"order_b_salt"`
	Metadata    string    `json:"metadata"`
	SettledAt   time.Time `json:"settled_at"`
}

// ArchiveBefore uploads all settlements settled strictly before the cutoff
// to archive/settlements/YYYY-MM.jsonl, then deletes them from the journal.
// It returns the number of rows archived.
func (a *Archiver) ArchiveBefore(ctx context.Context, before time.Time) (int, error) {
	rows, err := a.settlements.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive query: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(rows)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive marshal: %w", err)
	}

	path := archivePath(before)
	if err := a.writer.Write(ctx, path, buf); err != nil {
		return 0, fmt.Errorf("s3blob: archive upload: %w", err)
	}

	// The rows are deleted only after the upload succeeded. A failure here
	// leaves duplicates in the archive on retry, never data loss.
	deleted, err := a.settlements.DeleteBefore(ctx, before)
	if err != nil {
		return len(rows), fmt.Errorf("s3blob: archive delete: %w", err)
	}

	a.logger.InfoContext(ctx, "settlements archived",
		"path", path,
		"archived", len(rows),
		"deleted", deleted,
		"before", before.Format(time.RFC3339),
	)
	return len(rows), nil
}

// archivePath builds the object key, partitioned by the year-month of the
// cutoff: archive/settlements/2026-08.jsonl.
func archivePath(before time.Time) string {
	return fmt.Sprintf("archive/settlements/%s.jsonl", before.Format("2006-01"))
}

func marshalJSONL(rows []domain.Settlement) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, s := range rows {
		rec := archivedSettlement{
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
			OrderASalt:  bigString(s.OrderASalt),
			OrderBSalt:  bigString(s.OrderBSalt),
			Metadata:    hex.EncodeToString(s.Metadata[:]),
			SettledAt:   s.SettledAt,
		}
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

func bigString(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}

var _ domain.Archiver = (*Archiver)(nil)
