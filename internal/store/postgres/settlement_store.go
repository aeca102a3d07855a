package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mosaicmarkets/mosaicd/internal/domain"
)

// SettlementStore implements domain.SettlementStore using PostgreSQL.
type SettlementStore struct {
	pool *pgxpool.Pool
}

// NewSettlementStore creates a SettlementStore backed by the given connection
// pool.
func NewSettlementStore(pool *pgxpool.Pool) *SettlementStore {
	return &SettlementStore{pool: pool}
}

const settlementSelectCols = `id, asset, token_id, seller, buyer, price,
	platform_fee, reward, block_height, is_primary, order_a_salt, order_b_salt,
	metadata, settled_at`

// Insert journals a settled trade.
func (s *SettlementStore) Insert(ctx context.Context, row domain.Settlement) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO settlements (
			id, asset, token_id, seller, buyer, price,
			platform_fee, reward, block_height, is_primary,
			order_a_salt, order_b_salt, metadata, settled_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14
		)`,
		row.ID, addressKey(row.Asset), numericFromBig(row.TokenID),
		addressKey(row.Seller), addressKey(row.Buyer), numericFromBig(row.Price),
		numericFromBig(row.PlatformFee), numericFromBig(row.Reward),
		row.BlockHeight, row.Primary,
		numericFromBig(row.OrderASalt), numericFromBig(row.OrderBSalt),
		row.Metadata[:], row.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert settlement: %w", err)
	}
	return nil
}

// GetByID returns a single settlement, or domain.ErrNotFound.
func (s *SettlementStore) GetByID(ctx context.Context, id string) (domain.Settlement, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+settlementSelectCols+` FROM settlements WHERE id = $1`, id)

	settlement, err := scanSettlement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Settlement{}, fmt.Errorf("%w: settlement %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("postgres: get settlement: %w", err)
	}
	return settlement, nil
}

// ListByAsset returns settlements for an asset, newest first.
func (s *SettlementStore) ListByAsset(ctx context.Context, key domain.AssetKey, opts domain.ListOpts) ([]domain.Settlement, error) {
	query := `SELECT ` + settlementSelectCols + `
		FROM settlements
		WHERE asset = $1 AND token_id = $2
		ORDER BY settled_at DESC`
	args := []any{addressKey(key.Contract), numericFromBig(key.TokenID)}
	argIdx := 3

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list settlements by asset: %w", err)
	}
	defer rows.Close()
	return scanSettlementRows(rows)
}

// ListBefore returns all settlements settled strictly before the given time,
// oldest first, for archiving.
func (s *SettlementStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Settlement, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+settlementSelectCols+` FROM settlements WHERE settled_at < $1 ORDER BY settled_at ASC`,
		before,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list settlements before: %w", err)
	}
	defer rows.Close()
	return scanSettlementRows(rows)
}

// DeleteBefore deletes settlements settled before the given time and returns
// the number deleted.
func (s *SettlementStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM settlements WHERE settled_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete settlements before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the total number of journaled settlements.
func (s *SettlementStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM settlements").Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count settlements: %w", err)
	}
	return n, nil
}

func scanSettlement(row pgx.Row) (domain.Settlement, error) {
	var (
		out                         domain.Settlement
		asset, seller, buyer        string
		tokenID, price, fee, reward string
		saltA, saltB                string
		metadata                    []byte
	)
	err := row.Scan(
		&out.ID, &asset, &tokenID, &seller, &buyer, &price,
		&fee, &reward, &out.BlockHeight, &out.Primary,
		&saltA, &saltB, &metadata, &out.SettledAt,
	)
	if err != nil {
		return domain.Settlement{}, err
	}

	out.Asset = common.HexToAddress(asset)
	out.Seller = common.HexToAddress(seller)
	out.Buyer = common.HexToAddress(buyer)
	copy(out.Metadata[:], metadata)

	if out.TokenID, err = bigFromNumeric(tokenID); err != nil {
		return domain.Settlement{}, err
	}
	if out.Price, err = bigFromNumeric(price); err != nil {
		return domain.Settlement{}, err
	}
	if out.PlatformFee, err = bigFromNumeric(fee); err != nil {
		return domain.Settlement{}, err
	}
	if out.Reward, err = bigFromNumeric(reward); err != nil {
		return domain.Settlement{}, err
	}
	if out.OrderASalt, err = bigFromNumeric(saltA); err != nil {
		return domain.Settlement{}, err
	}
	if out.OrderBSalt, err = bigFromNumeric(saltB); err != nil {
		return domain.Settlement{}, err
	}
	return out, nil
}

func scanSettlementRows(rows pgx.Rows) ([]domain.Settlement, error) {
	var out []domain.Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan settlement: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
