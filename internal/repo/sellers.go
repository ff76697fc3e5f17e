package repo

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-marketplace/internal/seller"
)

// ErrSlugTaken indicates another seller already owns the requested slug.
var ErrSlugTaken = errors.New("repo: seller slug already taken")

// CreateSeller persists a new seller in pending status.
func (s *Store) CreateSeller(ctx context.Context, row *seller.Seller) error {
	if s == nil || s.db == nil {
		return ErrStoreUnavailable
	}
	logistics, err := encodeLogistics(row.Logistics)
	if err != nil {
		return err
	}
	err = s.db.QueryRow(ctx, `INSERT INTO sellers
(id, store_name, slug, status, seller_type, platform_fee_percent, owner_id, logistics_config)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING created_at, updated_at`,
		row.ID, row.StoreName, row.Slug, row.Status, row.Type,
		numericFromDecimal(row.PlatformFeePercent), row.OwnerID, logistics,
	).Scan(&row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrSlugTaken
		}
		return err
	}
	return nil
}

// GetSeller fetches a seller by ID.
func (s *Store) GetSeller(ctx context.Context, id uuid.UUID) (*seller.Seller, error) {
	return s.getSeller(ctx, `WHERE id = $1`, id)
}

// GetSellerBySlug fetches a seller by its store slug.
func (s *Store) GetSellerBySlug(ctx context.Context, slug string) (*seller.Seller, error) {
	return s.getSeller(ctx, `WHERE slug = $1`, slug)
}

func (s *Store) getSeller(ctx context.Context, where string, arg any) (*seller.Seller, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreUnavailable
	}
	row := s.db.QueryRow(ctx, `SELECT id, store_name, slug, status, seller_type, platform_fee_percent,
owner_id, logistics_config, created_at, updated_at FROM sellers `+where, arg)
	out, err := scanSeller(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListSellers returns a page of sellers, optionally filtered by status.
func (s *Store) ListSellers(ctx context.Context, status seller.Status, limit, offset int) ([]*seller.Seller, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreUnavailable
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT id, store_name, slug, status, seller_type, platform_fee_percent,
owner_id, logistics_config, created_at, updated_at FROM sellers`
	args := []any{}
	if status != "" {
		args = append(args, status)
		query += ` WHERE status = $1`
	}
	args = append(args, limit, offset)
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*seller.Seller
	for rows.Next() {
		row, err := scanSeller(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// UpdateSellerStatus stores a new lifecycle status for the seller. Callers
// are expected to have validated the transition through the seller domain
// methods first.
func (s *Store) UpdateSellerStatus(ctx context.Context, id uuid.UUID, status seller.Status) error {
	if s == nil || s.db == nil {
		return ErrStoreUnavailable
	}
	tag, err := s.db.Exec(ctx, `UPDATE sellers SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateSellerLogistics replaces the seller's logistics configuration blob.
func (s *Store) UpdateSellerLogistics(ctx context.Context, id uuid.UUID, cfg *seller.LogisticsConfig) error {
	if s == nil || s.db == nil {
		return ErrStoreUnavailable
	}
	logistics, err := encodeLogistics(cfg)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `UPDATE sellers SET logistics_config = $2, updated_at = now() WHERE id = $1`, id, logistics)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSeller(row rowScanner) (*seller.Seller, error) {
	var (
		out       seller.Seller
		fee       pgtype.Numeric
		logistics []byte
	)
	err := row.Scan(&out.ID, &out.StoreName, &out.Slug, &out.Status, &out.Type,
		&fee, &out.OwnerID, &logistics, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, err
	}
	out.PlatformFeePercent = decimalFromNumeric(fee)
	if len(logistics) > 0 {
		// Malformed stored config degrades to no logistics configuration,
		// matching the shipping adjustment fallback policy.
		if cfg, err := seller.ParseLogisticsConfig(logistics); err == nil {
			out.Logistics = cfg
		}
	}
	return &out, nil
}

func encodeLogistics(cfg *seller.LogisticsConfig) ([]byte, error) {
	if cfg == nil {
		return nil, nil
	}
	return json.Marshal(cfg)
}
