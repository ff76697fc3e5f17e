package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-marketplace/internal/analytics"
	"github.com/noah-isme/backend-marketplace/internal/settlement"
)

// SettlementExists reports whether a settlement already exists for the
// given seller and order pair.
func (s *Store) SettlementExists(ctx context.Context, sellerID, orderID uuid.UUID) (bool, error) {
	if s == nil || s.db == nil {
		return false, ErrStoreUnavailable
	}
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM seller_settlements WHERE seller_id = $1 AND order_id = $2)`, sellerID, orderID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// InsertSettlement persists a new settlement row. A unique violation on the
// (seller, order) pair is reported as settlement.ErrDuplicate so callers can
// treat racing writers as a skip.
func (s *Store) InsertSettlement(ctx context.Context, row *settlement.Settlement) error {
	if s == nil || s.db == nil {
		return ErrStoreUnavailable
	}
	err := s.db.QueryRow(ctx, `INSERT INTO seller_settlements
(id, seller_id, order_id, order_total, platform_fee, seller_earnings, currency, status, payout_ref, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at, updated_at`,
		row.ID, row.SellerID, row.OrderID,
		numericFromDecimal(row.OrderTotal), numericFromDecimal(row.PlatformFee), numericFromDecimal(row.SellerEarnings),
		row.Currency, row.Status, row.PayoutRef, row.Notes,
	).Scan(&row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return settlement.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetSettlement fetches a settlement by ID.
func (s *Store) GetSettlement(ctx context.Context, id uuid.UUID) (settlement.Settlement, error) {
	if s == nil || s.db == nil {
		return settlement.Settlement{}, ErrStoreUnavailable
	}
	row := s.db.QueryRow(ctx, `SELECT id, seller_id, order_id, order_total, platform_fee, seller_earnings,
currency, status, payout_ref, notes, created_at, updated_at, paid_at
FROM seller_settlements WHERE id = $1`, id)
	out, err := scanSettlement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return settlement.Settlement{}, ErrNotFound
	}
	return out, err
}

// UpdateSettlementStatus advances a settlement's status, guarded by the
// monotonic transition rules. It refuses transitions the status machine
// does not allow by matching the expected source statuses in the WHERE
// clause; zero rows updated means the settlement was not in a movable state.
func (s *Store) UpdateSettlementStatus(ctx context.Context, id uuid.UUID, status settlement.Status, payoutRef string, paidAt *time.Time) error {
	if s == nil || s.db == nil {
		return ErrStoreUnavailable
	}
	sources := transitionSources(status)
	if len(sources) == 0 {
		return fmt.Errorf("repo: no transition into status %q", status)
	}
	var paid pgtype.Timestamptz
	if paidAt != nil {
		paid = pgtype.Timestamptz{Time: *paidAt, Valid: true}
	}
	tag, err := s.db.Exec(ctx, `UPDATE seller_settlements
SET status = $2,
    payout_ref = CASE WHEN $3 <> '' THEN $3 ELSE payout_ref END,
    paid_at = COALESCE($4, paid_at),
    updated_at = now()
WHERE id = $1 AND status = ANY($5)`, id, status, payoutRef, paid, sources)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo: settlement %s not movable to %q", id, status)
	}
	return nil
}

// ListSettlementsBySeller returns a page of the seller's settlements, newest
// first.
func (s *Store) ListSettlementsBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]settlement.Settlement, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreUnavailable
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.Query(ctx, `SELECT id, seller_id, order_id, order_total, platform_fee, seller_earnings,
currency, status, payout_ref, notes, created_at, updated_at, paid_at
FROM seller_settlements WHERE seller_id = $1
ORDER BY created_at DESC LIMIT $2 OFFSET $3`, sellerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []settlement.Settlement
	for rows.Next() {
		row, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// SumSettlementOrderTotals sums order_total over the seller's settlements
// matching the status set and optional creation-date range.
func (s *Store) SumSettlementOrderTotals(ctx context.Context, arg analytics.SettlementAggParams) (decimal.Decimal, error) {
	return s.sumSettlementColumn(ctx, "order_total", arg)
}

// SumSettlementEarnings sums seller_earnings over the same filter.
func (s *Store) SumSettlementEarnings(ctx context.Context, arg analytics.SettlementAggParams) (decimal.Decimal, error) {
	return s.sumSettlementColumn(ctx, "seller_earnings", arg)
}

func (s *Store) sumSettlementColumn(ctx context.Context, column string, arg analytics.SettlementAggParams) (decimal.Decimal, error) {
	if s == nil || s.db == nil {
		return decimal.Zero, ErrStoreUnavailable
	}
	statuses := make([]string, 0, len(arg.Statuses))
	for _, st := range arg.Statuses {
		statuses = append(statuses, string(st))
	}
	query := `SELECT COALESCE(SUM(` + column + `), 0) FROM seller_settlements
WHERE seller_id = $1 AND status = ANY($2)`
	args := []any{arg.SellerID, statuses}
	if arg.From != nil {
		args = append(args, *arg.From)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if arg.To != nil {
		args = append(args, *arg.To)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	var total pgtype.Numeric
	if err := s.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return decimalFromNumeric(total), nil
}

func transitionSources(next settlement.Status) []string {
	var out []string
	for _, from := range []settlement.Status{
		settlement.StatusPending,
		settlement.StatusProcessing,
		settlement.StatusPaid,
		settlement.StatusFailed,
		settlement.StatusCancelled,
	} {
		if from.CanTransitionTo(next) {
			out = append(out, string(from))
		}
	}
	return out
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSettlement(row rowScanner) (settlement.Settlement, error) {
	var (
		out      settlement.Settlement
		orderID  pgtype.UUID
		total    pgtype.Numeric
		fee      pgtype.Numeric
		earnings pgtype.Numeric
		paidAt   pgtype.Timestamptz
	)
	err := row.Scan(&out.ID, &out.SellerID, &orderID, &total, &fee, &earnings,
		&out.Currency, &out.Status, &out.PayoutRef, &out.Notes,
		&out.CreatedAt, &out.UpdatedAt, &paidAt)
	if err != nil {
		return settlement.Settlement{}, err
	}
	if orderID.Valid {
		id := uuid.UUID(orderID.Bytes)
		out.OrderID = &id
	}
	out.OrderTotal = decimalFromNumeric(total)
	out.PlatformFee = decimalFromNumeric(fee)
	out.SellerEarnings = decimalFromNumeric(earnings)
	if paidAt.Valid {
		t := paidAt.Time
		out.PaidAt = &t
	}
	return out, nil
}
