package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-marketplace/internal/analytics"
	"github.com/noah-isme/backend-marketplace/internal/order"
	"github.com/noah-isme/backend-marketplace/internal/seller"
)

// GetOrder loads an order with its discounts and lines. Line sellers are
// hydrated from the sellers table so settlement creation can read fee
// percentages and logistics configuration without further queries. Persisted
// lines carry the denormalized seller only; there is no product record to
// fall back on, so Line.Product stays nil.
func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreUnavailable
	}
	var o order.Order
	err := s.db.QueryRow(ctx, `SELECT id, status, currency, created_at FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.Status, &o.Currency, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if o.Discounts, err = s.orderDiscounts(ctx, id); err != nil {
		return nil, fmt.Errorf("repo: load order discounts: %w", err)
	}
	if o.Lines, err = s.orderLines(ctx, id); err != nil {
		return nil, fmt.Errorf("repo: load order lines: %w", err)
	}
	return &o, nil
}

func (s *Store) orderDiscounts(ctx context.Context, orderID uuid.UUID) ([]order.Discount, error) {
	rows, err := s.db.Query(ctx, `SELECT discount_type, amount FROM order_discounts
WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []order.Discount
	for rows.Next() {
		var (
			d      order.Discount
			amount pgtype.Numeric
		)
		if err := rows.Scan(&d.Type, &amount); err != nil {
			return nil, err
		}
		d.Amount = decimalFromNumeric(amount)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) orderLines(ctx context.Context, orderID uuid.UUID) ([]order.Line, error) {
	rows, err := s.db.Query(ctx, `SELECT
	l.id, l.order_id, l.quantity, l.total_gross, l.total_net, l.weight_kg,
	s.id, s.store_name, s.slug, s.status, s.seller_type, s.platform_fee_percent,
	s.owner_id, s.logistics_config, s.created_at, s.updated_at
FROM order_lines l
LEFT JOIN sellers s ON s.id = l.seller_id
WHERE l.order_id = $1
ORDER BY l.created_at, l.id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []order.Line
	for rows.Next() {
		var (
			l      order.Line
			gross  pgtype.Numeric
			net    pgtype.Numeric
			weight pgtype.Numeric

			sellerID      pgtype.UUID
			storeName     pgtype.Text
			slug          pgtype.Text
			status        pgtype.Text
			sellerType    pgtype.Text
			fee           pgtype.Numeric
			ownerID       pgtype.UUID
			logistics     []byte
			sellerMade    pgtype.Timestamptz
			sellerTouched pgtype.Timestamptz
		)
		err := rows.Scan(&l.ID, &l.OrderID, &l.Quantity, &gross, &net, &weight,
			&sellerID, &storeName, &slug, &status, &sellerType, &fee,
			&ownerID, &logistics, &sellerMade, &sellerTouched)
		if err != nil {
			return nil, err
		}
		l.TotalGross = decimalFromNumeric(gross)
		l.TotalNet = decimalFromNumeric(net)
		l.WeightKG = decimalFromNumeric(weight)
		if sellerID.Valid {
			row := &seller.Seller{
				ID:                 uuid.UUID(sellerID.Bytes),
				StoreName:          storeName.String,
				Slug:               slug.String,
				Status:             seller.Status(status.String),
				Type:               seller.Type(sellerType.String),
				PlatformFeePercent: decimalFromNumeric(fee),
				CreatedAt:          sellerMade.Time,
				UpdatedAt:          sellerTouched.Time,
			}
			if ownerID.Valid {
				row.OwnerID = uuid.UUID(ownerID.Bytes)
			}
			if len(logistics) > 0 {
				if cfg, err := seller.ParseLogisticsConfig(logistics); err == nil {
					row.Logistics = cfg
				}
			}
			l.Seller = row
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CountSellerOrders counts distinct orders with at least one line owned by
// the seller, excluding draft, cancelled and expired orders.
func (s *Store) CountSellerOrders(ctx context.Context, arg analytics.OrderCountParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, ErrStoreUnavailable
	}
	query := `SELECT COUNT(DISTINCT o.id)
FROM orders o
JOIN order_lines l ON l.order_id = o.id
WHERE l.seller_id = $1 AND o.status NOT IN ('draft', 'canceled', 'expired')`
	args := []any{arg.SellerID}
	if arg.From != nil {
		args = append(args, *arg.From)
		query += fmt.Sprintf(" AND o.created_at >= $%d", len(args))
	}
	if arg.To != nil {
		args = append(args, *arg.To)
		query += fmt.Sprintf(" AND o.created_at < $%d", len(args))
	}
	var n int64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
