package settlement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-marketplace/internal/allocation"
	"github.com/noah-isme/backend-marketplace/internal/events"
	"github.com/noah-isme/backend-marketplace/internal/obs"
	"github.com/noah-isme/backend-marketplace/internal/order"
)

// ErrDuplicate signals that a settlement for the (seller, order) pair already
// exists. Stores surface it when the uniqueness constraint trips under
// concurrent creation; the creator treats it as a skip, not a failure.
var ErrDuplicate = errors.New("settlement: already exists for seller and order")

// Store provides settlement persistence for the creator.
type Store interface {
	SettlementExists(ctx context.Context, sellerID, orderID uuid.UUID) (bool, error)
	InsertSettlement(ctx context.Context, s *Settlement) error
}

// TxStore is a Store that can run a callback within a single transaction.
// The creator uses it when available so the idempotency check and inserts
// stay consistent; the database uniqueness constraint remains the source of
// truth under races.
type TxStore interface {
	Store
	InTx(ctx context.Context, fn func(Store) error) error
}

// PayoutScheduler queues a created settlement for asynchronous payout.
type PayoutScheduler interface {
	SchedulePayout(ctx context.Context, settlementID uuid.UUID) error
}

// Creator builds settlement records for completed orders. It is invoked
// explicitly by the order-completion workflow (payment webhook, admin
// action) rather than from a persistence hook.
type Creator struct {
	Store          Store
	Events         *events.Bus
	Payouts        PayoutScheduler
	DiscountMethod allocation.Method
	Logger         zerolog.Logger
	Now            func() time.Time
}

func (c *Creator) now() time.Time {
	if c != nil && c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

func (c *Creator) discountMethod() allocation.Method {
	if c == nil || c.DiscountMethod == "" {
		return allocation.MethodProportional
	}
	return c.DiscountMethod
}

// OrderLevelDiscountTotal sums the voucher and promotion discounts attached
// to the order. Line-level discounts are excluded: they are already baked
// into each line's total price. Callers that must not fail on bad discount
// data treat an error from here as a zero discount.
func OrderLevelDiscountTotal(o *order.Order) (decimal.Decimal, error) {
	if o == nil {
		return decimal.Zero, nil
	}
	total := decimal.Zero
	for _, d := range o.Discounts {
		switch d.Type {
		case order.DiscountVoucher, order.DiscountPromotion:
			if d.Amount.IsNegative() {
				return decimal.Zero, fmt.Errorf("settlement: negative discount amount %s", d.Amount)
			}
			total = total.Add(d.Amount)
		}
	}
	return total, nil
}

// CreateForOrder creates one pending settlement per eligible seller on the
// order. Draft or absent orders are a no-op. Sellers that are inactive,
// already settled for this order, or left with a non-positive total after
// discount allocation are skipped silently. Only newly created settlements
// are returned, so a second call for an unchanged order returns an empty
// list.
func (c *Creator) CreateForOrder(ctx context.Context, o *order.Order) ([]Settlement, error) {
	if c == nil || c.Store == nil {
		return nil, errors.New("settlement: creator not configured")
	}
	if o.IsDraft() {
		return nil, nil
	}

	ctx, span := otel.Tracer("settlement.Creator").Start(ctx, "Creator.CreateForOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", o.ID.String()))

	var sellerLines []order.Line
	for _, line := range o.Lines {
		if line.Seller != nil {
			sellerLines = append(sellerLines, line)
		}
	}
	if len(sellerLines) == 0 {
		return nil, nil
	}

	groups := allocation.GroupLinesBySeller(sellerLines)

	discounts := c.allocateOrderDiscount(ctx, o, groups)

	var created []Settlement
	run := func(store Store) error {
		var err error
		created, err = c.createGroups(ctx, store, o, groups, discounts)
		return err
	}
	var err error
	if tx, ok := c.Store.(TxStore); ok {
		err = tx.InTx(ctx, run)
	} else {
		err = run(c.Store)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("settlement.created", len(created)))

	c.dispatch(ctx, o, created)
	return created, nil
}

// allocateOrderDiscount computes each seller's share of the order-level
// discount. Failures while reading discount data degrade to a zero
// allocation: settlement creation must not block on the discount subsystem.
func (c *Creator) allocateOrderDiscount(ctx context.Context, o *order.Order, groups allocation.Grouping) allocation.Result {
	discountTotal, err := OrderLevelDiscountTotal(o)
	if err != nil {
		c.Logger.Warn().Err(err).Str("order_id", o.ID.String()).Msg("discount total unreadable, settling without discount")
		return allocation.Result{}
	}
	if discountTotal.IsZero() {
		return allocation.Result{}
	}
	allocated, err := allocation.Discount(groups, discountTotal, c.discountMethod())
	if err != nil {
		c.Logger.Warn().Err(err).Str("order_id", o.ID.String()).Msg("discount allocation failed, settling without discount")
		return allocation.Result{}
	}
	return allocated
}

func (c *Creator) createGroups(ctx context.Context, store Store, o *order.Order, groups allocation.Grouping, discounts allocation.Result) ([]Settlement, error) {
	ids := make([]uuid.UUID, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	var created []Settlement
	for _, id := range ids {
		group := groups[id]
		s := group.Seller
		if s == nil || !s.IsActive() {
			countCreate("skipped_inactive")
			continue
		}

		exists, err := store.SettlementExists(ctx, s.ID, o.ID)
		if err != nil {
			return nil, fmt.Errorf("settlement: check existing for seller %s: %w", s.ID, err)
		}
		if exists {
			countCreate("skipped_existing")
			continue
		}

		allocated, ok := discounts[id]
		if !ok {
			allocated = decimal.Zero
		}
		totals := SellerOrderTotals(group.Lines, s, allocated)
		if !totals.OrderTotal.IsPositive() {
			countCreate("skipped_zero_total")
			continue
		}

		now := c.now()
		row := Settlement{
			ID:             uuid.New(),
			SellerID:       s.ID,
			OrderID:        ptr(o.ID),
			OrderTotal:     totals.OrderTotal,
			PlatformFee:    totals.PlatformFee,
			SellerEarnings: totals.SellerEarnings,
			Currency:       o.Currency,
			Status:         StatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := store.InsertSettlement(ctx, &row); err != nil {
			if errors.Is(err, ErrDuplicate) {
				// A concurrent writer won the race; the constraint did its job.
				countCreate("skipped_existing")
				continue
			}
			return nil, fmt.Errorf("settlement: insert for seller %s: %w", s.ID, err)
		}
		countCreate("created")
		created = append(created, row)
	}
	return created, nil
}

// dispatch emits creation events and schedules payouts after the transaction
// committed. Failures here are logged, not returned: the settlements exist.
func (c *Creator) dispatch(ctx context.Context, o *order.Order, created []Settlement) {
	for _, row := range created {
		if c.Events != nil {
			payload := map[string]any{
				"settlement_id":   row.ID,
				"seller_id":       row.SellerID,
				"order_id":        o.ID,
				"currency":        row.Currency,
				"seller_earnings": row.SellerEarnings,
			}
			if _, err := c.Events.Emit(ctx, events.TopicSettlementCreated, row.ID, payload); err != nil {
				c.Logger.Error().Err(err).Str("settlement_id", row.ID.String()).Msg("emit settlement.created")
			}
		}
		if c.Payouts != nil {
			if err := c.Payouts.SchedulePayout(ctx, row.ID); err != nil {
				c.Logger.Error().Err(err).Str("settlement_id", row.ID.String()).Msg("schedule payout")
			}
		}
	}
}

func countCreate(result string) {
	if obs.SettlementCreateTotal != nil {
		obs.SettlementCreateTotal.WithLabelValues(result).Inc()
	}
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }
