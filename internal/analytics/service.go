package analytics

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-marketplace/internal/settlement"
)

// ReportingStatuses are the settlement statuses counted toward revenue
// and earnings aggregates. Failed and cancelled settlements are excluded.
var ReportingStatuses = []settlement.Status{
	settlement.StatusPending,
	settlement.StatusPaid,
}

// SettlementAggParams bounds a settlement aggregate by seller, status set
// and an optional creation-time range. The range is half-open: rows with
// created_at >= From and created_at < To match. Callers expressing an
// inclusive end date pass the start of the following day as To.
type SettlementAggParams struct {
	SellerID uuid.UUID
	Statuses []settlement.Status
	From     *time.Time
	To       *time.Time
}

// OrderCountParams bounds the distinct-order count for a seller. From and To
// form the same half-open range as SettlementAggParams.
type OrderCountParams struct {
	SellerID uuid.UUID
	From     *time.Time
	To       *time.Time
}

// Querier defines the database access required for seller reporting.
type Querier interface {
	SumSettlementOrderTotals(ctx context.Context, arg SettlementAggParams) (decimal.Decimal, error)
	SumSettlementEarnings(ctx context.Context, arg SettlementAggParams) (decimal.Decimal, error)
	CountSellerOrders(ctx context.Context, arg OrderCountParams) (int64, error)
}

// Service provides cached access to per-seller settlement aggregates.
type Service struct {
	Q   Querier
	R   *redis.Client
	TTL time.Duration
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

func rangeKey(from, to *time.Time) string {
	f, t := "-", "-"
	if from != nil {
		f = from.Format("2006-01-02")
	}
	if to != nil {
		t = to.Format("2006-01-02")
	}
	return f + ":" + t
}

// SellerRevenue returns the sum of order totals over the seller's pending
// and paid settlements, optionally bounded by creation date.
func (s *Service) SellerRevenue(ctx context.Context, sellerID uuid.UUID, from, to *time.Time) (decimal.Decimal, error) {
	if s == nil || s.Q == nil {
		return decimal.Zero, fmt.Errorf("analytics service not configured")
	}
	key := cacheKey("an", "rev", sellerID, rangeKey(from, to))
	if v, ok := s.getAmount(ctx, key); ok {
		return v, nil
	}
	total, err := s.Q.SumSettlementOrderTotals(ctx, SettlementAggParams{
		SellerID: sellerID,
		Statuses: ReportingStatuses,
		From:     from,
		To:       to,
	})
	if err != nil {
		return decimal.Zero, err
	}
	s.store(ctx, key, total.String())
	return total, nil
}

// SellerEarnings returns the sum of seller earnings over the seller's
// pending and paid settlements, optionally bounded by creation date.
func (s *Service) SellerEarnings(ctx context.Context, sellerID uuid.UUID, from, to *time.Time) (decimal.Decimal, error) {
	if s == nil || s.Q == nil {
		return decimal.Zero, fmt.Errorf("analytics service not configured")
	}
	key := cacheKey("an", "earn", sellerID, rangeKey(from, to))
	if v, ok := s.getAmount(ctx, key); ok {
		return v, nil
	}
	total, err := s.Q.SumSettlementEarnings(ctx, SettlementAggParams{
		SellerID: sellerID,
		Statuses: ReportingStatuses,
		From:     from,
		To:       to,
	})
	if err != nil {
		return decimal.Zero, err
	}
	s.store(ctx, key, total.String())
	return total, nil
}

// SellerOrderCount returns the number of distinct non-draft, non-cancelled,
// non-expired orders containing at least one line owned by the seller.
func (s *Service) SellerOrderCount(ctx context.Context, sellerID uuid.UUID, from, to *time.Time) (int64, error) {
	if s == nil || s.Q == nil {
		return 0, fmt.Errorf("analytics service not configured")
	}
	key := cacheKey("an", "orders", sellerID, rangeKey(from, to))
	if s.R != nil && s.TTL > 0 {
		if raw, err := s.R.Get(ctx, key).Result(); err == nil {
			if n, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
				return n, nil
			}
		}
	}
	n, err := s.Q.CountSellerOrders(ctx, OrderCountParams{SellerID: sellerID, From: from, To: to})
	if err != nil {
		return 0, err
	}
	s.store(ctx, key, strconv.FormatInt(n, 10))
	return n, nil
}

func (s *Service) getAmount(ctx context.Context, key string) (decimal.Decimal, bool) {
	if s.R == nil || s.TTL <= 0 {
		return decimal.Zero, false
	}
	raw, err := s.R.Get(ctx, key).Result()
	if err != nil {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

func (s *Service) store(ctx context.Context, key, value string) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	_ = s.R.Set(ctx, key, value, s.TTL).Err()
}
