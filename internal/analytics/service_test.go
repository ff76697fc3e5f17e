package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-marketplace/internal/settlement"
)

type stubQuerier struct {
	revenue  decimal.Decimal
	earnings decimal.Decimal
	orders   int64

	revenueCalls int
	orderCalls   int
	lastAgg      SettlementAggParams
	lastCount    OrderCountParams
}

func (q *stubQuerier) SumSettlementOrderTotals(_ context.Context, arg SettlementAggParams) (decimal.Decimal, error) {
	q.revenueCalls++
	q.lastAgg = arg
	return q.revenue, nil
}

func (q *stubQuerier) SumSettlementEarnings(_ context.Context, arg SettlementAggParams) (decimal.Decimal, error) {
	q.lastAgg = arg
	return q.earnings, nil
}

func (q *stubQuerier) CountSellerOrders(_ context.Context, arg OrderCountParams) (int64, error) {
	q.orderCalls++
	q.lastCount = arg
	return q.orders, nil
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSellerRevenueCachesResult(t *testing.T) {
	q := &stubQuerier{revenue: decimal.RequireFromString("120.50")}
	svc := &Service{Q: q, R: newTestRedis(t), TTL: time.Minute}
	sellerID := uuid.New()

	first, err := svc.SellerRevenue(context.Background(), sellerID, nil, nil)
	require.NoError(t, err)
	require.True(t, first.Equal(decimal.RequireFromString("120.50")))

	second, err := svc.SellerRevenue(context.Background(), sellerID, nil, nil)
	require.NoError(t, err)
	require.True(t, second.Equal(first))
	require.Equal(t, 1, q.revenueCalls)
}

func TestSellerRevenueFiltersReportingStatuses(t *testing.T) {
	q := &stubQuerier{revenue: decimal.Zero}
	svc := &Service{Q: q}

	_, err := svc.SellerRevenue(context.Background(), uuid.New(), nil, nil)
	require.NoError(t, err)
	require.Equal(t, []settlement.Status{settlement.StatusPending, settlement.StatusPaid}, q.lastAgg.Statuses)
}

func TestSellerEarningsPassesDateRange(t *testing.T) {
	q := &stubQuerier{earnings: decimal.RequireFromString("80.00")}
	svc := &Service{Q: q}
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	total, err := svc.SellerEarnings(context.Background(), uuid.New(), &from, &to)
	require.NoError(t, err)
	require.True(t, total.Equal(decimal.RequireFromString("80.00")))
	require.Equal(t, &from, q.lastAgg.From)
	require.Equal(t, &to, q.lastAgg.To)
}

func TestSellerOrderCountCachesResult(t *testing.T) {
	q := &stubQuerier{orders: 7}
	svc := &Service{Q: q, R: newTestRedis(t), TTL: time.Minute}
	sellerID := uuid.New()

	n, err := svc.SellerOrderCount(context.Background(), sellerID, nil, nil)
	require.NoError(t, err)
	require.EqualValues(t, 7, n)

	n, err = svc.SellerOrderCount(context.Background(), sellerID, nil, nil)
	require.NoError(t, err)
	require.EqualValues(t, 7, n)
	require.Equal(t, 1, q.orderCalls)
}

func TestServiceWithoutRedisStillQueries(t *testing.T) {
	q := &stubQuerier{orders: 3}
	svc := &Service{Q: q}

	n, err := svc.SellerOrderCount(context.Background(), uuid.New(), nil, nil)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	n, err = svc.SellerOrderCount(context.Background(), uuid.New(), nil, nil)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
	require.Equal(t, 2, q.orderCalls)
}

func TestServiceNotConfigured(t *testing.T) {
	var svc *Service
	_, err := svc.SellerRevenue(context.Background(), uuid.New(), nil, nil)
	require.Error(t, err)
}
