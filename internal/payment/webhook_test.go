package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-marketplace/internal/order"
	"github.com/noah-isme/backend-marketplace/internal/settlement"
)

const testSecret = "sup3rsecret"

type stubOrders struct {
	orders map[uuid.UUID]*order.Order
}

func (s *stubOrders) GetOrder(_ context.Context, id uuid.UUID) (*order.Order, error) {
	if o, ok := s.orders[id]; ok {
		return o, nil
	}
	return nil, errors.New("not found")
}

type stubCreator struct {
	created []settlement.Settlement
	err     error
	calls   int
}

func (s *stubCreator) CreateForOrder(_ context.Context, _ *order.Order) ([]settlement.Settlement, error) {
	s.calls++
	return s.created, s.err
}

func newWebhook(t *testing.T, orders *stubOrders, creator *stubCreator) Webhook {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Webhook{
		Secret:    testSecret,
		Orders:    orders,
		Creator:   creator,
		Replay:    client,
		ReplayTTL: time.Hour,
		Logger:    zerolog.Nop(),
	}
}

func signedRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(body))
	req.Header.Set(SignatureHeader, Sign(testSecret, []byte(body)))
	return req
}

func paidBody(orderID uuid.UUID) string {
	return fmt.Sprintf(`{"order_id":%q,"status":"paid","ref":"pay_1"}`, orderID)
}

func TestWebhookCreatesSettlements(t *testing.T) {
	orderID := uuid.New()
	orders := &stubOrders{orders: map[uuid.UUID]*order.Order{
		orderID: {ID: orderID, Status: order.StatusUnfulfilled, Currency: "USD"},
	}}
	creator := &stubCreator{created: make([]settlement.Settlement, 2)}
	h := newWebhook(t, orders, creator)

	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(t, paidBody(orderID)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.EqualValues(t, 2, resp["settlements_created"])
	require.Equal(t, 1, creator.calls)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	orderID := uuid.New()
	h := newWebhook(t, &stubOrders{}, &stubCreator{})

	body := paidBody(orderID)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(body))
	req.Header.Set(SignatureHeader, Sign("wrong-secret", []byte(body)))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	h := newWebhook(t, &stubOrders{}, &stubCreator{})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(paidBody(uuid.New())))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookReplayRejected(t *testing.T) {
	orderID := uuid.New()
	orders := &stubOrders{orders: map[uuid.UUID]*order.Order{
		orderID: {ID: orderID, Status: order.StatusUnfulfilled, Currency: "USD"},
	}}
	creator := &stubCreator{}
	h := newWebhook(t, orders, creator)
	body := paidBody(orderID)

	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(t, body))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Handle(rec, signedRequest(t, body))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, 1, creator.calls)
}

func TestWebhookIgnoresNonPaidStatus(t *testing.T) {
	orderID := uuid.New()
	creator := &stubCreator{}
	h := newWebhook(t, &stubOrders{}, creator)

	body := fmt.Sprintf(`{"order_id":%q,"status":"failed"}`, orderID)
	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(t, body))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Zero(t, creator.calls)
}

func TestWebhookUnknownOrder(t *testing.T) {
	h := newWebhook(t, &stubOrders{}, &stubCreator{})
	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(t, paidBody(uuid.New())))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhookMalformedPayload(t *testing.T) {
	h := newWebhook(t, &stubOrders{}, &stubCreator{})
	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(t, `{"status":"paid"}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
