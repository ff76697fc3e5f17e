package allocation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-marketplace/internal/order"
	"github.com/noah-isme/backend-marketplace/internal/seller"
)

type memOrders struct {
	orders map[uuid.UUID]*order.Order
}

func (m *memOrders) GetOrder(_ context.Context, id uuid.UUID) (*order.Order, error) {
	if o, ok := m.orders[id]; ok {
		return o, nil
	}
	return nil, errors.New("order not found")
}

func previewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/v1/orders/{id}/allocations/shipping", h.PreviewShipping)
	return r
}

func twoSellerOrder(t *testing.T) *order.Order {
	t.Helper()
	factor := decimal.RequireFromString("0.9")
	retail := &seller.Seller{ID: uuid.New(), Status: seller.StatusActive, Type: seller.TypeB2CRetail}
	wholesale := &seller.Seller{
		ID:     uuid.New(),
		Status: seller.StatusActive,
		Type:   seller.TypeB2BWholesale,
		Logistics: &seller.LogisticsConfig{
			CustomShippingMethods: seller.CustomShippingMethods{B2BDiscountFactor: &factor},
		},
	}
	return &order.Order{
		ID:       uuid.New(),
		Status:   order.StatusUnfulfilled,
		Currency: "USD",
		Lines: []order.Line{
			{ID: uuid.New(), Seller: retail, Quantity: 1, TotalGross: decimal.RequireFromString("30.00")},
			{ID: uuid.New(), Seller: wholesale, Quantity: 2, TotalGross: decimal.RequireFromString("70.00")},
		},
	}
}

func TestPreviewShippingEqualAppliesB2BFactor(t *testing.T) {
	o := twoSellerOrder(t)
	h := &Handler{Orders: &memOrders{orders: map[uuid.UUID]*order.Order{o.ID: o}}, DefaultMethod: MethodProportional}

	body := `{"amount":"10.00","method":"equal"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+o.ID.String()+"/allocations/shipping", strings.NewReader(body))
	rec := httptest.NewRecorder()
	previewRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data struct {
			Method      string `json:"method"`
			Total       string `json:"total"`
			Allocations []struct {
				SellerID string `json:"seller_id"`
				Amount   string `json:"amount"`
			} `json:"allocations"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "equal", resp.Data.Method)
	require.Len(t, resp.Data.Allocations, 2)

	amounts := map[string]bool{}
	for _, share := range resp.Data.Allocations {
		amounts[share.Amount] = true
	}
	require.True(t, amounts["5.00"])
	require.True(t, amounts["4.50"])
	require.Equal(t, "9.50", resp.Data.Total)
}

func TestPreviewShippingDefaultsToConfiguredMethod(t *testing.T) {
	o := twoSellerOrder(t)
	h := &Handler{Orders: &memOrders{orders: map[uuid.UUID]*order.Order{o.ID: o}}, DefaultMethod: MethodProportional}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+o.ID.String()+"/allocations/shipping", strings.NewReader(`{"amount":"10.00"}`))
	rec := httptest.NewRecorder()
	previewRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data struct {
			Method string `json:"method"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "proportional", resp.Data.Method)
}

func TestPreviewShippingRejectsUnknownMethod(t *testing.T) {
	o := twoSellerOrder(t)
	h := &Handler{Orders: &memOrders{orders: map[uuid.UUID]*order.Order{o.ID: o}}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+o.ID.String()+"/allocations/shipping", strings.NewReader(`{"amount":"10.00","method":"random"}`))
	rec := httptest.NewRecorder()
	previewRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPreviewShippingUnknownOrder(t *testing.T) {
	h := &Handler{Orders: &memOrders{orders: map[uuid.UUID]*order.Order{}}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+uuid.NewString()+"/allocations/shipping", strings.NewReader(`{"amount":"10.00"}`))
	rec := httptest.NewRecorder()
	previewRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPreviewShippingRejectsNegativeAmount(t *testing.T) {
	o := twoSellerOrder(t)
	h := &Handler{Orders: &memOrders{orders: map[uuid.UUID]*order.Order{o.ID: o}}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+o.ID.String()+"/allocations/shipping", strings.NewReader(`{"amount":"-1"}`))
	rec := httptest.NewRecorder()
	previewRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
