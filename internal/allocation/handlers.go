package allocation

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-marketplace/internal/common"
	"github.com/noah-isme/backend-marketplace/internal/money"
	"github.com/noah-isme/backend-marketplace/internal/order"
)

// OrderLoader fetches the order whose lines drive an allocation preview.
type OrderLoader interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*order.Order, error)
}

// Handler previews how a shared cost would split across the sellers of an
// order, without persisting anything. Finance uses this to sanity-check
// negotiated B2B rates before a settlement run.
type Handler struct {
	Orders        OrderLoader
	DefaultMethod Method
}

type previewRequest struct {
	Amount string `json:"amount"`
	Method string `json:"method"`
}

type previewShare struct {
	SellerID string `json:"seller_id"`
	Amount   string `json:"amount"`
}

// PreviewShipping handles POST /api/v1/orders/{id}/allocations/shipping.
func (h *Handler) PreviewShipping(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Orders == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "allocation preview not configured", nil)
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "order id must be a uuid", nil)
		return
	}

	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "malformed request body", nil)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() {
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_AMOUNT", "amount must be a non-negative decimal string", nil)
		return
	}
	method := h.DefaultMethod
	if req.Method != "" {
		method = Method(req.Method)
	}

	o, err := h.Orders.GetOrder(r.Context(), orderID)
	if err != nil {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		return
	}

	var sellerLines []order.Line
	for _, line := range o.Lines {
		if line.Seller != nil {
			sellerLines = append(sellerLines, line)
		}
	}
	groups := GroupLinesBySeller(sellerLines)

	result, err := ShippingCost(groups, amount, method)
	if err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_METHOD", err.Error(), nil)
		return
	}

	shares := make([]previewShare, 0, len(result))
	for id, amt := range result {
		shares = append(shares, previewShare{SellerID: id.String(), Amount: money.Quantize(amt).StringFixed(2)})
	}
	sort.Slice(shares, func(i, j int) bool { return shares[i].SellerID < shares[j].SellerID })

	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"order_id":    o.ID.String(),
		"method":      string(method),
		"currency":    o.Currency,
		"allocations": shares,
		"total":       money.Quantize(result.Total()).StringFixed(2),
	}})
}
