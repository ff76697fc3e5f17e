package analytics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-marketplace/internal/common"
)

// Handler exposes seller reporting endpoints.
type Handler struct {
	Service *Service
}

// SellerSummary handles GET /api/v1/sellers/{id}/analytics. Optional
// from/to query parameters bound the reporting window (YYYY-MM-DD, from
// inclusive, to exclusive).
func (h *Handler) SellerSummary(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "analytics service not configured", nil)
		return
	}
	sellerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "seller id is not a uuid", nil)
		return
	}
	from, ok := parseDate(w, r.URL.Query().Get("from"))
	if !ok {
		return
	}
	to, ok := parseDate(w, r.URL.Query().Get("to"))
	if !ok {
		return
	}

	ctx := r.Context()
	revenue, err := h.Service.SellerRevenue(ctx, sellerID, from, to)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
		return
	}
	earnings, err := h.Service.SellerEarnings(ctx, sellerID, from, to)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
		return
	}
	orders, err := h.Service.SellerOrderCount(ctx, sellerID, from, to)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
		return
	}

	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"seller_id":   sellerID,
			"revenue":     revenue.StringFixed(2),
			"earnings":    earnings.StringFixed(2),
			"order_count": orders,
		},
	})
}

func parseDate(w http.ResponseWriter, raw string) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_DATE", "dates must be YYYY-MM-DD", nil)
		return nil, false
	}
	return &t, true
}
