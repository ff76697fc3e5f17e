package settlement

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-marketplace/internal/common"
)

// Lister pages through a seller's settlements.
type Lister interface {
	ListSettlementsBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]Settlement, error)
}

// Handler exposes read-only settlement endpoints.
type Handler struct {
	Settlements Lister
}

// ListBySeller handles GET /api/v1/sellers/{id}/settlements.
func (h *Handler) ListBySeller(w http.ResponseWriter, r *http.Request) {
	if h.Settlements == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settlement store not configured", nil)
		return
	}
	sellerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "seller id is not a uuid", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	rows, err := h.Settlements.ListSettlementsBySeller(r.Context(), sellerID, perPage, (page-1)*perPage)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       rows,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: len(rows)},
	})
}
