package seller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-marketplace/internal/common"
)

// Store is the persistence surface the seller endpoints need.
type Store interface {
	CreateSeller(ctx context.Context, row *Seller) error
	GetSeller(ctx context.Context, id uuid.UUID) (*Seller, error)
	ListSellers(ctx context.Context, status Status, limit, offset int) ([]*Seller, error)
	UpdateSellerStatus(ctx context.Context, id uuid.UUID, status Status) error
	UpdateSellerLogistics(ctx context.Context, id uuid.UUID, cfg *LogisticsConfig) error
}

// Handler exposes seller onboarding and lifecycle endpoints.
type Handler struct {
	store    Store
	validate *validator.Validate
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Store    Store
	Validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	v := cfg.Validate
	if v == nil {
		v = validator.New()
	}
	return &Handler{store: cfg.Store, validate: v}
}

type registerRequest struct {
	StoreName          string    `json:"store_name" validate:"required,min=2,max=120"`
	Slug               string    `json:"slug" validate:"required,min=2,max=64"`
	SellerType         string    `json:"seller_type" validate:"omitempty,oneof=b2b_wholesale b2c_retail hybrid"`
	OwnerID            uuid.UUID `json:"owner_id" validate:"required"`
	PlatformFeePercent string    `json:"platform_fee_percent" validate:"omitempty"`
}

// Register handles POST /api/v1/sellers. New sellers start in pending
// status and become eligible for settlements only after approval.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "seller store not configured", nil)
		return
	}
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "malformed request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
		return
	}

	fee := DefaultPlatformFeePercent
	if strings.TrimSpace(req.PlatformFeePercent) != "" {
		parsed, err := decimal.NewFromString(req.PlatformFeePercent)
		if err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "platform_fee_percent is not a decimal", nil)
			return
		}
		fee = parsed
	}

	sellerType := Type(req.SellerType)
	if sellerType == "" {
		sellerType = TypeB2CRetail
	}
	row := &Seller{
		ID:                 uuid.New(),
		StoreName:          strings.TrimSpace(req.StoreName),
		Slug:               strings.ToLower(strings.TrimSpace(req.Slug)),
		Status:             StatusPending,
		Type:               sellerType,
		PlatformFeePercent: fee,
		OwnerID:            req.OwnerID,
	}
	if err := row.ValidateFee(); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
		return
	}
	if err := h.store.CreateSeller(r.Context(), row); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": row})
}

// Get handles GET /api/v1/sellers/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	row, err := h.store.GetSeller(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": row})
}

// List handles GET /api/v1/sellers with optional status filter and
// pagination.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "seller store not configured", nil)
		return
	}
	status := Status(strings.TrimSpace(r.URL.Query().Get("status")))
	page, perPage := common.ParsePagination(r, 20)
	rows, err := h.store.ListSellers(r.Context(), status, perPage, (page-1)*perPage)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Approve handles POST /api/v1/sellers/{id}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(s *Seller) error { return s.Approve() })
}

// Suspend handles POST /api/v1/sellers/{id}/suspend.
func (h *Handler) Suspend(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(s *Seller) error { return s.Suspend() })
}

// Deactivate handles POST /api/v1/sellers/{id}/deactivate.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(s *Seller) error { return s.Deactivate() })
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, move func(*Seller) error) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	row, err := h.store.GetSeller(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := move(row); err != nil {
		h.writeError(w, common.NewAppError("INVALID_TRANSITION", err.Error(), http.StatusConflict, err))
		return
	}
	if err := h.store.UpdateSellerStatus(r.Context(), id, row.Status); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": row})
}

// UpdateLogistics handles PUT /api/v1/sellers/{id}/logistics. The
// configuration is validated at this boundary; malformed blobs are
// rejected instead of being stored for a later silent fallback.
func (h *Handler) UpdateLogistics(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	raw, err := readBody(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read payload", nil)
		return
	}
	cfg, err := ParseLogisticsConfig(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_LOGISTICS", err.Error(), nil)
		return
	}
	if err := h.store.UpdateSellerLogistics(r.Context(), id, cfg); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cfg})
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	if h.store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "seller store not configured", nil)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "seller id is not a uuid", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	switch {
	case strings.Contains(err.Error(), "not found"):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "seller not found", nil)
	case strings.Contains(err.Error(), "slug already taken"):
		common.JSONError(w, http.StatusConflict, "SLUG_TAKEN", "store slug already in use", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}

func readBody(r *http.Request) ([]byte, error) {
	defer func() { _ = r.Body.Close() }()
	return io.ReadAll(r.Body)
}
