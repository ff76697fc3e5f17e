package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-marketplace/internal/common"
	"github.com/noah-isme/backend-marketplace/internal/events"
	"github.com/noah-isme/backend-marketplace/internal/obs"
	"github.com/noah-isme/backend-marketplace/internal/order"
	"github.com/noah-isme/backend-marketplace/internal/settlement"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Webhook-Signature"

// OrderLoader fetches the order a payment confirmation refers to.
type OrderLoader interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*order.Order, error)
}

// SettlementCreator turns a paid order into per-seller settlements.
type SettlementCreator interface {
	CreateForOrder(ctx context.Context, o *order.Order) ([]settlement.Settlement, error)
}

type notification struct {
	OrderID uuid.UUID `json:"order_id"`
	Status  string    `json:"status"`
	Ref     string    `json:"ref,omitempty"`
}

// Webhook handles payment confirmation callbacks. A verified "paid"
// notification is the trigger for settlement creation; everything after
// signature and replay checks is idempotent, so redelivered webhooks are
// safe.
type Webhook struct {
	Secret    string
	Orders    OrderLoader
	Creator   SettlementCreator
	Replay    *redis.Client
	ReplayTTL time.Duration
	Events    *events.Bus
	Logger    zerolog.Logger
}

// Handle processes a payment confirmation callback.
func (h Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Secret == "" || h.Orders == nil || h.Creator == nil {
		common.JSONError(w, http.StatusInternalServerError, "WEBHOOK_NOT_CONFIGURED", "webhook unavailable", nil)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read payload", nil)
		return
	}
	if !h.verifySignature(body, r.Header.Get(SignatureHeader)) {
		h.count("invalid_signature")
		common.JSONError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "signature verification failed", nil)
		return
	}

	var note notification
	if err := json.Unmarshal(body, &note); err != nil || note.OrderID == uuid.Nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "malformed notification", nil)
		return
	}

	ctx := r.Context()
	if h.Replay != nil && h.ReplayTTL > 0 {
		key := fmt.Sprintf("wh:payment:%s", common.Sha256Hex(string(body)))
		ok, err := h.Replay.SetNX(ctx, key, "1", h.ReplayTTL).Result()
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "REPLAY_STORE_ERROR", err.Error(), nil)
			return
		}
		if !ok {
			h.count("replay")
			common.JSONError(w, http.StatusConflict, "REPLAY", "duplicate webhook", nil)
			return
		}
	}

	if !isPaidStatus(note.Status) {
		h.count("ignored_status")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	o, err := h.Orders.GetOrder(ctx, note.OrderID)
	if err != nil {
		h.count("order_not_found")
		common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
		return
	}

	if h.Events != nil {
		payload := map[string]any{"order_id": o.ID, "status": note.Status}
		if note.Ref != "" {
			payload["ref"] = note.Ref
		}
		if _, err := h.Events.Emit(ctx, events.TopicOrderPaid, o.ID, payload); err != nil {
			h.Logger.Error().Err(err).Str("order_id", o.ID.String()).Msg("emit order.paid")
		}
	}

	created, err := h.Creator.CreateForOrder(ctx, o)
	if err != nil {
		h.count("settlement_error")
		common.JSONError(w, http.StatusInternalServerError, "SETTLEMENT_FAILED", err.Error(), nil)
		return
	}
	h.count("settled")
	common.JSON(w, http.StatusOK, map[string]any{
		"order_id":            o.ID,
		"settlements_created": len(created),
	})
}

func (h Webhook) verifySignature(body []byte, header string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.Secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(header)))
}

func isPaidStatus(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "PAID", "SUCCESS", "SETTLED":
		return true
	default:
		return false
	}
}

func (h Webhook) count(result string) {
	if obs.OrderPaidWebhookTotal != nil {
		obs.OrderPaidWebhookTotal.WithLabelValues(result).Inc()
	}
}

// Sign computes the signature header value for a payload. Exposed for
// tests and for provider simulators.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
