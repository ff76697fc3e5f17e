package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-marketplace/internal/resilience"
	"github.com/noah-isme/backend-marketplace/internal/settlement"
)

// ErrTransferRejected marks a transfer the provider refused outright. Callers
// treat it as permanent; any other Transfer error is transient and safe to
// retry.
var ErrTransferRejected = errors.New("payout: transfer rejected by provider")

// HTTPGateway disburses seller earnings through an external transfer API.
// Requests go through the resilient client so transient provider errors are
// retried before the settlement is marked failed.
type HTTPGateway struct {
	BaseURL string
	APIKey  string
	Client  resilience.HTTPClient
}

type transferRequest struct {
	SettlementID string `json:"settlement_id"`
	SellerID     string `json:"seller_id"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
}

type transferResponse struct {
	Ref string `json:"ref"`
}

// Transfer sends a disbursement request and returns the provider reference.
func (g *HTTPGateway) Transfer(ctx context.Context, s settlement.Settlement) (string, error) {
	if g == nil || g.BaseURL == "" {
		return "", errors.New("payout: gateway not configured")
	}
	body, err := json.Marshal(transferRequest{
		SettlementID: s.ID.String(),
		SellerID:     s.SellerID.String(),
		Amount:       s.SellerEarnings.StringFixed(2),
		Currency:     s.Currency,
	})
	if err != nil {
		return "", err
	}
	url := strings.TrimRight(g.BaseURL, "/") + "/transfers"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.APIKey)
	}

	resp, err := g.Client.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("payout: transfer request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		// The resilient client already retried 5xx, so a non-2xx response
		// here is the provider refusing the transfer.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return "", fmt.Errorf("%w: %s: %s", ErrTransferRejected, resp.Status, strings.TrimSpace(string(snippet)))
		}
		return "", fmt.Errorf("payout: provider returned %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	var out transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("payout: decode transfer response: %w", err)
	}
	if out.Ref == "" {
		return "", errors.New("payout: provider response missing transfer ref")
	}
	return out.Ref, nil
}
