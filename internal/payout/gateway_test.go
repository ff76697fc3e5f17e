package payout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-marketplace/internal/resilience"
	"github.com/noah-isme/backend-marketplace/internal/settlement"
)

func TestHTTPGatewayTransfer(t *testing.T) {
	var got transferRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transfers", r.URL.Path)
		require.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]string{"ref": "tr_42"})
	}))
	defer srv.Close()

	g := &HTTPGateway{
		BaseURL: srv.URL,
		APIKey:  "key-1",
		Client:  resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 2},
	}
	s := settlement.Settlement{
		ID:             uuid.New(),
		SellerID:       uuid.New(),
		SellerEarnings: decimal.RequireFromString("45.00"),
		Currency:       "USD",
	}
	ref, err := g.Transfer(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, "tr_42", ref)
	require.Equal(t, "45.00", got.Amount)
	require.Equal(t, s.ID.String(), got.SettlementID)
}

func TestHTTPGatewayRetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"ref": "tr_retry"})
	}))
	defer srv.Close()

	g := &HTTPGateway{
		BaseURL: srv.URL,
		Client:  resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 3, BaseBackoff: time.Millisecond},
	}
	ref, err := g.Transfer(context.Background(), settlement.Settlement{ID: uuid.New(), SellerID: uuid.New(), SellerEarnings: decimal.New(10, 0), Currency: "USD"})
	require.NoError(t, err)
	require.Equal(t, "tr_retry", ref)
	require.Equal(t, 2, attempts)
}

func TestHTTPGatewayRejectsClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	g := &HTTPGateway{BaseURL: srv.URL, Client: resilience.HTTPClient{Client: srv.Client()}}
	_, err := g.Transfer(context.Background(), settlement.Settlement{ID: uuid.New()})
	require.ErrorIs(t, err, ErrTransferRejected)
}

func TestHTTPGatewayServerErrorIsNotRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := &HTTPGateway{
		BaseURL: srv.URL,
		Client:  resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 2, BaseBackoff: time.Millisecond},
	}
	_, err := g.Transfer(context.Background(), settlement.Settlement{ID: uuid.New()})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrTransferRejected)
}

func TestHTTPGatewayNotConfigured(t *testing.T) {
	var g *HTTPGateway
	_, err := g.Transfer(context.Background(), settlement.Settlement{})
	require.Error(t, err)
}
