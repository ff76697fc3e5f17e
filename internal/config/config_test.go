package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":           "postgres://localhost:5432/marketplace",
		"REDIS_URL":              "redis://localhost:6379/0",
		"PAYMENT_WEBHOOK_SECRET": "sup3rsecret",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, "proportional", cfg.ShippingAllocation)
	require.Equal(t, "proportional", cfg.DiscountAllocation)
	require.Equal(t, 5*time.Minute, cfg.AnalyticsCacheTTL)
	require.Equal(t, "payouts", cfg.PayoutQueue)
	require.Equal(t, 10, cfg.WorkerConcurrency)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	env := baseEnv()
	env["DATABASE_URL"] = ""
	_, err := LoadForTests(env)
	require.Error(t, err)
}

func TestLoadRequiresWebhookSecret(t *testing.T) {
	env := baseEnv()
	env["PAYMENT_WEBHOOK_SECRET"] = ""
	_, err := LoadForTests(env)
	require.Error(t, err)
}

func TestLoadRejectsUnknownAllocationMethod(t *testing.T) {
	env := baseEnv()
	env["SHIPPING_ALLOCATION_METHOD"] = "random"
	_, err := LoadForTests(env)
	require.Error(t, err)

	env = baseEnv()
	env["DISCOUNT_ALLOCATION_METHOD"] = "weight"
	_, err = LoadForTests(env)
	require.Error(t, err)
}

func TestLoadAcceptsWeightShipping(t *testing.T) {
	env := baseEnv()
	env["SHIPPING_ALLOCATION_METHOD"] = "weight"
	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, "weight", cfg.ShippingAllocation)
}
