package shipping

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-marketplace/internal/seller"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func sellerWithThreshold(threshold string) *seller.Seller {
	s := &seller.Seller{ID: uuid.New(), Type: seller.TypeB2CRetail, Logistics: &seller.LogisticsConfig{}}
	if threshold != "" {
		s.Logistics.FreeShippingThreshold = decPtr(threshold)
	}
	return s
}

func TestApplicableMethodsNoLogisticsConfig(t *testing.T) {
	s := &seller.Seller{ID: uuid.New()}
	methods := []Method{{Code: "std", Price: dec("5.00")}}
	require.Empty(t, ApplicableMethods(s, methods, decPtr("100.00")))
}

func TestApplicableMethodsBelowThreshold(t *testing.T) {
	s := sellerWithThreshold("100.00")
	methods := []Method{
		{Code: "std", Price: dec("5.00")},
		{Code: "free", Price: decimal.Zero},
	}
	got := ApplicableMethods(s, methods, decPtr("50.00"))
	require.Len(t, got, 2)
}

func TestApplicableMethodsAtThresholdKeepsOnlyFree(t *testing.T) {
	s := sellerWithThreshold("100.00")
	methods := []Method{
		{Code: "std", Price: dec("5.00")},
		{Code: "free", Price: decimal.Zero},
	}
	got := ApplicableMethods(s, methods, decPtr("100.00"))
	require.Len(t, got, 1)
	require.Equal(t, "free", got[0].Code)
}

func TestCostForSellerFreeShippingThreshold(t *testing.T) {
	s := sellerWithThreshold("100.00")
	method := Method{Code: "std", Price: dec("7.50")}

	cost := CostForSeller(s, method, nil, nil, decPtr("150.00"))
	require.True(t, cost.IsZero())

	cost = CostForSeller(s, method, nil, nil, decPtr("99.99"))
	require.True(t, cost.Equal(dec("7.50")))
}

func TestCostForSellerUsesSellerMethodPrice(t *testing.T) {
	s := sellerWithThreshold("")
	method := Method{Code: "std", Price: dec("10.00")}
	sm := SellerMethod{SellerID: s.ID, Price: dec("6.00"), Active: true}

	cost := CostForSeller(s, method, []SellerMethod{sm}, nil, nil)
	require.True(t, cost.Equal(dec("6.00")))
}

func TestCostForSellerIgnoresInactiveAndForeignMethods(t *testing.T) {
	s := sellerWithThreshold("")
	method := Method{Code: "std", Price: dec("10.00")}
	inactive := SellerMethod{SellerID: s.ID, Price: dec("1.00"), Active: false}
	foreign := SellerMethod{SellerID: uuid.New(), Price: dec("2.00"), Active: true}

	cost := CostForSeller(s, method, []SellerMethod{inactive, foreign}, nil, nil)
	require.True(t, cost.Equal(dec("10.00")))
}

func TestCostForSellerWeightTiers(t *testing.T) {
	s := sellerWithThreshold("")
	method := Method{Code: "std", Price: dec("10.00")}
	sm := SellerMethod{
		SellerID: s.ID,
		Price:    dec("6.00"),
		Active:   true,
		Tiers: &TieredPricing{
			WeightTiers: []WeightTier{
				{MinWeight: dec("10"), Price: dec("15.00")},
				{MinWeight: dec("5"), Price: dec("9.00")},
			},
		},
	}

	cost := CostForSeller(s, method, []SellerMethod{sm}, decPtr("12"), nil)
	require.True(t, cost.Equal(dec("15.00")))

	cost = CostForSeller(s, method, []SellerMethod{sm}, decPtr("6"), nil)
	require.True(t, cost.Equal(dec("9.00")))

	// Below every tier falls back to the seller method base price.
	cost = CostForSeller(s, method, []SellerMethod{sm}, decPtr("1"), nil)
	require.True(t, cost.Equal(dec("6.00")))
}

func TestCostForSellerPriceTiersWhenWeightUnknown(t *testing.T) {
	s := sellerWithThreshold("")
	method := Method{Code: "std", Price: dec("10.00")}
	sm := SellerMethod{
		SellerID: s.ID,
		Price:    dec("6.00"),
		Active:   true,
		Tiers: &TieredPricing{
			PriceTiers: []PriceTier{
				{MinPrice: dec("200"), Price: dec("0.00")},
				{MinPrice: dec("50"), Price: dec("4.00")},
			},
		},
	}

	cost := CostForSeller(s, method, []SellerMethod{sm}, nil, decPtr("250.00"))
	require.True(t, cost.IsZero())

	cost = CostForSeller(s, method, []SellerMethod{sm}, nil, decPtr("60.00"))
	require.True(t, cost.Equal(dec("4.00")))
}

func TestCostForSellerNoLogisticsUsesMethodPrice(t *testing.T) {
	s := &seller.Seller{ID: uuid.New()}
	method := Method{Code: "std", Price: dec("3.456")}
	cost := CostForSeller(s, method, nil, nil, nil)
	require.True(t, cost.Equal(dec("3.46")))
}
