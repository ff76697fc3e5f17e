package shipping

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-marketplace/internal/money"
	"github.com/noah-isme/backend-marketplace/internal/seller"
)

// Method is a platform-level shipping method with a flat price.
type Method struct {
	ID    uuid.UUID
	Code  string
	Name  string
	Price decimal.Decimal
}

// WeightTier prices a shipment once the total weight reaches MinWeight.
type WeightTier struct {
	MinWeight decimal.Decimal `json:"min_weight"`
	Price     decimal.Decimal `json:"price"`
}

// PriceTier prices a shipment once the order total reaches MinPrice.
type PriceTier struct {
	MinPrice decimal.Decimal `json:"min_price"`
	Price    decimal.Decimal `json:"price"`
}

// TieredPricing holds optional tier tables for a seller method. Tiers are
// evaluated in declaration order and the first matching tier wins, so
// callers should order tiers from the highest threshold down.
type TieredPricing struct {
	WeightTiers []WeightTier `json:"weight_tiers,omitempty"`
	PriceTiers  []PriceTier  `json:"price_tiers,omitempty"`
}

// SellerMethod is a seller-negotiated shipping method that overrides the
// platform price when active.
type SellerMethod struct {
	ID       uuid.UUID
	SellerID uuid.UUID
	Name     string
	Price    decimal.Decimal
	Tiers    *TieredPricing
	Active   bool
}

// ApplicableMethods filters platform methods for a seller. A seller with no
// logistics configuration ships through no platform methods. When the order
// total meets the seller's free shipping threshold only zero-price methods
// remain.
func ApplicableMethods(s *seller.Seller, methods []Method, orderTotal *decimal.Decimal) []Method {
	if s == nil || s.Logistics == nil {
		return nil
	}
	threshold := s.Logistics.FreeShippingThreshold
	if threshold == nil || orderTotal == nil || orderTotal.LessThan(*threshold) {
		out := make([]Method, len(methods))
		copy(out, methods)
		return out
	}
	var out []Method
	for _, m := range methods {
		if m.Price.IsZero() {
			out = append(out, m)
		}
	}
	return out
}

// CostForSeller computes the shipping cost a seller charges for one
// shipment. The free shipping threshold wins over everything else; an
// active seller method overrides the platform method price, with weight
// tiers taking precedence over price tiers when a weight is known.
func CostForSeller(s *seller.Seller, method Method, sellerMethods []SellerMethod, weight, orderTotal *decimal.Decimal) decimal.Decimal {
	if s == nil || s.Logistics == nil {
		return money.Quantize(method.Price)
	}
	if threshold := s.Logistics.FreeShippingThreshold; threshold != nil && orderTotal != nil && orderTotal.GreaterThanOrEqual(*threshold) {
		return decimal.Zero.Round(2)
	}

	for _, sm := range sellerMethods {
		if !sm.Active || sm.SellerID != s.ID {
			continue
		}
		return money.Quantize(tieredPrice(sm, weight, orderTotal))
	}
	return money.Quantize(method.Price)
}

func tieredPrice(sm SellerMethod, weight, orderTotal *decimal.Decimal) decimal.Decimal {
	if sm.Tiers == nil {
		return sm.Price
	}
	if weight != nil {
		for _, tier := range sm.Tiers.WeightTiers {
			if weight.GreaterThanOrEqual(tier.MinWeight) {
				return tier.Price
			}
		}
	} else if orderTotal != nil {
		for _, tier := range sm.Tiers.PriceTiers {
			if orderTotal.GreaterThanOrEqual(tier.MinPrice) {
				return tier.Price
			}
		}
	}
	return sm.Price
}
