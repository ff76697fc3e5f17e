package seller

import (
	"encoding/json"
	"fmt"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// factorStandard is the shipping adjustment applied when no negotiated rate
// exists: the full allocation.
var factorStandard = decimal.NewFromInt(1)

var validate = validator.New()

// LogisticsConfig is the typed form of a seller's logistics configuration.
// The stored representation is a JSON blob maintained by seller tooling, so
// all fields are optional and validated when the blob is decoded.
type LogisticsConfig struct {
	FreeShippingThreshold  *decimal.Decimal      `json:"free_shipping_threshold,omitempty"`
	CustomShippingMethods  CustomShippingMethods `json:"custom_shipping_methods"`
	PrimaryFulfillmentCode string                `json:"primary_fulfillment_code,omitempty"`
}

// CustomShippingMethods carries negotiated shipping parameters keyed by the
// operations team. Only the fields the platform understands are decoded.
type CustomShippingMethods struct {
	B2BDiscountFactor *decimal.Decimal `json:"b2b_discount_factor,omitempty" validate:"omitempty"`
}

// ParseLogisticsConfig decodes and validates a logistics configuration blob.
// Decode or validation failures are returned to the caller; policy for
// falling back lives in ShippingAdjustmentFactor.
func ParseLogisticsConfig(raw []byte) (*LogisticsConfig, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var cfg LogisticsConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("seller: decode logistics config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("seller: validate logistics config: %w", err)
	}
	if f := cfg.CustomShippingMethods.B2BDiscountFactor; f != nil && f.IsNegative() {
		return nil, fmt.Errorf("seller: b2b_discount_factor must not be negative, got %s", f)
	}
	return &cfg, nil
}

// B2BDiscountFactor returns the configured negotiated-rate multiplier, or an
// error when none is configured. Callers that want the silent fallback use
// ShippingAdjustmentFactor instead.
func (c *LogisticsConfig) B2BDiscountFactor() (decimal.Decimal, error) {
	if c == nil || c.CustomShippingMethods.B2BDiscountFactor == nil {
		return factorStandard, fmt.Errorf("seller: b2b_discount_factor not configured")
	}
	return *c.CustomShippingMethods.B2BDiscountFactor, nil
}

// ShippingAdjustmentFactor resolves the multiplier applied to a seller's base
// shipping allocation. B2B wholesale sellers use their negotiated
// b2b_discount_factor when one is configured; every other case, including a
// missing or unreadable logistics config, resolves to 1.0. The fallback is
// deliberate: a broken config must not block settlement creation.
func ShippingAdjustmentFactor(s *Seller) decimal.Decimal {
	if s == nil || s.Type != TypeB2BWholesale {
		return factorStandard
	}
	factor, err := s.Logistics.B2BDiscountFactor()
	if err != nil {
		return factorStandard
	}
	return factor
}
