package allocation

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-marketplace/internal/seller"
)

// Method selects how a shared cost is distributed across sellers.
type Method string

const (
	MethodEqual        Method = "equal"
	MethodProportional Method = "proportional"
	MethodWeight       Method = "weight"
)

// ErrUnknownMethod is returned when an allocation method is not recognized.
var ErrUnknownMethod = errors.New("allocation: unknown method")

// Result maps seller ID (uuid.Nil for the sellerless group) to the amount
// allocated to that seller. Amounts are not quantized; persistence rounds.
type Result map[uuid.UUID]decimal.Decimal

// Total sums all allocated amounts.
func (r Result) Total() decimal.Decimal {
	total := decimal.Zero
	for _, amount := range r {
		total = total.Add(amount)
	}
	return total
}

// ShippingCost distributes a shipping cost across seller groups.
//
// B2B wholesale sellers get their negotiated b2b_discount_factor applied on
// top of the base allocation. Under "equal" this means the allocated sum can
// come out below the requested total; that mirrors how negotiated rates were
// agreed and is covered by tests rather than corrected here.
func ShippingCost(groups Grouping, totalCost decimal.Decimal, method Method) (Result, error) {
	if len(groups) == 0 {
		return Result{}, nil
	}

	factors := make(map[uuid.UUID]decimal.Decimal, len(groups))
	for id, g := range groups {
		factors[id] = seller.ShippingAdjustmentFactor(g.Seller)
	}

	result := make(Result, len(groups))
	switch method {
	case MethodEqual:
		perSeller := totalCost.Div(decimal.NewFromInt(int64(len(groups))))
		for id := range groups {
			result[id] = perSeller.Mul(factors[id])
		}
	case MethodProportional:
		subtotals := make(map[uuid.UUID]decimal.Decimal, len(groups))
		grandTotal := decimal.Zero
		for id, g := range groups {
			sub := g.Subtotal()
			subtotals[id] = sub
			grandTotal = grandTotal.Add(sub)
		}
		if grandTotal.IsPositive() {
			for id, sub := range subtotals {
				proportion := sub.Div(grandTotal)
				result[id] = totalCost.Mul(proportion).Mul(factors[id])
			}
		} else {
			perSeller := totalCost.Div(decimal.NewFromInt(int64(len(groups))))
			for id := range groups {
				result[id] = perSeller.Mul(factors[id])
			}
		}
	case MethodWeight:
		weights := make(map[uuid.UUID]decimal.Decimal, len(groups))
		totalWeight := decimal.Zero
		for id, g := range groups {
			w := g.Weight()
			weights[id] = w
			totalWeight = totalWeight.Add(w)
		}
		if totalWeight.IsPositive() {
			for id, w := range weights {
				proportion := w.Div(totalWeight)
				result[id] = totalCost.Mul(proportion).Mul(factors[id])
			}
		} else {
			// No recorded weights: plain equal split, no adjustment.
			perSeller := totalCost.Div(decimal.NewFromInt(int64(len(groups))))
			for id := range groups {
				result[id] = perSeller
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	return result, nil
}

// Discount distributes an order-level discount across seller groups. Only
// "equal" and "proportional" are supported and the seller-type shipping
// adjustment never applies to discounts.
func Discount(groups Grouping, totalDiscount decimal.Decimal, method Method) (Result, error) {
	if len(groups) == 0 {
		return Result{}, nil
	}

	result := make(Result, len(groups))
	switch method {
	case MethodEqual:
		perSeller := totalDiscount.Div(decimal.NewFromInt(int64(len(groups))))
		for id := range groups {
			result[id] = perSeller
		}
	case MethodProportional:
		subtotals := make(map[uuid.UUID]decimal.Decimal, len(groups))
		grandTotal := decimal.Zero
		for id, g := range groups {
			sub := g.Subtotal()
			subtotals[id] = sub
			grandTotal = grandTotal.Add(sub)
		}
		if grandTotal.IsPositive() {
			for id, sub := range subtotals {
				proportion := sub.Div(grandTotal)
				result[id] = totalDiscount.Mul(proportion)
			}
		} else {
			perSeller := totalDiscount.Div(decimal.NewFromInt(int64(len(groups))))
			for id := range groups {
				result[id] = perSeller
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	return result, nil
}
