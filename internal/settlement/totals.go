package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-marketplace/internal/money"
	"github.com/noah-isme/backend-marketplace/internal/order"
	"github.com/noah-isme/backend-marketplace/internal/seller"
)

// Totals aggregates the financial components of one seller's share of an
// order. All fields are quantized to two decimals.
type Totals struct {
	OrderTotal     decimal.Decimal
	PlatformFee    decimal.Decimal
	SellerEarnings decimal.Decimal
}

func zeroTotals() Totals {
	return Totals{OrderTotal: decimal.Zero, PlatformFee: decimal.Zero, SellerEarnings: decimal.Zero}
}

// SellerSubtotal sums the gross total price over the provided lines.
func SellerSubtotal(lines []order.Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.TotalGross)
	}
	return total
}

// PlatformFee computes the marketplace cut of an order total. Non-positive
// inputs yield a zero fee.
func PlatformFee(orderTotal, feePercent decimal.Decimal) decimal.Decimal {
	if !orderTotal.IsPositive() || !feePercent.IsPositive() {
		return decimal.Zero
	}
	return money.Quantize(money.Percent(orderTotal, feePercent))
}

// SellerEarnings computes what the seller receives after the platform fee,
// floored at zero.
func SellerEarnings(orderTotal, platformFee decimal.Decimal) decimal.Decimal {
	return money.Quantize(money.FloorZero(orderTotal.Sub(platformFee)))
}

// SellerOrderTotals computes gross total, platform fee, and earnings for the
// given seller's lines within an order. allocatedDiscount is this seller's
// share of any order-level discount; it reduces the gross total before the
// fee is applied and the result never drops below zero. A seller with no
// matching lines gets all-zero totals.
func SellerOrderTotals(orderLines []order.Line, s *seller.Seller, allocatedDiscount decimal.Decimal) Totals {
	if s == nil {
		return zeroTotals()
	}
	var sellerLines []order.Line
	for _, line := range orderLines {
		if line.Seller != nil && line.Seller.ID == s.ID {
			sellerLines = append(sellerLines, line)
		}
	}
	if len(sellerLines) == 0 {
		return zeroTotals()
	}

	orderTotal := SellerSubtotal(sellerLines)
	if !allocatedDiscount.IsZero() {
		orderTotal = money.FloorZero(orderTotal.Sub(allocatedDiscount))
	}
	orderTotal = money.Quantize(orderTotal)

	fee := PlatformFee(orderTotal, s.PlatformFeePercent)
	return Totals{
		OrderTotal:     orderTotal,
		PlatformFee:    fee,
		SellerEarnings: SellerEarnings(orderTotal, fee),
	}
}
