package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-marketplace/internal/seller"
)

// Status mirrors the order states owned by the surrounding commerce platform.
// Settlement only cares about draft (not yet placed) and the terminal states
// excluded from reporting.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusUnfulfilled Status = "unfulfilled"
	StatusFulfilled   Status = "fulfilled"
	StatusCanceled    Status = "canceled"
	StatusExpired     Status = "expired"
)

// DiscountType classifies a discount attached to an order.
type DiscountType string

const (
	DiscountVoucher   DiscountType = "voucher"
	DiscountPromotion DiscountType = "promotion"
	DiscountLine      DiscountType = "line"
)

// Discount is one discount row attached to an order. Line-level discounts are
// already reflected in each line's total price and are excluded from
// order-level allocation.
type Discount struct {
	Type   DiscountType
	Amount decimal.Decimal
}

// Product carries the subset of product data settlement needs: the owning
// seller, used as a fallback when a line lacks a denormalized reference.
type Product struct {
	ID     uuid.UUID
	Seller *seller.Seller
}

// Line is one order (or checkout) line item. Seller is denormalized onto the
// line at checkout completion; Product provides the ownership fallback for
// lines captured before denormalization.
type Line struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	Seller     *seller.Seller
	Product    *Product
	Quantity   int32
	TotalGross decimal.Decimal
	TotalNet   decimal.Decimal
	WeightKG   decimal.Decimal
}

// ResolveSeller returns the seller owning the line: the denormalized
// reference when set, otherwise the owner of the associated product.
func (l Line) ResolveSeller() *seller.Seller {
	if l.Seller != nil {
		return l.Seller
	}
	if l.Product != nil {
		return l.Product.Seller
	}
	return nil
}

// Order is the read-only view of an order consumed by settlement.
type Order struct {
	ID        uuid.UUID
	Status    Status
	Currency  string
	Discounts []Discount
	Lines     []Line
	CreatedAt time.Time
}

// IsDraft reports whether the order has not been placed yet.
func (o *Order) IsDraft() bool {
	return o == nil || o.Status == StatusDraft
}
