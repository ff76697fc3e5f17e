package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status describes the payout lifecycle of a settlement. Transitions are
// monotonic: pending -> processing -> paid, with failed and cancelled as
// terminal side exits.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPaid       Status = "paid"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// CanTransitionTo reports whether advancing to next is allowed from s.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusCancelled
	case StatusProcessing:
		return next == StatusPaid || next == StatusFailed || next == StatusCancelled
	default:
		return false
	}
}

// Settlement is one payout record for one seller against one order. OrderID
// is nil for batch settlements that cover more than a single order. The
// financial fields are fixed at creation and never recomputed.
type Settlement struct {
	ID             uuid.UUID
	SellerID       uuid.UUID
	OrderID        *uuid.UUID
	OrderTotal     decimal.Decimal
	PlatformFee    decimal.Decimal
	SellerEarnings decimal.Decimal
	Currency       string
	Status         Status
	PayoutRef      string
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PaidAt         *time.Time
}

// IsPaid reports whether the payout completed.
func (s *Settlement) IsPaid() bool {
	return s != nil && s.Status == StatusPaid
}
