package seller

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status describes the lifecycle state of a seller account.
type Status string

const (
	StatusPending     Status = "pending"
	StatusActive      Status = "active"
	StatusSuspended   Status = "suspended"
	StatusDeactivated Status = "deactivated"
)

// Type describes the business model of a seller.
type Type string

const (
	TypeB2BWholesale Type = "b2b_wholesale"
	TypeB2CRetail    Type = "b2c_retail"
	TypeHybrid       Type = "hybrid"
)

// DefaultPlatformFeePercent is applied to sellers registered without an
// explicit fee agreement.
var DefaultPlatformFeePercent = decimal.NewFromInt(10)

var (
	// ErrInvalidTransition is returned when a status change is not allowed
	// from the seller's current state.
	ErrInvalidTransition = errors.New("seller: invalid status transition")
	// ErrNegativeFee is returned when a platform fee percentage below zero is supplied.
	ErrNegativeFee = errors.New("seller: platform fee percentage must not be negative")
)

// Seller is a vendor account on the marketplace.
type Seller struct {
	ID                 uuid.UUID
	StoreName          string
	Slug               string
	Status             Status
	Type               Type
	PlatformFeePercent decimal.Decimal
	OwnerID            uuid.UUID
	Logistics          *LogisticsConfig
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsActive reports whether the seller may receive settlements.
func (s *Seller) IsActive() bool {
	return s != nil && s.Status == StatusActive
}

// Approve transitions a pending seller to active.
func (s *Seller) Approve() error {
	if s.Status != StatusPending {
		return ErrInvalidTransition
	}
	s.Status = StatusActive
	return nil
}

// Suspend pauses an active seller.
func (s *Seller) Suspend() error {
	if s.Status != StatusActive {
		return ErrInvalidTransition
	}
	s.Status = StatusSuspended
	return nil
}

// Deactivate permanently disables the account. Allowed from any state except
// an already deactivated one.
func (s *Seller) Deactivate() error {
	if s.Status == StatusDeactivated {
		return ErrInvalidTransition
	}
	s.Status = StatusDeactivated
	return nil
}

// ValidateFee checks the platform fee invariant.
func (s *Seller) ValidateFee() error {
	if s.PlatformFeePercent.IsNegative() {
		return ErrNegativeFee
	}
	return nil
}
