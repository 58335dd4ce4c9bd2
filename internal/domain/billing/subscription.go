package billing

import (
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubscriptionStatus is the lifecycle state of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusSuspended SubscriptionStatus = "SUSPENDED"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
	SubscriptionStatusExpired   SubscriptionStatus = "EXPIRED"
)

// BillingCycle is the renewal interval of a subscription
type BillingCycle string

const (
	BillingCycleMonthly   BillingCycle = "MONTHLY"
	BillingCycleQuarterly BillingCycle = "QUARTERLY"
	BillingCycleYearly    BillingCycle = "YEARLY"
)

// Duration returns the cycle length anchored at a period start
func (c BillingCycle) Next(from time.Time) time.Time {
	switch c {
	case BillingCycleQuarterly:
		return from.AddDate(0, 3, 0)
	case BillingCycleYearly:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// Subscription is a recurring service billed against a wallet
type Subscription struct {
	shared.TenantAggregateRoot
	AccountID        uuid.UUID
	PlanName         string
	Price            decimal.Decimal
	Currency         valueobject.Currency
	Cycle            BillingCycle
	Status           SubscriptionStatus
	CurrentPeriodEnd time.Time
	GraceUntil       *time.Time
	CancelledAt      *time.Time
}

// NewSubscription creates an active subscription with its first period end
func NewSubscription(
	tenantID, accountID uuid.UUID,
	planName string,
	price decimal.Decimal,
	currency valueobject.Currency,
	cycle BillingCycle,
	start time.Time,
) (*Subscription, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if planName == "" {
		return nil, shared.NewDomainError("INVALID_PLAN", "Plan name cannot be empty")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if !currency.IsSupported() {
		return nil, shared.ErrValidationFailed
	}

	return &Subscription{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		AccountID:           accountID,
		PlanName:            planName,
		Price:               price,
		Currency:            currency,
		Cycle:               cycle,
		Status:              SubscriptionStatusActive,
		CurrentPeriodEnd:    cycle.Next(start),
	}, nil
}

// NeedsRenewal reports whether the current period has ended for an
// active subscription
func (s *Subscription) NeedsRenewal(now time.Time) bool {
	return s.Status == SubscriptionStatusActive && !now.Before(s.CurrentPeriodEnd)
}

// Renew advances the current period after a successful renewal charge
func (s *Subscription) Renew() error {
	if s.Status != SubscriptionStatusActive {
		return shared.ErrInvalidState
	}
	s.CurrentPeriodEnd = s.Cycle.Next(s.CurrentPeriodEnd)
	s.GraceUntil = nil
	s.UpdatedAt = time.Now()
	return nil
}

// Suspend pauses service after a failed renewal, with a grace window
// before expiry
func (s *Subscription) Suspend(graceUntil time.Time) error {
	if s.Status != SubscriptionStatusActive {
		return shared.ErrInvalidState
	}
	s.Status = SubscriptionStatusSuspended
	s.GraceUntil = &graceUntil
	s.UpdatedAt = time.Now()
	return nil
}

// Reactivate restores a suspended subscription after payment
func (s *Subscription) Reactivate(periodEnd time.Time) error {
	if s.Status != SubscriptionStatusSuspended {
		return shared.ErrInvalidState
	}
	s.Status = SubscriptionStatusActive
	s.CurrentPeriodEnd = periodEnd
	s.GraceUntil = nil
	s.UpdatedAt = time.Now()
	return nil
}

// Expire terminates a suspended subscription whose grace window lapsed
func (s *Subscription) Expire(now time.Time) error {
	if s.Status != SubscriptionStatusSuspended {
		return shared.ErrInvalidState
	}
	if s.GraceUntil != nil && now.Before(*s.GraceUntil) {
		return shared.NewDomainError("GRACE_ACTIVE", "Subscription is still within its grace window")
	}
	s.Status = SubscriptionStatusExpired
	s.UpdatedAt = time.Now()
	return nil
}

// Cancel stops future renewals. Service continues until the period end.
func (s *Subscription) Cancel(at time.Time) error {
	if s.Status == SubscriptionStatusCancelled || s.Status == SubscriptionStatusExpired {
		return shared.ErrInvalidState
	}
	s.Status = SubscriptionStatusCancelled
	s.CancelledAt = &at
	s.UpdatedAt = time.Now()
	return nil
}
