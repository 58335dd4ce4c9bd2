package wallet

import (
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Segment is a named partition of a wallet balance with independent accounting
type Segment string

const (
	// SegmentPrimary holds real deposited funds
	SegmentPrimary Segment = "PRIMARY"
	// SegmentBonus holds bonus credit granted by the platform
	SegmentBonus Segment = "BONUS"
	// SegmentPromotional holds promotional credit, typically expiring
	SegmentPromotional Segment = "PROMOTIONAL"
)

// String returns the string representation of Segment
func (s Segment) String() string {
	return string(s)
}

// IsValid returns true if the segment is one of the known partitions
func (s Segment) IsValid() bool {
	switch s {
	case SegmentPrimary, SegmentBonus, SegmentPromotional:
		return true
	}
	return false
}

// SpendOrder is the order in which segments are consumed when charging a
// wallet: promotional credit first, then bonus, then real funds.
var SpendOrder = []Segment{SegmentPromotional, SegmentBonus, SegmentPrimary}

// Wallet is the per-user, per-currency monetary container. It is created
// lazily on the first monetary event for a (user, currency) pair, mutated
// only through the ledger, and never deleted.
//
// Invariant: Total always equals Primary + Bonus + Promotional.
type Wallet struct {
	shared.TenantAggregateRoot
	UserID      uuid.UUID
	Currency    valueobject.Currency
	Primary     decimal.Decimal
	Bonus       decimal.Decimal
	Promotional decimal.Decimal
	Total       decimal.Decimal
}

// NewWallet creates an empty wallet for a (user, currency) pair
func NewWallet(tenantID, userID uuid.UUID, currency valueobject.Currency) (*Wallet, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if !currency.IsSupported() {
		return nil, shared.ErrValidationFailed
	}
	return &Wallet{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		UserID:              userID,
		Currency:            currency,
		Primary:             decimal.Zero,
		Bonus:               decimal.Zero,
		Promotional:         decimal.Zero,
		Total:               decimal.Zero,
	}, nil
}

// SegmentBalance returns the balance of a single segment
func (w *Wallet) SegmentBalance(segment Segment) decimal.Decimal {
	switch segment {
	case SegmentPrimary:
		return w.Primary
	case SegmentBonus:
		return w.Bonus
	case SegmentPromotional:
		return w.Promotional
	}
	return decimal.Zero
}

// Credit adds a positive amount to the given segment
func (w *Wallet) Credit(segment Segment, amount decimal.Decimal) error {
	if !segment.IsValid() {
		return shared.NewDomainError("INVALID_SEGMENT", "Unknown wallet segment")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Credit amount must be positive")
	}
	w.setSegment(segment, w.SegmentBalance(segment).Add(amount))
	return nil
}

// Debit removes a positive amount from the given segment. A debit that would
// drive the segment negative fails with ErrInsufficientFunds unless
// reconciling is set; reconciling is reserved for refund/adjustment entries
// and must never be extended to ordinary charges.
func (w *Wallet) Debit(segment Segment, amount decimal.Decimal, reconciling bool) error {
	if !segment.IsValid() {
		return shared.NewDomainError("INVALID_SEGMENT", "Unknown wallet segment")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Debit amount must be positive")
	}
	remaining := w.SegmentBalance(segment).Sub(amount)
	if remaining.IsNegative() && !reconciling {
		return shared.ErrInsufficientFunds
	}
	w.setSegment(segment, remaining)
	return nil
}

// SegmentAmount pairs a segment with a portion of a charge
type SegmentAmount struct {
	Segment Segment
	Amount  decimal.Decimal
}

// PlanCharge splits a charge across segments in SpendOrder. Returns
// ErrInsufficientFunds when the wallet total cannot cover the amount.
func (w *Wallet) PlanCharge(amount decimal.Decimal) ([]SegmentAmount, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Charge amount must be positive")
	}
	if w.Total.LessThan(amount) {
		return nil, shared.ErrInsufficientFunds
	}

	plan := make([]SegmentAmount, 0, len(SpendOrder))
	remaining := amount
	for _, segment := range SpendOrder {
		if remaining.IsZero() {
			break
		}
		available := w.SegmentBalance(segment)
		if !available.IsPositive() {
			continue
		}
		take := decimal.Min(available, remaining)
		plan = append(plan, SegmentAmount{Segment: segment, Amount: take})
		remaining = remaining.Sub(take)
	}
	return plan, nil
}

// CheckInvariant verifies that the denormalized total matches the segment sum
func (w *Wallet) CheckInvariant() error {
	sum := w.Primary.Add(w.Bonus).Add(w.Promotional)
	if !w.Total.Equal(sum) {
		return shared.NewDomainError("INVARIANT_VIOLATION", "Wallet total does not equal sum of segments")
	}
	return nil
}

func (w *Wallet) setSegment(segment Segment, value decimal.Decimal) {
	switch segment {
	case SegmentPrimary:
		w.Primary = value
	case SegmentBonus:
		w.Bonus = value
	case SegmentPromotional:
		w.Promotional = value
	}
	w.Total = w.Primary.Add(w.Bonus).Add(w.Promotional)
}
