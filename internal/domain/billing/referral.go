package billing

import (
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReferralCommission accrues a referrer's cut of a referred account's
// payments. Earned grows as payments land; Paid grows as commissions
// are settled into the referrer's wallet, never past Earned.
type ReferralCommission struct {
	shared.TenantAggregateRoot
	ReferrerID uuid.UUID
	ReferredID uuid.UUID
	Rate       decimal.Decimal
	Earned     decimal.Decimal
	Paid       decimal.Decimal
	Currency   valueobject.Currency
}

// NewReferralCommission opens a commission ledger for a referral link
func NewReferralCommission(
	tenantID, referrerID, referredID uuid.UUID,
	rate decimal.Decimal,
	currency valueobject.Currency,
) (*ReferralCommission, error) {
	if referrerID == uuid.Nil || referredID == uuid.Nil {
		return nil, shared.ErrValidationFailed
	}
	if referrerID == referredID {
		return nil, shared.NewDomainError("SELF_REFERRAL", "Referrer and referred account must differ")
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, shared.NewDomainError("INVALID_RATE", "Commission rate must be between 0 and 1")
	}
	if !currency.IsSupported() {
		return nil, shared.ErrValidationFailed
	}

	return &ReferralCommission{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ReferrerID:          referrerID,
		ReferredID:          referredID,
		Rate:                rate,
		Earned:              decimal.Zero,
		Paid:                decimal.Zero,
		Currency:            currency,
	}, nil
}

// Accrue adds the commission on a referred payment
func (r *ReferralCommission) Accrue(paymentAmount decimal.Decimal) error {
	if !paymentAmount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	r.Earned = r.Earned.Add(paymentAmount.Mul(r.Rate).Round(2))
	r.UpdatedAt = time.Now()
	return nil
}

// Outstanding returns the unsettled commission balance
func (r *ReferralCommission) Outstanding() decimal.Decimal {
	return r.Earned.Sub(r.Paid)
}

// Settle records a payout of outstanding commission
func (r *ReferralCommission) Settle(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Settlement amount must be positive")
	}
	if amount.GreaterThan(r.Outstanding()) {
		return shared.NewDomainError("OVERPAYMENT", "Settlement exceeds outstanding commission")
	}
	r.Paid = r.Paid.Add(amount)
	r.UpdatedAt = time.Now()
	return nil
}
