package billing

import (
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TopUpMandate authorizes the scheduler to charge a stored payment
// method when the wallet's primary segment falls below a threshold.
type TopUpMandate struct {
	shared.TenantAggregateRoot
	AccountID       uuid.UUID
	WalletID        uuid.UUID
	Threshold       decimal.Decimal
	TopUpAmount     decimal.Decimal
	Currency        valueobject.Currency
	Enabled         bool
	Cooldown        time.Duration
	LastTriggeredAt *time.Time
}

// NewTopUpMandate creates an enabled mandate
func NewTopUpMandate(
	tenantID, accountID, walletID uuid.UUID,
	threshold, topUpAmount decimal.Decimal,
	currency valueobject.Currency,
	cooldown time.Duration,
) (*TopUpMandate, error) {
	if accountID == uuid.Nil || walletID == uuid.Nil {
		return nil, shared.ErrValidationFailed
	}
	if threshold.IsNegative() {
		return nil, shared.NewDomainError("INVALID_THRESHOLD", "Threshold cannot be negative")
	}
	if !topUpAmount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Top-up amount must be positive")
	}
	if !currency.IsSupported() {
		return nil, shared.ErrValidationFailed
	}
	if cooldown <= 0 {
		cooldown = 24 * time.Hour
	}

	return &TopUpMandate{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		AccountID:           accountID,
		WalletID:            walletID,
		Threshold:           threshold,
		TopUpAmount:         topUpAmount,
		Currency:            currency,
		Enabled:             true,
		Cooldown:            cooldown,
	}, nil
}

// ShouldTrigger reports whether a top-up is due for the given primary
// balance. The cooldown window prevents repeated charges when the
// balance stays low between scheduler runs.
func (m *TopUpMandate) ShouldTrigger(primaryBalance decimal.Decimal, now time.Time) bool {
	if !m.Enabled {
		return false
	}
	if primaryBalance.GreaterThanOrEqual(m.Threshold) {
		return false
	}
	if m.LastTriggeredAt != nil && now.Sub(*m.LastTriggeredAt) < m.Cooldown {
		return false
	}
	return true
}

// MarkTriggered records a top-up attempt, starting the cooldown
func (m *TopUpMandate) MarkTriggered(at time.Time) {
	m.LastTriggeredAt = &at
	m.UpdatedAt = time.Now()
}

// Disable turns the mandate off without deleting it
func (m *TopUpMandate) Disable() {
	m.Enabled = false
	m.UpdatedAt = time.Now()
}

// Enable turns the mandate back on
func (m *TopUpMandate) Enable() {
	m.Enabled = true
	m.UpdatedAt = time.Now()
}

// TopUpRef builds the ledger reference that dedups an auto top-up
// attempt for a wallet within a cooldown bucket
func TopUpRef(walletID uuid.UUID, bucket time.Time) string {
	return "topup:" + walletID.String() + ":" + bucket.UTC().Format("2006-01-02T15")
}
