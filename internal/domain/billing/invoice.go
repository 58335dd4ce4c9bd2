package billing

import (
	"fmt"
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusPending   InvoiceStatus = "PENDING"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
	InvoiceStatusRefunded  InvoiceStatus = "REFUNDED"
)

// LineItem is a single billed position on an invoice
type LineItem struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// Invoice bills an account for a subscription period. The renewal job
// creates at most one invoice per (subscription, period).
type Invoice struct {
	shared.TenantAggregateRoot
	AccountID      uuid.UUID
	SubscriptionID *uuid.UUID
	Number         string
	Status         InvoiceStatus
	LineItems      []LineItem
	Total          decimal.Decimal
	Currency       valueobject.Currency
	PeriodStart    time.Time
	PeriodEnd      time.Time
	DueDate        time.Time
	PaidAt         *time.Time
}

// NewInvoice creates a pending invoice for a billing period
func NewInvoice(
	tenantID, accountID uuid.UUID,
	number string,
	items []LineItem,
	currency valueobject.Currency,
	periodStart, periodEnd, dueDate time.Time,
) (*Invoice, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Invoice number cannot be empty")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("INVALID_ITEMS", "Invoice must have at least one line item")
	}
	if !currency.IsSupported() {
		return nil, shared.ErrValidationFailed
	}
	if !periodEnd.After(periodStart) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period end must be after period start")
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Total)
	}

	return &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		AccountID:           accountID,
		Number:              number,
		Status:              InvoiceStatusPending,
		LineItems:           items,
		Total:               total,
		Currency:            currency,
		PeriodStart:         periodStart,
		PeriodEnd:           periodEnd,
		DueDate:             dueDate,
	}, nil
}

// InvoiceNumber builds the canonical invoice number for a period and sequence
func InvoiceNumber(period time.Time, sequence int64) string {
	return fmt.Sprintf("INV-%s-%04d", period.Format("200601"), sequence)
}

// WithSubscription links the invoice to the subscription it renews
func (i *Invoice) WithSubscription(subscriptionID uuid.UUID) *Invoice {
	i.SubscriptionID = &subscriptionID
	return i
}

// MarkPaid transitions the invoice to paid when a matching transaction
// completes. Marking an already-paid invoice is an idempotent no-op.
func (i *Invoice) MarkPaid(at time.Time) error {
	if i.Status == InvoiceStatusPaid {
		return nil
	}
	if i.Status != InvoiceStatusPending && i.Status != InvoiceStatusOverdue && i.Status != InvoiceStatusDraft {
		return shared.ErrInvalidState
	}
	i.Status = InvoiceStatusPaid
	i.PaidAt = &at
	i.UpdatedAt = time.Now()
	return nil
}

// MarkOverdue transitions an unpaid invoice past its due date
func (i *Invoice) MarkOverdue(now time.Time) error {
	if i.Status != InvoiceStatusPending && i.Status != InvoiceStatusDraft {
		return shared.ErrInvalidState
	}
	if !now.After(i.DueDate) {
		return shared.NewDomainError("NOT_DUE", "Invoice is not past its due date")
	}
	i.Status = InvoiceStatusOverdue
	i.UpdatedAt = time.Now()
	return nil
}

// Cancel voids an unpaid invoice
func (i *Invoice) Cancel() error {
	if i.Status == InvoiceStatusPaid || i.Status == InvoiceStatusRefunded {
		return shared.ErrInvalidState
	}
	i.Status = InvoiceStatusCancelled
	i.UpdatedAt = time.Now()
	return nil
}

// MarkRefunded transitions a paid invoice to refunded
func (i *Invoice) MarkRefunded() error {
	if i.Status != InvoiceStatusPaid {
		return shared.ErrInvalidState
	}
	i.Status = InvoiceStatusRefunded
	i.UpdatedAt = time.Now()
	return nil
}

// IsOpen returns true while the invoice still awaits payment
func (i *Invoice) IsOpen() bool {
	return i.Status == InvoiceStatusPending || i.Status == InvoiceStatusOverdue || i.Status == InvoiceStatusDraft
}
