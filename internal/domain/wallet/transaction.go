package wallet

import (
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the type of ledger entry
type TransactionType string

const (
	// TransactionTypeDeposit credits the primary segment from an external payment
	TransactionTypeDeposit TransactionType = "DEPOSIT"
	// TransactionTypeCharge debits a segment to pay for a service
	TransactionTypeCharge TransactionType = "CHARGE"
	// TransactionTypeRefund credits back the segment of a prior transaction
	TransactionTypeRefund TransactionType = "REFUND"
	// TransactionTypeAdjustment is a manual correction, either direction
	TransactionTypeAdjustment TransactionType = "ADJUSTMENT"
	// TransactionTypeBonus credits the bonus segment
	TransactionTypeBonus TransactionType = "BONUS"
	// TransactionTypeVoucherRedeem credits a segment from a voucher code
	TransactionTypeVoucherRedeem TransactionType = "VOUCHER_REDEEM"
)

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsValid returns true if the transaction type is known
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeDeposit,
		TransactionTypeCharge,
		TransactionTypeRefund,
		TransactionTypeAdjustment,
		TransactionTypeBonus,
		TransactionTypeVoucherRedeem:
		return true
	}
	return false
}

// IsCredit returns true if this type always increases a segment
// balance. Refunds and adjustments reverse a prior entry, so their
// direction comes from context rather than the type.
func (t TransactionType) IsCredit() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeBonus, TransactionTypeVoucherRedeem:
		return true
	}
	return false
}

// IsReconciling returns true for types that may drive a segment below zero.
// This exception exists so refunds and manual corrections can reconcile
// against already-spent balances; it is never extended to charges.
func (t TransactionType) IsReconciling() bool {
	return t == TransactionTypeRefund || t == TransactionTypeAdjustment
}

// TransactionStatus is the lifecycle state of a ledger entry
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Transaction is an immutable ledger entry recording a single balance change.
// Once completed it is never modified; corrections are new transactions.
// The only permitted mutation after creation is PENDING -> COMPLETED|FAILED.
type Transaction struct {
	shared.BaseEntity
	TenantID      uuid.UUID
	WalletID      uuid.UUID
	Type          TransactionType
	Status        TransactionStatus
	Amount        decimal.Decimal // always positive; direction derived from Type
	Currency      valueobject.Currency
	Segment       Segment
	BalanceBefore decimal.Decimal // wallet total before the change
	BalanceAfter  decimal.Decimal // wallet total after the change
	ExternalRef   string          // idempotency key from the originating event
	ProviderRef   string          // provider payment reference, for refund lookup
	Description   string
	Metadata      map[string]string
	CompletedAt   *time.Time
}

// NewTransaction creates a pending ledger entry
func NewTransaction(
	tenantID, walletID uuid.UUID,
	txType TransactionType,
	amount decimal.Decimal,
	currency valueobject.Currency,
	segment Segment,
	externalRef string,
) (*Transaction, error) {
	if walletID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WALLET", "Wallet ID cannot be empty")
	}
	if !txType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_TYPE", "Invalid transaction type")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}
	if !currency.IsSupported() {
		return nil, shared.ErrValidationFailed
	}
	if !segment.IsValid() {
		return nil, shared.NewDomainError("INVALID_SEGMENT", "Unknown wallet segment")
	}
	if externalRef == "" {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "External reference cannot be empty")
	}

	return &Transaction{
		BaseEntity:  shared.NewBaseEntity(),
		TenantID:    tenantID,
		WalletID:    walletID,
		Type:        txType,
		Status:      TransactionStatusPending,
		Amount:      amount,
		Currency:    currency,
		Segment:     segment,
		ExternalRef: externalRef,
		Metadata:    make(map[string]string),
	}, nil
}

// WithDescription sets the human-readable description
func (t *Transaction) WithDescription(description string) *Transaction {
	t.Description = description
	return t
}

// WithProviderRef sets the provider payment reference
func (t *Transaction) WithProviderRef(ref string) *Transaction {
	t.ProviderRef = ref
	return t
}

// WithMetadata attaches a metadata entry
func (t *Transaction) WithMetadata(key, value string) *Transaction {
	if t.Metadata == nil {
		t.Metadata = make(map[string]string)
	}
	t.Metadata[key] = value
	return t
}

// RecordBalances snapshots the wallet total around the mutation
func (t *Transaction) RecordBalances(before, after decimal.Decimal) {
	t.BalanceBefore = before
	t.BalanceAfter = after
}

// Complete transitions the entry from pending to completed
func (t *Transaction) Complete() error {
	if t.Status != TransactionStatusPending {
		return shared.ErrInvalidState
	}
	now := time.Now()
	t.Status = TransactionStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
	return nil
}

// Fail transitions the entry from pending to failed
func (t *Transaction) Fail() error {
	if t.Status != TransactionStatusPending {
		return shared.ErrInvalidState
	}
	t.Status = TransactionStatusFailed
	t.UpdatedAt = time.Now()
	return nil
}

// IsCompleted returns true if the entry reached the completed state
func (t *Transaction) IsCompleted() bool {
	return t.Status == TransactionStatusCompleted
}

// SignedAmount returns the amount with direction applied
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type.IsCredit() {
		return t.Amount
	}
	if t.Type.IsReconciling() {
		return t.BalanceAfter.Sub(t.BalanceBefore)
	}
	return t.Amount.Neg()
}
