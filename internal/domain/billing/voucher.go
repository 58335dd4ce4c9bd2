package billing

import (
	"strings"
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/commerce/backend/internal/domain/wallet"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VoucherType decides which wallet segment a redemption credits
type VoucherType string

const (
	VoucherTypeBonus VoucherType = "BONUS"
	VoucherTypePromo VoucherType = "PROMO"
)

// Segment maps the voucher type to its wallet segment
func (t VoucherType) Segment() wallet.Segment {
	if t == VoucherTypePromo {
		return wallet.SegmentPromotional
	}
	return wallet.SegmentBonus
}

// VoucherStatus is the lifecycle state of a voucher code
type VoucherStatus string

const (
	VoucherStatusActive    VoucherStatus = "ACTIVE"
	VoucherStatusDepleted  VoucherStatus = "DEPLETED"
	VoucherStatusExpired   VoucherStatus = "EXPIRED"
	VoucherStatusCancelled VoucherStatus = "CANCELLED"
)

// Voucher is a redeemable code crediting wallet funds. Each user may
// redeem a given code at most once; the code as a whole carries a
// limited number of uses.
type Voucher struct {
	shared.TenantAggregateRoot
	Code          string
	Type          VoucherType
	Amount        decimal.Decimal
	Currency      valueobject.Currency
	Status        VoucherStatus
	MaxUses       int
	UsedCount     int
	RemainingUses int
	ExpiresAt     *time.Time
	CancelledAt   *time.Time
}

// NewVoucher creates an active voucher code
func NewVoucher(
	tenantID uuid.UUID,
	code string,
	voucherType VoucherType,
	amount decimal.Decimal,
	currency valueobject.Currency,
	maxUses int,
	expiresAt *time.Time,
) (*Voucher, error) {
	code = NormalizeVoucherCode(code)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Voucher code cannot be empty")
	}
	if voucherType != VoucherTypeBonus && voucherType != VoucherTypePromo {
		return nil, shared.NewDomainError("INVALID_TYPE", "Unknown voucher type")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Voucher amount must be positive")
	}
	if !currency.IsSupported() {
		return nil, shared.ErrValidationFailed
	}
	if maxUses <= 0 {
		return nil, shared.NewDomainError("INVALID_USES", "Voucher must allow at least one use")
	}

	return &Voucher{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Type:                voucherType,
		Amount:              amount,
		Currency:            currency,
		Status:              VoucherStatusActive,
		MaxUses:             maxUses,
		RemainingUses:       maxUses,
		ExpiresAt:           expiresAt,
	}, nil
}

// NormalizeVoucherCode canonicalizes user input before lookup
func NormalizeVoucherCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsExpired reports whether the expiry has passed, regardless of the
// persisted status
func (v *Voucher) IsExpired(now time.Time) bool {
	return v.ExpiresAt != nil && now.After(*v.ExpiresAt)
}

// CanRedeem validates the voucher for a new redemption attempt
func (v *Voucher) CanRedeem(now time.Time) error {
	switch v.Status {
	case VoucherStatusCancelled:
		return shared.ErrNotFound
	case VoucherStatusExpired:
		return shared.ErrVoucherExpired
	case VoucherStatusDepleted:
		return shared.ErrVoucherDepleted
	}
	if v.IsExpired(now) {
		return shared.ErrVoucherExpired
	}
	if v.RemainingUses <= 0 {
		return shared.ErrVoucherDepleted
	}
	return nil
}

// Redeem consumes one use. The caller persists with a version check so
// concurrent redemptions of the last use collide instead of both passing.
func (v *Voucher) Redeem(now time.Time) error {
	if err := v.CanRedeem(now); err != nil {
		return err
	}
	v.UsedCount++
	v.RemainingUses--
	if v.RemainingUses == 0 {
		v.Status = VoucherStatusDepleted
	}
	v.UpdatedAt = time.Now()
	return nil
}

// MarkDepleted records that no uses remain. Redeem sets this
// synchronously; the sweep job applies it to rows that missed it.
func (v *Voucher) MarkDepleted() error {
	if v.Status != VoucherStatusActive {
		return shared.ErrInvalidState
	}
	if v.RemainingUses > 0 {
		return shared.NewDomainError("NOT_DEPLETED", "Voucher still has remaining uses")
	}
	v.Status = VoucherStatusDepleted
	v.UpdatedAt = time.Now()
	return nil
}

// MarkExpired records that the expiry passed. Used by the cleanup job.
func (v *Voucher) MarkExpired(now time.Time) error {
	if v.Status != VoucherStatusActive {
		return shared.ErrInvalidState
	}
	if !v.IsExpired(now) {
		return shared.NewDomainError("NOT_EXPIRED", "Voucher has not expired yet")
	}
	v.Status = VoucherStatusExpired
	v.UpdatedAt = time.Now()
	return nil
}

// Cancel withdraws the voucher from circulation
func (v *Voucher) Cancel(at time.Time) error {
	if v.Status == VoucherStatusCancelled {
		return shared.ErrInvalidState
	}
	v.Status = VoucherStatusCancelled
	v.CancelledAt = &at
	v.UpdatedAt = time.Now()
	return nil
}

// RedemptionRef builds the ledger reference that makes a user's
// redemption of a code idempotent
func RedemptionRef(code string, userID uuid.UUID) string {
	return "voucher:" + NormalizeVoucherCode(code) + ":" + userID.String()
}
