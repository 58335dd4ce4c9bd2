package billing

import (
	"context"
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InvoiceRepository persists invoices
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *Invoice) error
	Save(ctx context.Context, invoice *Invoice) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)
	// FindBySubscriptionPeriod locates the invoice a renewal run already
	// created for a period, if any
	FindBySubscriptionPeriod(ctx context.Context, tenantID, subscriptionID uuid.UUID, periodStart time.Time) (*Invoice, error)
	FindOpenPastDue(ctx context.Context, tenantID uuid.UUID, now time.Time, limit int) ([]*Invoice, error)
	FindOverdue(ctx context.Context, tenantID uuid.UUID, limit int) ([]*Invoice, error)
	ListByAccount(ctx context.Context, tenantID, accountID uuid.UUID, filter shared.Filter) (*shared.Paginated[*Invoice], error)
	NextSequence(ctx context.Context, tenantID uuid.UUID, period time.Time) (int64, error)
}

// SubscriptionRepository persists subscriptions
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *Subscription) error
	SaveWithVersion(ctx context.Context, sub *Subscription) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Subscription, error)
	FindDueForRenewal(ctx context.Context, tenantID uuid.UUID, now time.Time, limit int) ([]*Subscription, error)
	FindSuspendedPastGrace(ctx context.Context, tenantID uuid.UUID, now time.Time, limit int) ([]*Subscription, error)
	ListByAccount(ctx context.Context, tenantID, accountID uuid.UUID) ([]*Subscription, error)
}

// VoucherRepository persists voucher codes. SaveWithVersion returns
// shared.ErrConcurrencyConflict when a concurrent redemption won.
type VoucherRepository interface {
	Create(ctx context.Context, voucher *Voucher) error
	SaveWithVersion(ctx context.Context, voucher *Voucher) error
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Voucher, error)
	FindActiveExpired(ctx context.Context, tenantID uuid.UUID, now time.Time, limit int) ([]*Voucher, error)
	FindDepleted(ctx context.Context, tenantID uuid.UUID, limit int) ([]*Voucher, error)
}

// TopUpMandateRepository persists auto top-up mandates
type TopUpMandateRepository interface {
	Create(ctx context.Context, mandate *TopUpMandate) error
	Save(ctx context.Context, mandate *TopUpMandate) error
	FindByWallet(ctx context.Context, tenantID, walletID uuid.UUID) (*TopUpMandate, error)
	ListEnabled(ctx context.Context, tenantID uuid.UUID, limit int) ([]*TopUpMandate, error)
}

// ReferralRepository persists referral commissions
type ReferralRepository interface {
	Create(ctx context.Context, commission *ReferralCommission) error
	Save(ctx context.Context, commission *ReferralCommission) error
	FindByReferred(ctx context.Context, tenantID, referredID uuid.UUID) (*ReferralCommission, error)
	ListByReferrer(ctx context.Context, tenantID, referrerID uuid.UUID) ([]*ReferralCommission, error)
	// ListWithOutstanding returns commissions where earned exceeds paid
	ListWithOutstanding(ctx context.Context, tenantID uuid.UUID, limit int) ([]*ReferralCommission, error)
}
