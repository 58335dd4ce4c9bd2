package billing

import (
	"context"
	"time"

	"github.com/commerce/backend/internal/domain/billing"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/commerce/backend/internal/domain/wallet"
	"github.com/commerce/backend/internal/domain/webhook"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockWalletRepo struct{ mock.Mock }

func (m *mockWalletRepo) FindByID(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *mockWalletRepo) FindByUserAndCurrency(ctx context.Context, tenantID, userID uuid.UUID, currency valueobject.Currency) (*wallet.Wallet, error) {
	args := m.Called(ctx, tenantID, userID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *mockWalletRepo) Create(ctx context.Context, w *wallet.Wallet) error {
	return m.Called(ctx, w).Error(0)
}

func (m *mockWalletRepo) SaveWithVersion(ctx context.Context, w *wallet.Wallet) error {
	return m.Called(ctx, w).Error(0)
}

func (m *mockWalletRepo) ListPromotionalIdle(ctx context.Context, tenantID uuid.UUID, cutoff time.Time, limit int) ([]*wallet.Wallet, error) {
	args := m.Called(ctx, tenantID, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*wallet.Wallet), args.Error(1)
}

type mockTransactionRepo struct{ mock.Mock }

func (m *mockTransactionRepo) Create(ctx context.Context, tx *wallet.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *mockTransactionRepo) Update(ctx context.Context, tx *wallet.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *mockTransactionRepo) FindByID(ctx context.Context, id uuid.UUID) (*wallet.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) FindCompletedByExternalRef(ctx context.Context, externalRef string, txType wallet.TransactionType) (*wallet.Transaction, error) {
	args := m.Called(ctx, externalRef, txType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) FindCompletedByProviderRef(ctx context.Context, providerRef string) (*wallet.Transaction, error) {
	args := m.Called(ctx, providerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, filter wallet.TransactionFilter) ([]*wallet.Transaction, int64, error) {
	args := m.Called(ctx, walletID, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*wallet.Transaction), args.Get(1).(int64), args.Error(2)
}

type mockVoucherRepo struct{ mock.Mock }

func (m *mockVoucherRepo) Create(ctx context.Context, v *billing.Voucher) error {
	return m.Called(ctx, v).Error(0)
}

func (m *mockVoucherRepo) SaveWithVersion(ctx context.Context, v *billing.Voucher) error {
	return m.Called(ctx, v).Error(0)
}

func (m *mockVoucherRepo) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*billing.Voucher, error) {
	args := m.Called(ctx, tenantID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Voucher), args.Error(1)
}

func (m *mockVoucherRepo) FindActiveExpired(ctx context.Context, tenantID uuid.UUID, now time.Time, limit int) ([]*billing.Voucher, error) {
	args := m.Called(ctx, tenantID, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Voucher), args.Error(1)
}

func (m *mockVoucherRepo) FindDepleted(ctx context.Context, tenantID uuid.UUID, limit int) ([]*billing.Voucher, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Voucher), args.Error(1)
}

type mockInvoiceRepo struct{ mock.Mock }

func (m *mockInvoiceRepo) Create(ctx context.Context, inv *billing.Invoice) error {
	return m.Called(ctx, inv).Error(0)
}

func (m *mockInvoiceRepo) Save(ctx context.Context, inv *billing.Invoice) error {
	return m.Called(ctx, inv).Error(0)
}

func (m *mockInvoiceRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) FindBySubscriptionPeriod(ctx context.Context, tenantID, subscriptionID uuid.UUID, periodStart time.Time) (*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, subscriptionID, periodStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) FindOpenPastDue(ctx context.Context, tenantID uuid.UUID, now time.Time, limit int) ([]*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) FindOverdue(ctx context.Context, tenantID uuid.UUID, limit int) ([]*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) ListByAccount(ctx context.Context, tenantID, accountID uuid.UUID, filter shared.Filter) (*shared.Paginated[*billing.Invoice], error) {
	args := m.Called(ctx, tenantID, accountID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*billing.Invoice]), args.Error(1)
}

func (m *mockInvoiceRepo) NextSequence(ctx context.Context, tenantID uuid.UUID, period time.Time) (int64, error) {
	args := m.Called(ctx, tenantID, period)
	return args.Get(0).(int64), args.Error(1)
}

type mockSubscriptionRepo struct{ mock.Mock }

func (m *mockSubscriptionRepo) Create(ctx context.Context, sub *billing.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *mockSubscriptionRepo) SaveWithVersion(ctx context.Context, sub *billing.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *mockSubscriptionRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*billing.Subscription, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepo) FindDueForRenewal(ctx context.Context, tenantID uuid.UUID, now time.Time, limit int) ([]*billing.Subscription, error) {
	args := m.Called(ctx, tenantID, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepo) FindSuspendedPastGrace(ctx context.Context, tenantID uuid.UUID, now time.Time, limit int) ([]*billing.Subscription, error) {
	args := m.Called(ctx, tenantID, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepo) ListByAccount(ctx context.Context, tenantID, accountID uuid.UUID) ([]*billing.Subscription, error) {
	args := m.Called(ctx, tenantID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Subscription), args.Error(1)
}

type mockMandateRepo struct{ mock.Mock }

func (m *mockMandateRepo) Create(ctx context.Context, mandate *billing.TopUpMandate) error {
	return m.Called(ctx, mandate).Error(0)
}

func (m *mockMandateRepo) Save(ctx context.Context, mandate *billing.TopUpMandate) error {
	return m.Called(ctx, mandate).Error(0)
}

func (m *mockMandateRepo) FindByWallet(ctx context.Context, tenantID, walletID uuid.UUID) (*billing.TopUpMandate, error) {
	args := m.Called(ctx, tenantID, walletID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.TopUpMandate), args.Error(1)
}

func (m *mockMandateRepo) ListEnabled(ctx context.Context, tenantID uuid.UUID, limit int) ([]*billing.TopUpMandate, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.TopUpMandate), args.Error(1)
}

type mockReferralRepo struct{ mock.Mock }

func (m *mockReferralRepo) Create(ctx context.Context, commission *billing.ReferralCommission) error {
	return m.Called(ctx, commission).Error(0)
}

func (m *mockReferralRepo) Save(ctx context.Context, commission *billing.ReferralCommission) error {
	return m.Called(ctx, commission).Error(0)
}

func (m *mockReferralRepo) FindByReferred(ctx context.Context, tenantID, referredID uuid.UUID) (*billing.ReferralCommission, error) {
	args := m.Called(ctx, tenantID, referredID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ReferralCommission), args.Error(1)
}

func (m *mockReferralRepo) ListByReferrer(ctx context.Context, tenantID, referrerID uuid.UUID) ([]*billing.ReferralCommission, error) {
	args := m.Called(ctx, tenantID, referrerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.ReferralCommission), args.Error(1)
}

func (m *mockReferralRepo) ListWithOutstanding(ctx context.Context, tenantID uuid.UUID, limit int) ([]*billing.ReferralCommission, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.ReferralCommission), args.Error(1)
}

type mockEventRepo struct{ mock.Mock }

func (m *mockEventRepo) Create(ctx context.Context, event *webhook.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEventRepo) Save(ctx context.Context, event *webhook.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEventRepo) FindByProviderEventID(ctx context.Context, tenantID uuid.UUID, providerEventID string) (*webhook.Event, error) {
	args := m.Called(ctx, tenantID, providerEventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*webhook.Event), args.Error(1)
}

func (m *mockEventRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type mockReporter struct{ mock.Mock }

func (m *mockReporter) SummarizeByType(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (map[wallet.TransactionType]decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[wallet.TransactionType]decimal.Decimal), args.Error(1)
}

type recordingNotifier struct {
	events []webhook.OutboundEventType
}

func (n *recordingNotifier) Notify(_ context.Context, _ uuid.UUID, eventType webhook.OutboundEventType, _ any) {
	n.events = append(n.events, eventType)
}
