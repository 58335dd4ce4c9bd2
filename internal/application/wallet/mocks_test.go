package wallet

import (
	"context"
	"time"

	"github.com/commerce/backend/internal/domain/billing"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/commerce/backend/internal/domain/wallet"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) FindByID(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepository) FindByUserAndCurrency(ctx context.Context, tenantID, userID uuid.UUID, currency valueobject.Currency) (*wallet.Wallet, error) {
	args := m.Called(ctx, tenantID, userID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepository) Create(ctx context.Context, w *wallet.Wallet) error {
	return m.Called(ctx, w).Error(0)
}

func (m *MockWalletRepository) SaveWithVersion(ctx context.Context, w *wallet.Wallet) error {
	return m.Called(ctx, w).Error(0)
}

func (m *MockWalletRepository) ListPromotionalIdle(ctx context.Context, tenantID uuid.UUID, cutoff time.Time, limit int) ([]*wallet.Wallet, error) {
	args := m.Called(ctx, tenantID, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*wallet.Wallet), args.Error(1)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *wallet.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockTransactionRepository) Update(ctx context.Context, tx *wallet.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*wallet.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindCompletedByExternalRef(ctx context.Context, externalRef string, txType wallet.TransactionType) (*wallet.Transaction, error) {
	args := m.Called(ctx, externalRef, txType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindCompletedByProviderRef(ctx context.Context, providerRef string) (*wallet.Transaction, error) {
	args := m.Called(ctx, providerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListByWallet(ctx context.Context, walletID uuid.UUID, filter wallet.TransactionFilter) ([]*wallet.Transaction, int64, error) {
	args := m.Called(ctx, walletID, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*wallet.Transaction), args.Get(1).(int64), args.Error(2)
}

type MockVoucherRepository struct {
	mock.Mock
}

func (m *MockVoucherRepository) Create(ctx context.Context, v *billing.Voucher) error {
	return m.Called(ctx, v).Error(0)
}

func (m *MockVoucherRepository) SaveWithVersion(ctx context.Context, v *billing.Voucher) error {
	return m.Called(ctx, v).Error(0)
}

func (m *MockVoucherRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*billing.Voucher, error) {
	args := m.Called(ctx, tenantID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Voucher), args.Error(1)
}

func (m *MockVoucherRepository) FindActiveExpired(ctx context.Context, tenantID uuid.UUID, now time.Time, limit int) ([]*billing.Voucher, error) {
	args := m.Called(ctx, tenantID, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Voucher), args.Error(1)
}

func (m *MockVoucherRepository) FindDepleted(ctx context.Context, tenantID uuid.UUID, limit int) ([]*billing.Voucher, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Voucher), args.Error(1)
}

type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) Create(ctx context.Context, inv *billing.Invoice) error {
	return m.Called(ctx, inv).Error(0)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, inv *billing.Invoice) error {
	return m.Called(ctx, inv).Error(0)
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindBySubscriptionPeriod(ctx context.Context, tenantID, subscriptionID uuid.UUID, periodStart time.Time) (*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, subscriptionID, periodStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindOpenPastDue(ctx context.Context, tenantID uuid.UUID, now time.Time, limit int) ([]*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindOverdue(ctx context.Context, tenantID uuid.UUID, limit int) ([]*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ListByAccount(ctx context.Context, tenantID, accountID uuid.UUID, filter shared.Filter) (*shared.Paginated[*billing.Invoice], error) {
	args := m.Called(ctx, tenantID, accountID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*billing.Invoice]), args.Error(1)
}

func (m *MockInvoiceRepository) NextSequence(ctx context.Context, tenantID uuid.UUID, period time.Time) (int64, error) {
	args := m.Called(ctx, tenantID, period)
	return args.Get(0).(int64), args.Error(1)
}
