package wallet

import (
	"context"
	"testing"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/commerce/backend/internal/domain/wallet"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type ledgerFixture struct {
	walletRepo *MockWalletRepository
	txRepo     *MockTransactionRepository
	service    *LedgerService
}

func newLedgerFixture() *ledgerFixture {
	walletRepo := new(MockWalletRepository)
	txRepo := new(MockTransactionRepository)
	scope := NewNoOpTransactionScope(walletRepo, txRepo, new(MockVoucherRepository), new(MockInvoiceRepository))
	service := NewLedgerService(LedgerServiceConfig{
		Scope:  scope,
		Logger: zap.NewNop(),
	})
	return &ledgerFixture{walletRepo: walletRepo, txRepo: txRepo, service: service}
}

func seededWallet(t *testing.T, primary, bonus, promo int64) *wallet.Wallet {
	t.Helper()
	w, err := wallet.NewWallet(uuid.New(), uuid.New(), valueobject.EUR)
	require.NoError(t, err)
	if primary > 0 {
		require.NoError(t, w.Credit(wallet.SegmentPrimary, decimal.NewFromInt(primary)))
	}
	if bonus > 0 {
		require.NoError(t, w.Credit(wallet.SegmentBonus, decimal.NewFromInt(bonus)))
	}
	if promo > 0 {
		require.NoError(t, w.Credit(wallet.SegmentPromotional, decimal.NewFromInt(promo)))
	}
	return w
}

func TestApplyDepositCreatesWalletLazily(t *testing.T) {
	f := newLedgerFixture()
	tenantID, userID := uuid.New(), uuid.New()

	f.txRepo.On("FindCompletedByExternalRef", mock.Anything, "evt_1", wallet.TransactionTypeDeposit).
		Return(nil, shared.ErrNotFound)
	f.walletRepo.On("FindByUserAndCurrency", mock.Anything, tenantID, userID, valueobject.EUR).
		Return(nil, shared.ErrNotFound)
	f.walletRepo.On("Create", mock.Anything, mock.AnythingOfType("*wallet.Wallet")).Return(nil)
	f.txRepo.On("Create", mock.Anything, mock.AnythingOfType("*wallet.Transaction")).Return(nil)
	f.txRepo.On("Update", mock.Anything, mock.AnythingOfType("*wallet.Transaction")).Return(nil)
	f.walletRepo.On("SaveWithVersion", mock.Anything, mock.AnythingOfType("*wallet.Wallet")).Return(nil)

	result, err := f.service.Apply(context.Background(), ApplyRequest{
		TenantID:    tenantID,
		UserID:      userID,
		Type:        wallet.TransactionTypeDeposit,
		Amount:      decimal.NewFromInt(25),
		Currency:    valueobject.EUR,
		Segment:     wallet.SegmentPrimary,
		ExternalRef: "evt_1",
		ProviderRef: "pi_123",
	})
	require.NoError(t, err)

	assert.False(t, result.Duplicate)
	assert.True(t, result.Wallet.Primary.Equal(decimal.NewFromInt(25)))
	require.Len(t, result.Transactions, 1)
	entry := result.Transactions[0]
	assert.True(t, entry.IsCompleted())
	assert.True(t, entry.BalanceBefore.IsZero())
	assert.True(t, entry.BalanceAfter.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, "pi_123", entry.ProviderRef)
	f.walletRepo.AssertExpectations(t)
	f.txRepo.AssertExpectations(t)
}

func TestApplyReplayedReferenceIsNoOp(t *testing.T) {
	f := newLedgerFixture()
	w := seededWallet(t, 25, 0, 0)
	prior, err := wallet.NewTransaction(w.TenantID, w.ID, wallet.TransactionTypeDeposit,
		decimal.NewFromInt(25), valueobject.EUR, wallet.SegmentPrimary, "evt_1")
	require.NoError(t, err)
	prior.RecordBalances(decimal.Zero, decimal.NewFromInt(25))
	require.NoError(t, prior.Complete())

	f.txRepo.On("FindCompletedByExternalRef", mock.Anything, "evt_1", wallet.TransactionTypeDeposit).
		Return(prior, nil)
	f.walletRepo.On("FindByID", mock.Anything, w.ID).Return(w, nil)

	result, err := f.service.Apply(context.Background(), ApplyRequest{
		TenantID:    w.TenantID,
		UserID:      w.UserID,
		Type:        wallet.TransactionTypeDeposit,
		Amount:      decimal.NewFromInt(25),
		Currency:    valueobject.EUR,
		Segment:     wallet.SegmentPrimary,
		ExternalRef: "evt_1",
	})
	require.NoError(t, err)

	assert.True(t, result.Duplicate)
	assert.True(t, result.Wallet.Primary.Equal(decimal.NewFromInt(25)))
	f.walletRepo.AssertNotCalled(t, "SaveWithVersion", mock.Anything, mock.Anything)
	f.txRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestChargeSpendsPromotionalThenBonusThenPrimary(t *testing.T) {
	f := newLedgerFixture()
	w := seededWallet(t, 100, 10, 5)

	f.txRepo.On("FindCompletedByExternalRef", mock.Anything, "charge_1", wallet.TransactionTypeCharge).
		Return(nil, shared.ErrNotFound)
	f.walletRepo.On("FindByUserAndCurrency", mock.Anything, w.TenantID, w.UserID, valueobject.EUR).
		Return(w, nil)
	f.txRepo.On("Create", mock.Anything, mock.AnythingOfType("*wallet.Transaction")).Return(nil)
	f.txRepo.On("Update", mock.Anything, mock.AnythingOfType("*wallet.Transaction")).Return(nil)
	f.walletRepo.On("SaveWithVersion", mock.Anything, w).Return(nil)

	result, err := f.service.Charge(context.Background(), ChargeRequest{
		TenantID:    w.TenantID,
		UserID:      w.UserID,
		Amount:      decimal.NewFromInt(20),
		Currency:    valueobject.EUR,
		ExternalRef: "charge_1",
	})
	require.NoError(t, err)

	require.Len(t, result.Transactions, 3)
	assert.Equal(t, wallet.SegmentPromotional, result.Transactions[0].Segment)
	assert.True(t, result.Transactions[0].Amount.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, wallet.SegmentBonus, result.Transactions[1].Segment)
	assert.True(t, result.Transactions[1].Amount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, wallet.SegmentPrimary, result.Transactions[2].Segment)
	assert.True(t, result.Transactions[2].Amount.Equal(decimal.NewFromInt(5)))

	assert.True(t, w.Promotional.IsZero())
	assert.True(t, w.Bonus.IsZero())
	assert.True(t, w.Primary.Equal(decimal.NewFromInt(95)))
	assert.True(t, w.Total.Equal(decimal.NewFromInt(95)))
}

func TestChargeInsufficientFunds(t *testing.T) {
	f := newLedgerFixture()
	w := seededWallet(t, 10, 0, 0)

	f.txRepo.On("FindCompletedByExternalRef", mock.Anything, "charge_2", wallet.TransactionTypeCharge).
		Return(nil, shared.ErrNotFound)
	f.walletRepo.On("FindByUserAndCurrency", mock.Anything, w.TenantID, w.UserID, valueobject.EUR).
		Return(w, nil)

	_, err := f.service.Charge(context.Background(), ChargeRequest{
		TenantID:    w.TenantID,
		UserID:      w.UserID,
		Amount:      decimal.NewFromInt(11),
		Currency:    valueobject.EUR,
		ExternalRef: "charge_2",
	})
	assert.ErrorIs(t, err, shared.ErrInsufficientFunds)
	assert.True(t, w.Primary.Equal(decimal.NewFromInt(10)))
	f.txRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestChargeAgainstMissingWallet(t *testing.T) {
	f := newLedgerFixture()
	tenantID, userID := uuid.New(), uuid.New()

	f.txRepo.On("FindCompletedByExternalRef", mock.Anything, "charge_3", wallet.TransactionTypeCharge).
		Return(nil, shared.ErrNotFound)
	f.walletRepo.On("FindByUserAndCurrency", mock.Anything, tenantID, userID, valueobject.EUR).
		Return(nil, shared.ErrNotFound)

	_, err := f.service.Charge(context.Background(), ChargeRequest{
		TenantID:    tenantID,
		UserID:      userID,
		Amount:      decimal.NewFromInt(1),
		Currency:    valueobject.EUR,
		ExternalRef: "charge_3",
	})
	assert.ErrorIs(t, err, shared.ErrInsufficientFunds)
}

func TestApplyRetriesOnVersionConflict(t *testing.T) {
	f := newLedgerFixture()
	w := seededWallet(t, 0, 0, 0)

	f.txRepo.On("FindCompletedByExternalRef", mock.Anything, "evt_9", wallet.TransactionTypeBonus).
		Return(nil, shared.ErrNotFound)
	f.walletRepo.On("FindByUserAndCurrency", mock.Anything, w.TenantID, w.UserID, valueobject.EUR).
		Return(w, nil)
	f.txRepo.On("Create", mock.Anything, mock.AnythingOfType("*wallet.Transaction")).Return(nil)
	f.txRepo.On("Update", mock.Anything, mock.AnythingOfType("*wallet.Transaction")).Return(nil)
	f.walletRepo.On("SaveWithVersion", mock.Anything, w).Return(shared.ErrConcurrencyConflict).Twice()
	f.walletRepo.On("SaveWithVersion", mock.Anything, w).Return(nil).Once()

	result, err := f.service.Apply(context.Background(), ApplyRequest{
		TenantID:    w.TenantID,
		UserID:      w.UserID,
		Type:        wallet.TransactionTypeBonus,
		Amount:      decimal.NewFromInt(5),
		Currency:    valueobject.EUR,
		Segment:     wallet.SegmentBonus,
		ExternalRef: "evt_9",
	})
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	f.walletRepo.AssertNumberOfCalls(t, "SaveWithVersion", 3)
}

func TestApplyResolvesLostDuplicateRaceToRecordedEntry(t *testing.T) {
	f := newLedgerFixture()
	w := seededWallet(t, 25, 0, 0)

	winner, err := wallet.NewTransaction(w.TenantID, w.ID, wallet.TransactionTypeDeposit,
		decimal.NewFromInt(25), valueobject.EUR, wallet.SegmentPrimary, "evt_11")
	require.NoError(t, err)
	winner.RecordBalances(decimal.Zero, decimal.NewFromInt(25))
	require.NoError(t, winner.Complete())

	// First pass: the dedup read misses because the concurrent winner has
	// not committed yet, then completing the entry trips the unique index.
	f.txRepo.On("FindCompletedByExternalRef", mock.Anything, "evt_11", wallet.TransactionTypeDeposit).
		Return(nil, shared.ErrNotFound).Once()
	f.walletRepo.On("FindByUserAndCurrency", mock.Anything, w.TenantID, w.UserID, valueobject.EUR).
		Return(w, nil).Once()
	f.txRepo.On("Create", mock.Anything, mock.AnythingOfType("*wallet.Transaction")).Return(nil).Once()
	f.txRepo.On("Update", mock.Anything, mock.AnythingOfType("*wallet.Transaction")).
		Return(shared.ErrAlreadyProcessed).Once()

	// Second pass: the winner's entry is visible and the write dedups.
	f.txRepo.On("FindCompletedByExternalRef", mock.Anything, "evt_11", wallet.TransactionTypeDeposit).
		Return(winner, nil).Once()
	f.walletRepo.On("FindByID", mock.Anything, w.ID).Return(w, nil).Once()

	result, err := f.service.Apply(context.Background(), ApplyRequest{
		TenantID:    w.TenantID,
		UserID:      w.UserID,
		Type:        wallet.TransactionTypeDeposit,
		Amount:      decimal.NewFromInt(25),
		Currency:    valueobject.EUR,
		Segment:     wallet.SegmentPrimary,
		ExternalRef: "evt_11",
	})
	require.NoError(t, err)

	assert.True(t, result.Duplicate)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, winner.ID, result.Transactions[0].ID)
	f.walletRepo.AssertNotCalled(t, "SaveWithVersion", mock.Anything, mock.Anything)
}

func TestApplyGivesUpAfterRepeatedConflicts(t *testing.T) {
	f := newLedgerFixture()
	w := seededWallet(t, 0, 0, 0)

	f.txRepo.On("FindCompletedByExternalRef", mock.Anything, "evt_10", wallet.TransactionTypeBonus).
		Return(nil, shared.ErrNotFound)
	f.walletRepo.On("FindByUserAndCurrency", mock.Anything, w.TenantID, w.UserID, valueobject.EUR).
		Return(w, nil)
	f.txRepo.On("Create", mock.Anything, mock.AnythingOfType("*wallet.Transaction")).Return(nil)
	f.txRepo.On("Update", mock.Anything, mock.AnythingOfType("*wallet.Transaction")).Return(nil)
	f.walletRepo.On("SaveWithVersion", mock.Anything, w).Return(shared.ErrConcurrencyConflict)

	_, err := f.service.Apply(context.Background(), ApplyRequest{
		TenantID:    w.TenantID,
		UserID:      w.UserID,
		Type:        wallet.TransactionTypeBonus,
		Amount:      decimal.NewFromInt(5),
		Currency:    valueobject.EUR,
		Segment:     wallet.SegmentBonus,
		ExternalRef: "evt_10",
	})
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	f.walletRepo.AssertNumberOfCalls(t, "SaveWithVersion", maxConflictRetries)
}

func TestAdjustmentDebitMayGoNegative(t *testing.T) {
	f := newLedgerFixture()
	w := seededWallet(t, 5, 0, 0)

	f.txRepo.On("FindCompletedByExternalRef", mock.Anything, "adj_1", wallet.TransactionTypeAdjustment).
		Return(nil, shared.ErrNotFound)
	f.walletRepo.On("FindByUserAndCurrency", mock.Anything, w.TenantID, w.UserID, valueobject.EUR).
		Return(w, nil)
	f.txRepo.On("Create", mock.Anything, mock.AnythingOfType("*wallet.Transaction")).Return(nil)
	f.txRepo.On("Update", mock.Anything, mock.AnythingOfType("*wallet.Transaction")).Return(nil)
	f.walletRepo.On("SaveWithVersion", mock.Anything, w).Return(nil)

	result, err := f.service.Apply(context.Background(), ApplyRequest{
		TenantID:    w.TenantID,
		UserID:      w.UserID,
		Type:        wallet.TransactionTypeAdjustment,
		Amount:      decimal.NewFromInt(8),
		Currency:    valueobject.EUR,
		Segment:     wallet.SegmentPrimary,
		ExternalRef: "adj_1",
	})
	require.NoError(t, err)

	assert.True(t, w.Primary.Equal(decimal.NewFromInt(-3)))
	entry := result.Transactions[0]
	assert.True(t, entry.SignedAmount().Equal(decimal.NewFromInt(-8)))
}

func TestFindOriginalByProviderRef(t *testing.T) {
	f := newLedgerFixture()
	w := seededWallet(t, 25, 0, 0)
	original, err := wallet.NewTransaction(w.TenantID, w.ID, wallet.TransactionTypeDeposit,
		decimal.NewFromInt(25), valueobject.EUR, wallet.SegmentPrimary, "evt_1")
	require.NoError(t, err)
	original.WithProviderRef("pi_123")

	f.txRepo.On("FindCompletedByProviderRef", mock.Anything, "pi_123").Return(original, nil)
	f.txRepo.On("FindCompletedByProviderRef", mock.Anything, "pi_unknown").Return(nil, shared.ErrNotFound)

	found, err := f.service.FindOriginalByProviderRef(context.Background(), "pi_123")
	require.NoError(t, err)
	assert.Equal(t, original.ID, found.ID)

	_, err = f.service.FindOriginalByProviderRef(context.Background(), "pi_unknown")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
