package integration

import (
	"context"
	"os"
	"testing"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/commerce/backend/internal/domain/wallet"
	"github.com/commerce/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain runs before any tests and handles cleanup
func TestMain(m *testing.M) {
	code := m.Run()
	CleanupSharedContainer()
	os.Exit(code)
}

// TestWalletRepository_Integration tests the wallet repositories against a real PostgreSQL database
func TestWalletRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	walletRepo := persistence.NewGormWalletRepository(testDB.DB)
	txRepo := persistence.NewGormWalletTransactionRepository(testDB.DB)
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("Create and FindByUserAndCurrency", func(t *testing.T) {
		userID := uuid.New()
		w, err := wallet.NewWallet(tenantID, userID, valueobject.USD)
		require.NoError(t, err)
		require.NoError(t, w.Credit(wallet.SegmentPrimary, decimal.NewFromInt(100)))
		require.NoError(t, w.Credit(wallet.SegmentBonus, decimal.NewFromInt(10)))

		require.NoError(t, walletRepo.Create(ctx, w))

		found, err := walletRepo.FindByUserAndCurrency(ctx, tenantID, userID, valueobject.USD)
		require.NoError(t, err)
		assert.Equal(t, w.ID, found.ID)
		assert.True(t, found.Primary.Equal(decimal.NewFromInt(100)))
		assert.True(t, found.Bonus.Equal(decimal.NewFromInt(10)))
		assert.True(t, found.Total.Equal(decimal.NewFromInt(110)))
	})

	t.Run("One wallet per user and currency", func(t *testing.T) {
		userID := uuid.New()
		first, err := wallet.NewWallet(tenantID, userID, valueobject.EUR)
		require.NoError(t, err)
		require.NoError(t, walletRepo.Create(ctx, first))

		second, err := wallet.NewWallet(tenantID, userID, valueobject.EUR)
		require.NoError(t, err)
		err = walletRepo.Create(ctx, second)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		// A different currency for the same user is fine
		other, err := wallet.NewWallet(tenantID, userID, valueobject.GBP)
		require.NoError(t, err)
		assert.NoError(t, walletRepo.Create(ctx, other))
	})

	t.Run("SaveWithVersion detects concurrent update", func(t *testing.T) {
		userID := uuid.New()
		w, err := wallet.NewWallet(tenantID, userID, valueobject.USD)
		require.NoError(t, err)
		require.NoError(t, walletRepo.Create(ctx, w))

		stale, err := walletRepo.FindByID(ctx, w.ID)
		require.NoError(t, err)

		fresh, err := walletRepo.FindByID(ctx, w.ID)
		require.NoError(t, err)
		require.NoError(t, fresh.Credit(wallet.SegmentPrimary, decimal.NewFromInt(50)))
		require.NoError(t, walletRepo.SaveWithVersion(ctx, fresh))

		require.NoError(t, stale.Credit(wallet.SegmentPrimary, decimal.NewFromInt(25)))
		err = walletRepo.SaveWithVersion(ctx, stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("Completed external ref is unique per type and segment", func(t *testing.T) {
		userID := uuid.New()
		w, err := wallet.NewWallet(tenantID, userID, valueobject.USD)
		require.NoError(t, err)
		require.NoError(t, walletRepo.Create(ctx, w))

		mkTx := func(ref string) *wallet.Transaction {
			tx, err := wallet.NewTransaction(tenantID, w.ID, wallet.TransactionTypeDeposit,
				decimal.NewFromInt(20), valueobject.USD, wallet.SegmentPrimary, ref)
			require.NoError(t, err)
			require.NoError(t, tx.Complete())
			return tx
		}

		require.NoError(t, txRepo.Create(ctx, mkTx("evt_dup_1")))

		err = txRepo.Create(ctx, mkTx("evt_dup_1"))
		assert.ErrorIs(t, err, shared.ErrAlreadyProcessed)

		// A different segment with the same ref does not collide
		bonus, err := wallet.NewTransaction(tenantID, w.ID, wallet.TransactionTypeDeposit,
			decimal.NewFromInt(20), valueobject.USD, wallet.SegmentBonus, "evt_dup_1")
		require.NoError(t, err)
		require.NoError(t, bonus.Complete())
		assert.NoError(t, txRepo.Create(ctx, bonus))
	})

	t.Run("FindCompletedByExternalRef", func(t *testing.T) {
		userID := uuid.New()
		w, err := wallet.NewWallet(tenantID, userID, valueobject.USD)
		require.NoError(t, err)
		require.NoError(t, walletRepo.Create(ctx, w))

		tx, err := wallet.NewTransaction(tenantID, w.ID, wallet.TransactionTypeDeposit,
			decimal.NewFromInt(75), valueobject.USD, wallet.SegmentPrimary, "evt_lookup_1")
		require.NoError(t, err)
		require.NoError(t, tx.Complete())
		require.NoError(t, txRepo.Create(ctx, tx))

		found, err := txRepo.FindCompletedByExternalRef(ctx, "evt_lookup_1", wallet.TransactionTypeDeposit)
		require.NoError(t, err)
		assert.Equal(t, tx.ID, found.ID)
		assert.True(t, found.Amount.Equal(decimal.NewFromInt(75)))

		_, err = txRepo.FindCompletedByExternalRef(ctx, "evt_missing", wallet.TransactionTypeDeposit)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("ListByWallet with filter", func(t *testing.T) {
		userID := uuid.New()
		w, err := wallet.NewWallet(tenantID, userID, valueobject.USD)
		require.NoError(t, err)
		require.NoError(t, walletRepo.Create(ctx, w))

		for i, ref := range []string{"evt_list_1", "evt_list_2", "evt_list_3"} {
			tx, err := wallet.NewTransaction(tenantID, w.ID, wallet.TransactionTypeDeposit,
				decimal.NewFromInt(int64(10*(i+1))), valueobject.USD, wallet.SegmentPrimary, ref)
			require.NoError(t, err)
			require.NoError(t, tx.Complete())
			require.NoError(t, txRepo.Create(ctx, tx))
		}

		txs, total, err := txRepo.ListByWallet(ctx, w.ID, wallet.TransactionFilter{
			Page:     1,
			PageSize: 2,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, txs, 2)
	})
}
