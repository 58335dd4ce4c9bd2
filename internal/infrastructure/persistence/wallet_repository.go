package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/commerce/backend/internal/domain/wallet"
	"github.com/commerce/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormWalletRepository implements WalletRepository using GORM
type GormWalletRepository struct {
	db *gorm.DB
}

// NewGormWalletRepository creates a new GormWalletRepository
func NewGormWalletRepository(db *gorm.DB) *GormWalletRepository {
	return &GormWalletRepository{db: db}
}

// FindByID finds a wallet by ID
func (r *GormWalletRepository) FindByID(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	var model models.WalletModel
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUserAndCurrency finds the wallet for a (user, currency) pair within a tenant
func (r *GormWalletRepository) FindByUserAndCurrency(ctx context.Context, tenantID, userID uuid.UUID, currency valueobject.Currency) (*wallet.Wallet, error) {
	var model models.WalletModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND user_id = ? AND currency = ?", tenantID, userID, string(currency)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a new wallet. The unique key on (tenant_id, user_id,
// currency) surfaces concurrent lazy creation as a conflict the caller
// resolves by re-reading.
func (r *GormWalletRepository) Create(ctx context.Context, w *wallet.Wallet) error {
	model := models.WalletModelFromDomain(w)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateKeyError(err) {
			return shared.ErrConcurrencyConflict
		}
		return err
	}
	return nil
}

// SaveWithVersion persists balance changes with an optimistic version check.
// The WHERE clause matches the version the aggregate was loaded at; zero
// rows affected means another writer got there first. On success the
// aggregate's version advances to the persisted value.
func (r *GormWalletRepository) SaveWithVersion(ctx context.Context, w *wallet.Wallet) error {
	model := models.WalletModelFromDomain(w)
	result := r.db.WithContext(ctx).
		Model(&models.WalletModel{}).
		Where("id = ? AND version = ?", w.ID, w.Version).
		Updates(map[string]interface{}{
			"primary_balance":     model.Primary,
			"bonus_balance":       model.Bonus,
			"promotional_balance": model.Promotional,
			"total_balance":       model.Total,
			"version":             w.Version + 1,
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	w.IncrementVersion()
	return nil
}

// ListPromotionalIdle returns wallets still holding promotional funds
// whose most recent promotional credit completed before the cutoff
func (r *GormWalletRepository) ListPromotionalIdle(ctx context.Context, tenantID uuid.UUID, cutoff time.Time, limit int) ([]*wallet.Wallet, error) {
	var walletModels []models.WalletModel

	recentCredit := r.db.
		Model(&models.WalletTransactionModel{}).
		Select("1").
		Where("wallet_transactions.wallet_id = wallets.id").
		Where("segment = ? AND status = ?", string(wallet.SegmentPromotional), string(wallet.TransactionStatusCompleted)).
		Where("type IN ?", []string{
			string(wallet.TransactionTypeDeposit),
			string(wallet.TransactionTypeBonus),
			string(wallet.TransactionTypeVoucherRedeem),
			string(wallet.TransactionTypeRefund),
		}).
		Where("completed_at > ?", cutoff)

	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND promotional_balance > 0", tenantID).
		Where("NOT EXISTS (?)", recentCredit).
		Order("updated_at ASC").
		Limit(limit).
		Find(&walletModels).Error
	if err != nil {
		return nil, err
	}

	wallets := make([]*wallet.Wallet, len(walletModels))
	for i, model := range walletModels {
		wallets[i] = model.ToDomain()
	}
	return wallets, nil
}

// Ensure GormWalletRepository implements WalletRepository
var _ wallet.WalletRepository = (*GormWalletRepository)(nil)
