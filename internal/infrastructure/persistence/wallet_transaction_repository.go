package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/wallet"
	"github.com/commerce/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormWalletTransactionRepository implements TransactionRepository using GORM
type GormWalletTransactionRepository struct {
	db *gorm.DB
}

// NewGormWalletTransactionRepository creates a new GormWalletTransactionRepository
func NewGormWalletTransactionRepository(db *gorm.DB) *GormWalletTransactionRepository {
	return &GormWalletTransactionRepository{db: db}
}

// Create inserts a ledger entry. A duplicate on the completed
// (external_ref, type, segment) key means the operation already settled.
func (r *GormWalletTransactionRepository) Create(ctx context.Context, tx *wallet.Transaction) error {
	model := models.WalletTransactionModelFromDomain(tx)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateKeyError(err) {
			return shared.ErrAlreadyProcessed
		}
		return err
	}
	return nil
}

// Update persists a status transition
func (r *GormWalletTransactionRepository) Update(ctx context.Context, tx *wallet.Transaction) error {
	model := models.WalletTransactionModelFromDomain(tx)
	result := r.db.WithContext(ctx).
		Model(&models.WalletTransactionModel{}).
		Where("id = ?", tx.ID).
		Updates(map[string]interface{}{
			"status":       model.Status,
			"completed_at": model.CompletedAt,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return shared.ErrAlreadyProcessed
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a ledger entry by ID
func (r *GormWalletTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*wallet.Transaction, error) {
	var model models.WalletTransactionModel
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

// FindCompletedByExternalRef finds the completed entry for an
// (external_ref, type) pair
func (r *GormWalletTransactionRepository) FindCompletedByExternalRef(ctx context.Context, externalRef string, txType wallet.TransactionType) (*wallet.Transaction, error) {
	var model models.WalletTransactionModel
	if err := r.db.WithContext(ctx).
		Where("external_ref = ? AND type = ? AND status = ?",
			externalRef, string(txType), string(wallet.TransactionStatusCompleted)).
		Order("created_at ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindCompletedByProviderRef finds the completed entry carrying a
// provider payment reference
func (r *GormWalletTransactionRepository) FindCompletedByProviderRef(ctx context.Context, providerRef string) (*wallet.Transaction, error) {
	var model models.WalletTransactionModel
	if err := r.db.WithContext(ctx).
		Where("provider_ref = ? AND status = ?", providerRef, string(wallet.TransactionStatusCompleted)).
		Order("created_at ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByWallet returns ledger history for a wallet with filters and pagination
func (r *GormWalletTransactionRepository) ListByWallet(ctx context.Context, walletID uuid.UUID, filter wallet.TransactionFilter) ([]*wallet.Transaction, int64, error) {
	var transactionModels []models.WalletTransactionModel
	var total int64

	countQuery := r.db.WithContext(ctx).Model(&models.WalletTransactionModel{}).
		Where("wallet_id = ?", walletID)
	countQuery = r.applyFilter(countQuery, filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.db.WithContext(ctx).Model(&models.WalletTransactionModel{}).
		Where("wallet_id = ?", walletID)
	query = r.applyFilter(query, filter)
	query = query.Order("created_at DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if err := query.Find(&transactionModels).Error; err != nil {
		return nil, 0, err
	}

	transactions := make([]*wallet.Transaction, len(transactionModels))
	for i, model := range transactionModels {
		transactions[i] = model.ToDomain()
	}
	return transactions, total, nil
}

// SummarizeByType aggregates completed volume per entry type over a window
func (r *GormWalletTransactionRepository) SummarizeByType(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (map[wallet.TransactionType]decimal.Decimal, error) {
	type row struct {
		Type  string
		Total decimal.Decimal
	}
	var rows []row

	err := r.db.WithContext(ctx).
		Model(&models.WalletTransactionModel{}).
		Select("type, COALESCE(SUM(amount), 0) AS total").
		Where("tenant_id = ? AND status = ?", tenantID, string(wallet.TransactionStatusCompleted)).
		Where("completed_at >= ? AND completed_at < ?", from, to).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	summary := make(map[wallet.TransactionType]decimal.Decimal, len(rows))
	for _, row := range rows {
		summary[wallet.TransactionType(row.Type)] = row.Total
	}
	return summary, nil
}

func (r *GormWalletTransactionRepository) applyFilter(query *gorm.DB, filter wallet.TransactionFilter) *gorm.DB {
	if filter.Type != nil {
		query = query.Where("type = ?", string(*filter.Type))
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.DateFrom != nil {
		query = query.Where("created_at >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("created_at <= ?", *filter.DateTo)
	}
	return query
}

// Ensure GormWalletTransactionRepository implements TransactionRepository
var _ wallet.TransactionRepository = (*GormWalletTransactionRepository)(nil)
