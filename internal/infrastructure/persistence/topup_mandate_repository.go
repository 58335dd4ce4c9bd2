package persistence

import (
	"context"
	"errors"

	"github.com/commerce/backend/internal/domain/billing"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTopUpMandateRepository implements TopUpMandateRepository using GORM
type GormTopUpMandateRepository struct {
	db *gorm.DB
}

// NewGormTopUpMandateRepository creates a new GormTopUpMandateRepository
func NewGormTopUpMandateRepository(db *gorm.DB) *GormTopUpMandateRepository {
	return &GormTopUpMandateRepository{db: db}
}

// Create creates a new mandate. Each wallet carries at most one.
func (r *GormTopUpMandateRepository) Create(ctx context.Context, mandate *billing.TopUpMandate) error {
	model := models.TopUpMandateModelFromDomain(mandate)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateKeyError(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Save persists mandate changes
func (r *GormTopUpMandateRepository) Save(ctx context.Context, mandate *billing.TopUpMandate) error {
	model := models.TopUpMandateModelFromDomain(mandate)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByWallet finds the mandate attached to a wallet within a tenant
func (r *GormTopUpMandateRepository) FindByWallet(ctx context.Context, tenantID, walletID uuid.UUID) (*billing.TopUpMandate, error) {
	var model models.TopUpMandateModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND wallet_id = ?", tenantID, walletID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListEnabled returns enabled mandates for a tenant
func (r *GormTopUpMandateRepository) ListEnabled(ctx context.Context, tenantID uuid.UUID, limit int) ([]*billing.TopUpMandate, error) {
	var mandateModels []models.TopUpMandateModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND enabled = ?", tenantID, true).
		Order("created_at ASC").
		Limit(limit).
		Find(&mandateModels).Error
	if err != nil {
		return nil, err
	}

	mandates := make([]*billing.TopUpMandate, len(mandateModels))
	for i, model := range mandateModels {
		mandates[i] = model.ToDomain()
	}
	return mandates, nil
}

// Ensure GormTopUpMandateRepository implements TopUpMandateRepository
var _ billing.TopUpMandateRepository = (*GormTopUpMandateRepository)(nil)
