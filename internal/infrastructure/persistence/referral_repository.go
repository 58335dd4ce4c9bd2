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

// GormReferralRepository implements ReferralRepository using GORM
type GormReferralRepository struct {
	db *gorm.DB
}

// NewGormReferralRepository creates a new GormReferralRepository
func NewGormReferralRepository(db *gorm.DB) *GormReferralRepository {
	return &GormReferralRepository{db: db}
}

// Create creates a new referral commission. A referred account links to
// at most one referrer.
func (r *GormReferralRepository) Create(ctx context.Context, commission *billing.ReferralCommission) error {
	model := models.ReferralCommissionModelFromDomain(commission)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateKeyError(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Save persists commission changes
func (r *GormReferralRepository) Save(ctx context.Context, commission *billing.ReferralCommission) error {
	model := models.ReferralCommissionModelFromDomain(commission)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByReferred finds the commission record for a referred account
func (r *GormReferralRepository) FindByReferred(ctx context.Context, tenantID, referredID uuid.UUID) (*billing.ReferralCommission, error) {
	var model models.ReferralCommissionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND referred_id = ?", tenantID, referredID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByReferrer returns all commissions credited to a referrer
func (r *GormReferralRepository) ListByReferrer(ctx context.Context, tenantID, referrerID uuid.UUID) ([]*billing.ReferralCommission, error) {
	var commissionModels []models.ReferralCommissionModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND referrer_id = ?", tenantID, referrerID).
		Order("created_at DESC").
		Find(&commissionModels).Error
	if err != nil {
		return nil, err
	}
	return referralModelsToDomain(commissionModels), nil
}

// ListWithOutstanding returns commissions with unpaid earnings
func (r *GormReferralRepository) ListWithOutstanding(ctx context.Context, tenantID uuid.UUID, limit int) ([]*billing.ReferralCommission, error) {
	var commissionModels []models.ReferralCommissionModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND earned > paid", tenantID).
		Order("created_at ASC").
		Limit(limit).
		Find(&commissionModels).Error
	if err != nil {
		return nil, err
	}
	return referralModelsToDomain(commissionModels), nil
}

func referralModelsToDomain(commissionModels []models.ReferralCommissionModel) []*billing.ReferralCommission {
	commissions := make([]*billing.ReferralCommission, len(commissionModels))
	for i, model := range commissionModels {
		commissions[i] = model.ToDomain()
	}
	return commissions
}

// Ensure GormReferralRepository implements ReferralRepository
var _ billing.ReferralRepository = (*GormReferralRepository)(nil)
