package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/commerce/backend/internal/domain/billing"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormVoucherRepository implements VoucherRepository using GORM
type GormVoucherRepository struct {
	db *gorm.DB
}

// NewGormVoucherRepository creates a new GormVoucherRepository
func NewGormVoucherRepository(db *gorm.DB) *GormVoucherRepository {
	return &GormVoucherRepository{db: db}
}

// Create creates a new voucher
func (r *GormVoucherRepository) Create(ctx context.Context, voucher *billing.Voucher) error {
	model := models.VoucherModelFromDomain(voucher)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateKeyError(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// SaveWithVersion persists redemption state with an optimistic version
// check. Losing the version race means another redemption settled first.
func (r *GormVoucherRepository) SaveWithVersion(ctx context.Context, voucher *billing.Voucher) error {
	model := models.VoucherModelFromDomain(voucher)
	result := r.db.WithContext(ctx).
		Model(&models.VoucherModel{}).
		Where("id = ? AND version = ?", voucher.ID, voucher.Version).
		Updates(map[string]interface{}{
			"status":         model.Status,
			"used_count":     model.UsedCount,
			"remaining_uses": model.RemainingUses,
			"cancelled_at":   model.CancelledAt,
			"version":        voucher.Version + 1,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	voucher.IncrementVersion()
	return nil
}

// FindByCode finds a voucher by code within a tenant
func (r *GormVoucherRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*billing.Voucher, error) {
	var model models.VoucherModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveExpired returns active vouchers whose expiry has passed
func (r *GormVoucherRepository) FindActiveExpired(ctx context.Context, tenantID uuid.UUID, now time.Time, limit int) ([]*billing.Voucher, error) {
	var voucherModels []models.VoucherModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND expires_at IS NOT NULL AND expires_at <= ?",
			tenantID, string(billing.VoucherStatusActive), now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&voucherModels).Error
	if err != nil {
		return nil, err
	}
	return voucherModelsToDomain(voucherModels), nil
}

// FindDepleted returns active vouchers with no remaining uses
func (r *GormVoucherRepository) FindDepleted(ctx context.Context, tenantID uuid.UUID, limit int) ([]*billing.Voucher, error) {
	var voucherModels []models.VoucherModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND remaining_uses <= 0",
			tenantID, string(billing.VoucherStatusActive)).
		Order("updated_at ASC").
		Limit(limit).
		Find(&voucherModels).Error
	if err != nil {
		return nil, err
	}
	return voucherModelsToDomain(voucherModels), nil
}

func voucherModelsToDomain(voucherModels []models.VoucherModel) []*billing.Voucher {
	vouchers := make([]*billing.Voucher, len(voucherModels))
	for i, model := range voucherModels {
		vouchers[i] = model.ToDomain()
	}
	return vouchers
}

// Ensure GormVoucherRepository implements VoucherRepository
var _ billing.VoucherRepository = (*GormVoucherRepository)(nil)
