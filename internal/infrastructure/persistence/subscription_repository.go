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

// GormSubscriptionRepository implements SubscriptionRepository using GORM
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// Create creates a new subscription
func (r *GormSubscriptionRepository) Create(ctx context.Context, sub *billing.Subscription) error {
	model := models.SubscriptionModelFromDomain(sub)
	return r.db.WithContext(ctx).Create(model).Error
}

// SaveWithVersion persists subscription changes with an optimistic version check
func (r *GormSubscriptionRepository) SaveWithVersion(ctx context.Context, sub *billing.Subscription) error {
	model := models.SubscriptionModelFromDomain(sub)
	result := r.db.WithContext(ctx).
		Model(&models.SubscriptionModel{}).
		Where("id = ? AND version = ?", sub.ID, sub.Version).
		Updates(map[string]interface{}{
			"status":             model.Status,
			"current_period_end": model.CurrentPeriodEnd,
			"grace_until":        model.GraceUntil,
			"cancelled_at":       model.CancelledAt,
			"version":            sub.Version + 1,
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	sub.IncrementVersion()
	return nil
}

// FindByID finds a subscription by ID within a tenant
func (r *GormSubscriptionRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*billing.Subscription, error) {
	var model models.SubscriptionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindDueForRenewal returns active subscriptions whose period has ended
func (r *GormSubscriptionRepository) FindDueForRenewal(ctx context.Context, tenantID uuid.UUID, now time.Time, limit int) ([]*billing.Subscription, error) {
	var subModels []models.SubscriptionModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND current_period_end <= ?",
			tenantID, string(billing.SubscriptionStatusActive), now).
		Order("current_period_end ASC").
		Limit(limit).
		Find(&subModels).Error
	if err != nil {
		return nil, err
	}
	return subscriptionModelsToDomain(subModels), nil
}

// FindSuspendedPastGrace returns suspended subscriptions whose grace window has lapsed
func (r *GormSubscriptionRepository) FindSuspendedPastGrace(ctx context.Context, tenantID uuid.UUID, now time.Time, limit int) ([]*billing.Subscription, error) {
	var subModels []models.SubscriptionModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND grace_until IS NOT NULL AND grace_until <= ?",
			tenantID, string(billing.SubscriptionStatusSuspended), now).
		Order("grace_until ASC").
		Limit(limit).
		Find(&subModels).Error
	if err != nil {
		return nil, err
	}
	return subscriptionModelsToDomain(subModels), nil
}

// ListByAccount returns all subscriptions for an account
func (r *GormSubscriptionRepository) ListByAccount(ctx context.Context, tenantID, accountID uuid.UUID) ([]*billing.Subscription, error) {
	var subModels []models.SubscriptionModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND account_id = ?", tenantID, accountID).
		Order("created_at DESC").
		Find(&subModels).Error
	if err != nil {
		return nil, err
	}
	return subscriptionModelsToDomain(subModels), nil
}

func subscriptionModelsToDomain(subModels []models.SubscriptionModel) []*billing.Subscription {
	subs := make([]*billing.Subscription, len(subModels))
	for i, model := range subModels {
		subs[i] = model.ToDomain()
	}
	return subs
}

// Ensure GormSubscriptionRepository implements SubscriptionRepository
var _ billing.SubscriptionRepository = (*GormSubscriptionRepository)(nil)
