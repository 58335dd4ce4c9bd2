package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/webhook"
	"github.com/commerce/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormWebhookDeliveryRepository implements DeliveryRepository using GORM
type GormWebhookDeliveryRepository struct {
	db *gorm.DB
}

// NewGormWebhookDeliveryRepository creates a new GormWebhookDeliveryRepository
func NewGormWebhookDeliveryRepository(db *gorm.DB) *GormWebhookDeliveryRepository {
	return &GormWebhookDeliveryRepository{db: db}
}

// Create creates a new delivery
func (r *GormWebhookDeliveryRepository) Create(ctx context.Context, delivery *webhook.Delivery) error {
	model := models.WebhookDeliveryModelFromDomain(delivery)
	return r.db.WithContext(ctx).Create(model).Error
}

// Save persists the attempt outcome
func (r *GormWebhookDeliveryRepository) Save(ctx context.Context, delivery *webhook.Delivery) error {
	model := models.WebhookDeliveryModelFromDomain(delivery)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds a delivery by ID
func (r *GormWebhookDeliveryRepository) FindByID(ctx context.Context, id uuid.UUID) (*webhook.Delivery, error) {
	var model models.WebhookDeliveryModel
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

// ClaimDue atomically claims due deliveries for one worker pass. Rows
// are locked with FOR UPDATE SKIP LOCKED so concurrent workers divide
// the backlog instead of double-sending.
func (r *GormWebhookDeliveryRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*webhook.Delivery, error) {
	var claimed []models.WebhookDeliveryModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{
				Strength: "UPDATE",
				Options:  "SKIP LOCKED",
			}).
			Where("status IN ? AND next_attempt <= ?", []string{
				string(webhook.DeliveryStatusPending),
				string(webhook.DeliveryStatusFailed),
			}, now).
			Order("next_attempt ASC").
			Limit(limit).
			Find(&claimed).Error; err != nil {
			return err
		}

		if len(claimed) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, len(claimed))
		for i, model := range claimed {
			ids[i] = model.ID
		}

		if err := tx.Model(&models.WebhookDeliveryModel{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":     string(webhook.DeliveryStatusInFlight),
				"attempts":   gorm.Expr("attempts + 1"),
				"updated_at": time.Now(),
			}).Error; err != nil {
			return err
		}

		for i := range claimed {
			claimed[i].Status = string(webhook.DeliveryStatusInFlight)
			claimed[i].Attempts++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	deliveries := make([]*webhook.Delivery, len(claimed))
	for i, model := range claimed {
		deliveries[i] = model.ToDomain()
	}
	return deliveries, nil
}

// ListByEndpoint returns recent deliveries for an endpoint
func (r *GormWebhookDeliveryRepository) ListByEndpoint(ctx context.Context, tenantID, endpointID uuid.UUID, limit int) ([]*webhook.Delivery, error) {
	var deliveryModels []models.WebhookDeliveryModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND endpoint_id = ?", tenantID, endpointID).
		Order("created_at DESC").
		Limit(limit).
		Find(&deliveryModels).Error
	if err != nil {
		return nil, err
	}

	deliveries := make([]*webhook.Delivery, len(deliveryModels))
	for i, model := range deliveryModels {
		deliveries[i] = model.ToDomain()
	}
	return deliveries, nil
}

// Ensure GormWebhookDeliveryRepository implements DeliveryRepository
var _ webhook.DeliveryRepository = (*GormWebhookDeliveryRepository)(nil)
