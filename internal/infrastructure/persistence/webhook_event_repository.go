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
)

// GormWebhookEventRepository implements EventRepository using GORM
type GormWebhookEventRepository struct {
	db *gorm.DB
}

// NewGormWebhookEventRepository creates a new GormWebhookEventRepository
func NewGormWebhookEventRepository(db *gorm.DB) *GormWebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

// Create inserts the dedup record for a provider event. The unique key
// on (tenant_id, provider_event_id) makes the insert the claim: the
// loser of a concurrent duplicate delivery gets ErrAlreadyProcessed.
func (r *GormWebhookEventRepository) Create(ctx context.Context, event *webhook.Event) error {
	model := models.WebhookEventModelFromDomain(event)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateKeyError(err) {
			return shared.ErrAlreadyProcessed
		}
		return err
	}
	return nil
}

// Save persists the processing outcome
func (r *GormWebhookEventRepository) Save(ctx context.Context, event *webhook.Event) error {
	model := models.WebhookEventModelFromDomain(event)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByProviderEventID finds the dedup record for a provider event ID
func (r *GormWebhookEventRepository) FindByProviderEventID(ctx context.Context, tenantID uuid.UUID, providerEventID string) (*webhook.Event, error) {
	var model models.WebhookEventModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND provider_event_id = ?", tenantID, providerEventID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// DeleteOlderThan prunes dedup records received before the cutoff.
// Providers stop retrying long before the retention window closes.
func (r *GormWebhookEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("received_at < ?", cutoff).
		Delete(&models.WebhookEventModel{})
	return result.RowsAffected, result.Error
}

// Ensure GormWebhookEventRepository implements EventRepository
var _ webhook.EventRepository = (*GormWebhookEventRepository)(nil)
