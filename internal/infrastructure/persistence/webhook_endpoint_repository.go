package persistence

import (
	"context"
	"errors"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/webhook"
	"github.com/commerce/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormWebhookEndpointRepository implements EndpointRepository using GORM
type GormWebhookEndpointRepository struct {
	db *gorm.DB
}

// NewGormWebhookEndpointRepository creates a new GormWebhookEndpointRepository
func NewGormWebhookEndpointRepository(db *gorm.DB) *GormWebhookEndpointRepository {
	return &GormWebhookEndpointRepository{db: db}
}

// Create creates a new endpoint
func (r *GormWebhookEndpointRepository) Create(ctx context.Context, endpoint *webhook.Endpoint) error {
	model := models.WebhookEndpointModelFromDomain(endpoint)
	return r.db.WithContext(ctx).Create(model).Error
}

// Save persists endpoint changes
func (r *GormWebhookEndpointRepository) Save(ctx context.Context, endpoint *webhook.Endpoint) error {
	model := models.WebhookEndpointModelFromDomain(endpoint)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds an endpoint by ID within a tenant
func (r *GormWebhookEndpointRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*webhook.Endpoint, error) {
	var model models.WebhookEndpointModel
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

// ListActive returns active endpoints for a tenant
func (r *GormWebhookEndpointRepository) ListActive(ctx context.Context, tenantID uuid.UUID) ([]*webhook.Endpoint, error) {
	var endpointModels []models.WebhookEndpointModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Order("created_at ASC").
		Find(&endpointModels).Error
	if err != nil {
		return nil, err
	}

	endpoints := make([]*webhook.Endpoint, len(endpointModels))
	for i, model := range endpointModels {
		endpoints[i] = model.ToDomain()
	}
	return endpoints, nil
}

// Ensure GormWebhookEndpointRepository implements EndpointRepository
var _ webhook.EndpointRepository = (*GormWebhookEndpointRepository)(nil)
