// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDispatchMetricsProvider implements DispatchMetricsProvider using GORM.
// It queries the webhook_deliveries and invoices tables directly for
// aggregated metrics.
type GormDispatchMetricsProvider struct {
	db *gorm.DB
}

// NewGormDispatchMetricsProvider creates a new GormDispatchMetricsProvider.
func NewGormDispatchMetricsProvider(db *gorm.DB) *GormDispatchMetricsProvider {
	return &GormDispatchMetricsProvider{db: db}
}

// GetDeliveryBacklogByEndpoint returns the count of undelivered deliveries per
// endpoint for a tenant. Terminal rows (succeeded, exhausted) are excluded.
func (p *GormDispatchMetricsProvider) GetDeliveryBacklogByEndpoint(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]int64, error) {
	type result struct {
		EndpointID uuid.UUID `gorm:"column:endpoint_id"`
		Backlog    int64     `gorm:"column:backlog"`
	}

	var results []result
	err := p.db.WithContext(ctx).
		Table("webhook_deliveries").
		Select("endpoint_id, COUNT(*) as backlog").
		Where("tenant_id = ?", tenantID).
		Where("status IN ?", []string{"PENDING", "IN_FLIGHT", "FAILED"}).
		Group("endpoint_id").
		Find(&results).Error

	if err != nil {
		return nil, err
	}

	m := make(map[uuid.UUID]int64, len(results))
	for _, r := range results {
		m[r.EndpointID] = r.Backlog
	}

	return m, nil
}

// GetOverdueInvoiceCount returns the count of overdue invoices for a tenant.
func (p *GormDispatchMetricsProvider) GetOverdueInvoiceCount(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("invoices").
		Where("tenant_id = ?", tenantID).
		Where("status = ?", "OVERDUE").
		Count(&count).Error

	return count, err
}

// GormTenantProvider implements TenantProvider using GORM.
type GormTenantProvider struct {
	db *gorm.DB
}

// NewGormTenantProvider creates a new GormTenantProvider.
func NewGormTenantProvider(db *gorm.DB) *GormTenantProvider {
	return &GormTenantProvider{db: db}
}

// GetActiveTenantIDs returns all tenant IDs that own at least one wallet.
func (p *GormTenantProvider) GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("wallets").
		Distinct("tenant_id").
		Find(&ids).Error

	return ids, err
}
