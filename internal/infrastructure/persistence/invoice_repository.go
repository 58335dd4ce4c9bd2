package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/commerce/backend/internal/domain/billing"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// Create creates a new invoice
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return r.db.WithContext(ctx).Create(model).Error
}

// Save persists invoice changes
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds an invoice by ID within a tenant
func (r *GormInvoiceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
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

// FindBySubscriptionPeriod finds the invoice a renewal run already
// created for a billing period, if any
func (r *GormInvoiceRepository) FindBySubscriptionPeriod(ctx context.Context, tenantID, subscriptionID uuid.UUID, periodStart time.Time) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND subscription_id = ? AND period_start = ?", tenantID, subscriptionID, periodStart).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOpenPastDue returns open invoices whose due date has passed
func (r *GormInvoiceRepository) FindOpenPastDue(ctx context.Context, tenantID uuid.UUID, now time.Time, limit int) ([]*billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status IN ? AND due_date < ?", tenantID,
			[]string{string(billing.InvoiceStatusDraft), string(billing.InvoiceStatusPending)}, now).
		Order("due_date ASC").
		Limit(limit).
		Find(&invoiceModels).Error
	if err != nil {
		return nil, err
	}
	return invoiceModelsToDomain(invoiceModels), nil
}

// FindOverdue returns invoices already marked overdue
func (r *GormInvoiceRepository) FindOverdue(ctx context.Context, tenantID uuid.UUID, limit int) ([]*billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, string(billing.InvoiceStatusOverdue)).
		Order("due_date ASC").
		Limit(limit).
		Find(&invoiceModels).Error
	if err != nil {
		return nil, err
	}
	return invoiceModelsToDomain(invoiceModels), nil
}

// ListByAccount returns a paginated list of invoices for an account
func (r *GormInvoiceRepository) ListByAccount(ctx context.Context, tenantID, accountID uuid.UUID, filter shared.Filter) (*shared.Paginated[*billing.Invoice], error) {
	var invoiceModels []models.InvoiceModel
	var total int64

	countQuery := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("tenant_id = ? AND account_id = ?", tenantID, accountID)
	countQuery = r.applyStatusFilter(countQuery, filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	orderBy := ValidateSortField(filter.OrderBy, invoiceSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND account_id = ?", tenantID, accountID)
	query = r.applyStatusFilter(query, filter)
	err := query.
		Order(fmt.Sprintf("%s %s", orderBy, orderDir)).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&invoiceModels).Error
	if err != nil {
		return nil, err
	}

	result := shared.NewPaginated(invoiceModelsToDomain(invoiceModels), total, page, pageSize)
	return &result, nil
}

// NextSequence returns the next invoice sequence number for a period.
// Counting issued invoices in the period is safe because numbering runs
// inside the renewal transaction.
func (r *GormInvoiceRepository) NextSequence(ctx context.Context, tenantID uuid.UUID, period time.Time) (int64, error) {
	var count int64
	prefix := fmt.Sprintf("INV-%s-%%", period.Format("200601"))
	err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("tenant_id = ? AND number LIKE ?", tenantID, prefix).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count + 1, nil
}

func (r *GormInvoiceRepository) applyStatusFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	return query
}

func invoiceModelsToDomain(invoiceModels []models.InvoiceModel) []*billing.Invoice {
	invoices := make([]*billing.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = model.ToDomain()
	}
	return invoices
}

var invoiceSortFields = map[string]bool{
	"created_at": true,
	"due_date":   true,
	"number":     true,
	"total":      true,
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
