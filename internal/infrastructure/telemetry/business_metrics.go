// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides business metrics for the billing platform.
// It tracks ledger activity, provider event ingestion, and outbound
// delivery health.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	ledgerEntryTotal   *Counter
	ledgerAmountTotal  *Counter
	providerEventTotal *Counter
	voucherRedeemTotal *Counter

	// Gauge metrics (point-in-time values)
	deliveryBacklog     *Gauge
	overdueInvoiceCount *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data providers for periodic collection
	dispatchProvider DispatchMetricsProvider
}

// DispatchMetricsProvider provides delivery and invoice data for periodic
// metrics collection. This interface allows the telemetry layer to query
// pipeline state without depending on the domain packages directly.
type DispatchMetricsProvider interface {
	// GetDeliveryBacklogByEndpoint returns the count of undelivered webhook
	// deliveries per endpoint for a tenant
	GetDeliveryBacklogByEndpoint(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]int64, error)

	// GetOverdueInvoiceCount returns the count of overdue invoices for a tenant
	GetOverdueInvoiceCount(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter            metric.Meter
	Logger           *zap.Logger
	CollectInterval  time.Duration // Default: 5 minutes
	DispatchProvider DispatchMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:            cfg.Meter,
		logger:           logger,
		stopChan:         make(chan struct{}),
		dispatchProvider: cfg.DispatchProvider,
	}

	// Initialize counter metrics
	var err error

	// Ledger metrics
	bm.ledgerEntryTotal, err = NewCounter(
		cfg.Meter,
		"billing_ledger_entry_total",
		"Total number of completed ledger entries",
		"{entries}",
	)
	if err != nil {
		return nil, err
	}

	bm.ledgerAmountTotal, err = NewCounter(
		cfg.Meter,
		"billing_ledger_amount_total",
		"Total ledger amount in minor units (cents)",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	// Ingestion metrics
	bm.providerEventTotal, err = NewCounter(
		cfg.Meter,
		"billing_provider_event_total",
		"Total number of provider webhook events ingested",
		"{events}",
	)
	if err != nil {
		return nil, err
	}

	bm.voucherRedeemTotal, err = NewCounter(
		cfg.Meter,
		"billing_voucher_redeem_total",
		"Total number of voucher redemptions",
		"{redemptions}",
	)
	if err != nil {
		return nil, err
	}

	// Dispatch gauge metrics
	bm.deliveryBacklog, err = NewGauge(
		cfg.Meter,
		"billing_delivery_backlog",
		"Current undelivered webhook delivery count",
		"{deliveries}",
	)
	if err != nil {
		return nil, err
	}

	bm.overdueInvoiceCount, err = NewGauge(
		cfg.Meter,
		"billing_overdue_invoice_count",
		"Number of invoices currently overdue",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Ledger Metrics
// =============================================================================

// RecordLedgerEntry records a completed ledger entry.
// This should be called from the application layer when an entry settles.
func (bm *BusinessMetrics) RecordLedgerEntry(ctx context.Context, tenantID uuid.UUID, entryType string) {
	bm.ledgerEntryTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrEntryType.String(entryType),
	)
}

// RecordLedgerAmount records the settled amount of a ledger entry.
// Amount should be in the smallest currency unit (cents).
func (bm *BusinessMetrics) RecordLedgerAmount(ctx context.Context, tenantID uuid.UUID, entryType string, amountCents int64) {
	bm.ledgerAmountTotal.Add(ctx, amountCents,
		AttrTenantID.String(tenantID.String()),
		AttrEntryType.String(entryType),
	)
}

// RecordLedgerEntryWithAmount is a convenience method that records both the
// entry count and the settled amount.
func (bm *BusinessMetrics) RecordLedgerEntryWithAmount(ctx context.Context, tenantID uuid.UUID, entryType string, amount decimal.Decimal) {
	bm.RecordLedgerEntry(ctx, tenantID, entryType)

	// Convert to cents (multiply by 100)
	amountCents := amount.Mul(decimal.NewFromInt(100)).IntPart()
	bm.RecordLedgerAmount(ctx, tenantID, entryType, amountCents)
}

// =============================================================================
// Ingestion Metrics
// =============================================================================

// RecordProviderEvent records an ingested provider webhook event.
// This should be called when an inbound event has been durably recorded.
func (bm *BusinessMetrics) RecordProviderEvent(ctx context.Context, tenantID uuid.UUID, eventType, outcome string) {
	bm.providerEventTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrEventType.String(eventType),
		AttrEventOutcome.String(outcome),
	)
}

// RecordVoucherRedemption records a successful voucher redemption.
func (bm *BusinessMetrics) RecordVoucherRedemption(ctx context.Context, tenantID uuid.UUID) {
	bm.voucherRedeemTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
	)
}

// =============================================================================
// Dispatch Metrics
// =============================================================================

// RecordDeliveryBacklog records the current undelivered count for an endpoint.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordDeliveryBacklog(ctx context.Context, tenantID, endpointID uuid.UUID, count int64) {
	bm.deliveryBacklog.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
		AttrEndpointID.String(endpointID.String()),
	)
}

// RecordOverdueInvoiceCount records the number of overdue invoices.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordOverdueInvoiceCount(ctx context.Context, tenantID uuid.UUID, count int64) {
	bm.overdueInvoiceCount.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// TenantProvider provides tenant IDs for periodic metrics collection.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects dispatch metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, tenantProvider, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectDispatchMetrics(ctx, tenantProvider)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectDispatchMetrics(ctx, tenantProvider)
		}
	}
}

// collectDispatchMetrics collects dispatch gauge metrics for all tenants.
func (bm *BusinessMetrics) collectDispatchMetrics(ctx context.Context, tenantProvider TenantProvider) {
	if bm.dispatchProvider == nil {
		bm.logger.Debug("No dispatch provider configured, skipping dispatch metrics collection")
		return
	}

	tenantIDs, err := tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		bm.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		bm.collectTenantDispatchMetrics(ctx, tenantID)
	}
}

// collectTenantDispatchMetrics collects dispatch metrics for a single tenant.
func (bm *BusinessMetrics) collectTenantDispatchMetrics(ctx context.Context, tenantID uuid.UUID) {
	// Collect delivery backlog by endpoint
	backlogByEndpoint, err := bm.dispatchProvider.GetDeliveryBacklogByEndpoint(ctx, tenantID)
	if err != nil {
		bm.logger.Warn("Failed to get delivery backlog for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		for endpointID, count := range backlogByEndpoint {
			bm.RecordDeliveryBacklog(ctx, tenantID, endpointID, count)
		}
	}

	// Collect overdue invoice count
	overdueCount, err := bm.dispatchProvider.GetOverdueInvoiceCount(ctx, tenantID)
	if err != nil {
		bm.logger.Warn("Failed to get overdue invoice count for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		bm.RecordOverdueInvoiceCount(ctx, tenantID, overdueCount)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// =============================================================================
// Attribute Key Constants
// =============================================================================

// Business metrics attribute keys not already defined in metrics.go
var (
	// Additional business attributes can be added here
	AttrProviderName = attribute.Key("provider_name")
)
