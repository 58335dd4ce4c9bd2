package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	appwallet "github.com/commerce/backend/internal/application/wallet"
	appwebhook "github.com/commerce/backend/internal/application/webhook"
	"github.com/commerce/backend/internal/domain/billing"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/wallet"
	"github.com/commerce/backend/internal/domain/webhook"
	"github.com/commerce/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Job names form the fixed catalogue the cron surface accepts
const (
	JobRenewalInvoices = "renewal_invoices"
	JobMarkOverdue     = "mark_overdue"
	JobExpiredServices = "expired_services"
	JobOverdueReminder = "overdue_reminders"
	JobAutoTopUp       = "auto_topup"
	JobCleanupCoupons  = "cleanup_coupons"
	JobDepletedCoupons = "depleted_coupons"
	JobPromoExpiry     = "promo_expiry"
	JobMonthlyReport   = "monthly_report"
)

const sweepBatchSize = 500

// JobResult summarizes one job run
type JobResult struct {
	Job       string        `json:"job"`
	Success   bool          `json:"success"`
	Processed int           `json:"processed"`
	Errors    []string      `json:"errors,omitempty"`
	Duration  time.Duration `json:"duration_ms"`
}

func (r *JobResult) recordError(err error) {
	r.Errors = append(r.Errors, err.Error())
}

// LedgerReporter aggregates ledger volumes for reporting
type LedgerReporter interface {
	SummarizeByType(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (map[wallet.TransactionType]decimal.Decimal, error)
}

// Orchestrator runs the scheduled billing jobs. Every mutation goes
// through the same idempotent ledger and aggregate paths live traffic
// uses, so jobs rerun safely for the same period and run concurrently
// with webhook processing.
type Orchestrator struct {
	tenantID     uuid.UUID
	ledger       *appwallet.LedgerService
	walletRepo   wallet.WalletRepository
	subRepo      billing.SubscriptionRepository
	invoiceRepo  billing.InvoiceRepository
	voucherRepo  billing.VoucherRepository
	mandateRepo  billing.TopUpMandateRepository
	referralRepo billing.ReferralRepository
	eventRepo    webhook.EventRepository
	reporter     LedgerReporter
	notifier     appwebhook.Notifier
	promoTTL     time.Duration
	graceWindow  time.Duration
	logger       *zap.Logger
}

// OrchestratorConfig contains configuration for Orchestrator
type OrchestratorConfig struct {
	TenantID     uuid.UUID
	Ledger       *appwallet.LedgerService
	WalletRepo   wallet.WalletRepository
	SubRepo      billing.SubscriptionRepository
	InvoiceRepo  billing.InvoiceRepository
	VoucherRepo  billing.VoucherRepository
	MandateRepo  billing.TopUpMandateRepository
	ReferralRepo billing.ReferralRepository
	EventRepo    webhook.EventRepository
	Reporter     LedgerReporter
	Notifier     appwebhook.Notifier
	// PromoTTL is how long promotional funds survive without a fresh
	// promotional credit
	PromoTTL time.Duration
	// GraceWindow is how long a suspended subscription keeps its data
	// before expiry
	GraceWindow time.Duration
	Logger      *zap.Logger
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	promoTTL := cfg.PromoTTL
	if promoTTL == 0 {
		promoTTL = 90 * 24 * time.Hour
	}
	grace := cfg.GraceWindow
	if grace == 0 {
		grace = 7 * 24 * time.Hour
	}
	return &Orchestrator{
		tenantID:     cfg.TenantID,
		ledger:       cfg.Ledger,
		walletRepo:   cfg.WalletRepo,
		subRepo:      cfg.SubRepo,
		invoiceRepo:  cfg.InvoiceRepo,
		voucherRepo:  cfg.VoucherRepo,
		mandateRepo:  cfg.MandateRepo,
		referralRepo: cfg.ReferralRepo,
		eventRepo:    cfg.EventRepo,
		reporter:     cfg.Reporter,
		notifier:     cfg.Notifier,
		promoTTL:     promoTTL,
		graceWindow:  grace,
		logger:       cfg.Logger,
	}
}

// Jobs returns the catalogue in stable order
func (o *Orchestrator) Jobs() []string {
	jobs := []string{
		JobRenewalInvoices, JobMarkOverdue, JobExpiredServices,
		JobOverdueReminder, JobAutoTopUp, JobCleanupCoupons,
		JobDepletedCoupons, JobPromoExpiry, JobMonthlyReport,
	}
	sort.Strings(jobs)
	return jobs
}

// Run executes one job by name
func (o *Orchestrator) Run(ctx context.Context, job string) (*JobResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "run_job")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrJobName, job)

	start := time.Now()
	result := &JobResult{Job: job, Success: true}

	var err error
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("billing_job", map[string]string{"job": job}), func(c context.Context) {
		switch job {
		case JobRenewalInvoices:
			err = o.runRenewalInvoices(c, result)
		case JobMarkOverdue:
			err = o.runMarkOverdue(c, result)
		case JobExpiredServices:
			err = o.runExpiredServices(c, result)
		case JobOverdueReminder:
			err = o.runOverdueReminders(c, result)
		case JobAutoTopUp:
			err = o.runAutoTopUp(c, result)
		case JobCleanupCoupons:
			err = o.runCleanupCoupons(c, result)
		case JobDepletedCoupons:
			err = o.runDepletedCoupons(c, result)
		case JobPromoExpiry:
			err = o.runPromoExpiry(c, result)
		case JobMonthlyReport:
			err = o.runMonthlyReport(c, result)
		default:
			err = shared.NewDomainError("UNKNOWN_JOB", fmt.Sprintf("Job %q is not in the catalogue", job))
		}
	})
	if err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "UNKNOWN_JOB" {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	result.Duration = time.Since(start)
	if err != nil {
		result.Success = false
		result.recordError(err)
	}
	if len(result.Errors) > 0 {
		result.Success = false
	}

	o.logger.Info("Billing job finished",
		zap.String("job", job),
		zap.Bool("success", result.Success),
		zap.Int("processed", result.Processed),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// RunAll executes the whole catalogue. One job failing never stops the
// others; the summary carries every per-job outcome.
func (o *Orchestrator) RunAll(ctx context.Context) []*JobResult {
	results := make([]*JobResult, 0, len(o.Jobs()))
	for _, job := range o.Jobs() {
		if ctx.Err() != nil {
			results = append(results, &JobResult{Job: job, Success: false, Errors: []string{ctx.Err().Error()}})
			continue
		}
		result, err := o.Run(ctx, job)
		if err != nil {
			result = &JobResult{Job: job, Success: false, Errors: []string{err.Error()}}
		}
		results = append(results, result)
	}
	return results
}
