package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	appwallet "github.com/commerce/backend/internal/application/wallet"
	"github.com/commerce/backend/internal/domain/billing"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/wallet"
	"github.com/commerce/backend/internal/domain/webhook"
	"go.uber.org/zap"
)

const eventRetention = 90 * 24 * time.Hour

// runRenewalInvoices creates the invoice for each subscription whose
// period ended and charges the wallet for it. Rerunning for the same
// period finds the existing invoice and skips.
func (o *Orchestrator) runRenewalInvoices(ctx context.Context, result *JobResult) error {
	now := time.Now()
	due, err := o.subRepo.FindDueForRenewal(ctx, o.tenantID, now, sweepBatchSize)
	if err != nil {
		return err
	}

	for _, sub := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := o.renewOne(ctx, sub, now); err != nil {
			result.recordError(fmt.Errorf("subscription %s: %w", sub.ID, err))
			continue
		}
		result.Processed++
	}
	return nil
}

func (o *Orchestrator) renewOne(ctx context.Context, sub *billing.Subscription, now time.Time) error {
	periodStart := sub.CurrentPeriodEnd
	existing, err := o.invoiceRepo.FindBySubscriptionPeriod(ctx, o.tenantID, sub.ID, periodStart)
	if err == nil && existing != nil {
		o.logger.Debug("Renewal invoice already exists",
			zap.String("subscription_id", sub.ID.String()),
			zap.String("invoice", existing.Number))
		return nil
	}
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	seq, err := o.invoiceRepo.NextSequence(ctx, o.tenantID, now)
	if err != nil {
		return err
	}
	periodEnd := sub.Cycle.Next(periodStart)
	invoice, err := billing.NewInvoice(o.tenantID, sub.AccountID,
		billing.InvoiceNumber(now, seq),
		[]billing.LineItem{{
			Description: sub.PlanName,
			Quantity:    1,
			UnitPrice:   sub.Price,
			Total:       sub.Price,
		}},
		sub.Currency, periodStart, periodEnd, now.Add(14*24*time.Hour),
	)
	if err != nil {
		return err
	}
	invoice.WithSubscription(sub.ID)
	if err := o.invoiceRepo.Create(ctx, invoice); err != nil {
		return err
	}

	chargeRef := fmt.Sprintf("renewal:%s:%s", sub.ID, periodStart.UTC().Format("2006-01-02"))
	_, err = o.ledger.Charge(ctx, appwallet.ChargeRequest{
		TenantID:    o.tenantID,
		UserID:      sub.AccountID,
		Amount:      sub.Price,
		Currency:    sub.Currency,
		ExternalRef: chargeRef,
		Description: "Renewal " + invoice.Number,
		Metadata:    map[string]string{"invoice_id": invoice.ID.String()},
	})
	if err != nil {
		if errors.Is(err, shared.ErrInsufficientFunds) {
			// invoice stays open; the overdue sweep and auto top-up
			// will pick it up
			o.logger.Info("Renewal charge deferred, insufficient funds",
				zap.String("subscription_id", sub.ID.String()),
				zap.String("invoice", invoice.Number))
			return nil
		}
		return err
	}

	if err := invoice.MarkPaid(time.Now()); err != nil {
		return err
	}
	if err := o.invoiceRepo.Save(ctx, invoice); err != nil {
		return err
	}
	if err := sub.Renew(); err != nil {
		return err
	}
	if err := o.subRepo.SaveWithVersion(ctx, sub); err != nil {
		return err
	}
	o.accrueReferral(ctx, sub)
	o.notifier.Notify(ctx, o.tenantID, webhook.OutboundInvoicePaid, map[string]any{
		"invoice_id": invoice.ID.String(),
		"number":     invoice.Number,
		"total":      invoice.Total.String(),
		"currency":   string(invoice.Currency),
	})
	return nil
}

// accrueReferral credits the referrer's commission ledger after a
// successful renewal charge. Fire-and-forget: accrual failures never
// unwind the renewal.
func (o *Orchestrator) accrueReferral(ctx context.Context, sub *billing.Subscription) {
	commission, err := o.referralRepo.FindByReferred(ctx, o.tenantID, sub.AccountID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			o.logger.Warn("Referral lookup failed", zap.Error(err))
		}
		return
	}
	if err := commission.Accrue(sub.Price); err != nil {
		o.logger.Warn("Referral accrual failed", zap.Error(err))
		return
	}
	if err := o.referralRepo.Save(ctx, commission); err != nil {
		o.logger.Warn("Referral save failed", zap.Error(err))
	}
}

// runMarkOverdue flips open invoices past their due date to overdue
func (o *Orchestrator) runMarkOverdue(ctx context.Context, result *JobResult) error {
	now := time.Now()
	invoices, err := o.invoiceRepo.FindOpenPastDue(ctx, o.tenantID, now, sweepBatchSize)
	if err != nil {
		return err
	}
	for _, invoice := range invoices {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := invoice.MarkOverdue(now); err != nil {
			result.recordError(fmt.Errorf("invoice %s: %w", invoice.Number, err))
			continue
		}
		if err := o.invoiceRepo.Save(ctx, invoice); err != nil {
			result.recordError(fmt.Errorf("invoice %s: %w", invoice.Number, err))
			continue
		}
		o.notifier.Notify(ctx, o.tenantID, webhook.OutboundInvoiceOverdue, map[string]any{
			"invoice_id": invoice.ID.String(),
			"number":     invoice.Number,
			"total":      invoice.Total.String(),
		})
		result.Processed++
	}
	return nil
}

// runExpiredServices terminates suspended subscriptions whose grace
// window lapsed
func (o *Orchestrator) runExpiredServices(ctx context.Context, result *JobResult) error {
	now := time.Now()
	expired, err := o.subRepo.FindSuspendedPastGrace(ctx, o.tenantID, now, sweepBatchSize)
	if err != nil {
		return err
	}
	for _, sub := range expired {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := sub.Expire(now); err != nil {
			result.recordError(fmt.Errorf("subscription %s: %w", sub.ID, err))
			continue
		}
		if err := o.subRepo.SaveWithVersion(ctx, sub); err != nil {
			result.recordError(fmt.Errorf("subscription %s: %w", sub.ID, err))
			continue
		}
		o.notifier.Notify(ctx, o.tenantID, webhook.OutboundSubscriptionExpired, map[string]any{
			"subscription_id": sub.ID.String(),
			"plan":            sub.PlanName,
		})
		result.Processed++
	}
	return nil
}

// runOverdueReminders re-notifies endpoints about invoices that are
// still overdue. Notification only; the ledger is untouched.
func (o *Orchestrator) runOverdueReminders(ctx context.Context, result *JobResult) error {
	invoices, err := o.invoiceRepo.FindOverdue(ctx, o.tenantID, sweepBatchSize)
	if err != nil {
		return err
	}
	for _, invoice := range invoices {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.notifier.Notify(ctx, o.tenantID, webhook.OutboundInvoiceOverdue, map[string]any{
			"invoice_id": invoice.ID.String(),
			"number":     invoice.Number,
			"total":      invoice.Total.String(),
			"reminder":   true,
		})
		result.Processed++
	}
	return nil
}

// runAutoTopUp deposits into wallets whose primary balance fell under
// their mandate threshold. The bucketed reference makes each trigger
// window idempotent and the mandate cooldown prevents runaway charging.
func (o *Orchestrator) runAutoTopUp(ctx context.Context, result *JobResult) error {
	now := time.Now()
	mandates, err := o.mandateRepo.ListEnabled(ctx, o.tenantID, sweepBatchSize)
	if err != nil {
		return err
	}
	for _, mandate := range mandates {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := o.topUpOne(ctx, mandate, now); err != nil {
			result.recordError(fmt.Errorf("mandate %s: %w", mandate.ID, err))
			continue
		}
		result.Processed++
	}
	return nil
}

func (o *Orchestrator) topUpOne(ctx context.Context, mandate *billing.TopUpMandate, now time.Time) error {
	w, err := o.walletRepo.FindByID(ctx, mandate.WalletID)
	if err != nil {
		return err
	}
	if !mandate.ShouldTrigger(w.Primary, now) {
		return nil
	}

	_, err = o.ledger.Apply(ctx, appwallet.ApplyRequest{
		TenantID:    o.tenantID,
		UserID:      mandate.AccountID,
		Type:        wallet.TransactionTypeDeposit,
		Amount:      mandate.TopUpAmount,
		Currency:    mandate.Currency,
		Segment:     wallet.SegmentPrimary,
		ExternalRef: billing.TopUpRef(mandate.WalletID, now),
		Description: "Automatic top-up",
	})
	if err != nil {
		return err
	}

	mandate.MarkTriggered(now)
	if err := o.mandateRepo.Save(ctx, mandate); err != nil {
		return err
	}
	o.logger.Info("Triggered auto top-up",
		zap.String("wallet_id", mandate.WalletID.String()),
		zap.String("amount", mandate.TopUpAmount.String()))
	return nil
}

// runCleanupCoupons marks active vouchers whose expiry passed
func (o *Orchestrator) runCleanupCoupons(ctx context.Context, result *JobResult) error {
	now := time.Now()
	expired, err := o.voucherRepo.FindActiveExpired(ctx, o.tenantID, now, sweepBatchSize)
	if err != nil {
		return err
	}
	for _, v := range expired {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := v.MarkExpired(now); err != nil {
			result.recordError(fmt.Errorf("voucher %s: %w", v.Code, err))
			continue
		}
		if err := o.voucherRepo.SaveWithVersion(ctx, v); err != nil {
			result.recordError(fmt.Errorf("voucher %s: %w", v.Code, err))
			continue
		}
		result.Processed++
	}
	return nil
}

// runDepletedCoupons settles active vouchers with no remaining uses.
// Redemption marks depletion synchronously; this sweep catches rows a
// crash left behind.
func (o *Orchestrator) runDepletedCoupons(ctx context.Context, result *JobResult) error {
	depleted, err := o.voucherRepo.FindDepleted(ctx, o.tenantID, sweepBatchSize)
	if err != nil {
		return err
	}
	for _, v := range depleted {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := v.MarkDepleted(); err != nil {
			result.recordError(fmt.Errorf("voucher %s: %w", v.Code, err))
			continue
		}
		if err := o.voucherRepo.SaveWithVersion(ctx, v); err != nil {
			result.recordError(fmt.Errorf("voucher %s: %w", v.Code, err))
			continue
		}
		result.Processed++
	}
	return nil
}

// runPromoExpiry debits stale promotional balances. The dated reference
// keeps a rerun within the same day from double-debiting.
func (o *Orchestrator) runPromoExpiry(ctx context.Context, result *JobResult) error {
	now := time.Now()
	cutoff := now.Add(-o.promoTTL)
	wallets, err := o.walletRepo.ListPromotionalIdle(ctx, o.tenantID, cutoff, sweepBatchSize)
	if err != nil {
		return err
	}
	for _, w := range wallets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !w.Promotional.IsPositive() {
			continue
		}
		ref := fmt.Sprintf("promo_expiry:%s:%s", w.ID, now.UTC().Format("2006-01-02"))
		_, err := o.ledger.Apply(ctx, appwallet.ApplyRequest{
			TenantID:    o.tenantID,
			WalletID:    &w.ID,
			Type:        wallet.TransactionTypeAdjustment,
			Amount:      w.Promotional,
			Currency:    w.Currency,
			Segment:     wallet.SegmentPromotional,
			ExternalRef: ref,
			Description: "Promotional balance expiry",
		})
		if err != nil {
			result.recordError(fmt.Errorf("wallet %s: %w", w.ID, err))
			continue
		}
		result.Processed++
	}
	return nil
}

// runMonthlyReport aggregates last month's ledger volumes, settles
// outstanding referral commissions, and prunes aged dedup records.
func (o *Orchestrator) runMonthlyReport(ctx context.Context, result *JobResult) error {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	from := monthStart.AddDate(0, -1, 0)

	summary, err := o.reporter.SummarizeByType(ctx, o.tenantID, from, monthStart)
	if err != nil {
		return err
	}
	fields := make([]zap.Field, 0, len(summary)+1)
	fields = append(fields, zap.String("period", from.Format("2006-01")))
	for txType, total := range summary {
		fields = append(fields, zap.String(string(txType), total.String()))
	}
	o.logger.Info("Monthly ledger report", fields...)
	result.Processed = len(summary)

	o.settleReferrals(ctx, result)

	pruned, err := o.eventRepo.DeleteOlderThan(ctx, now.Add(-eventRetention))
	if err != nil {
		result.recordError(fmt.Errorf("event pruning: %w", err))
	} else if pruned > 0 {
		o.logger.Info("Pruned webhook dedup records", zap.Int64("count", pruned))
	}
	return nil
}

// settleReferrals pays outstanding commission into referrer wallets as
// bonus funds. The dedup ref is keyed on the cumulative total the
// commission will have been paid up to, so a credit whose commission
// save was lost replays as a ledger duplicate instead of a second
// payout.
func (o *Orchestrator) settleReferrals(ctx context.Context, result *JobResult) {
	commissions, err := o.referralRepo.ListWithOutstanding(ctx, o.tenantID, sweepBatchSize)
	if err != nil {
		result.recordError(fmt.Errorf("referral settlement: %w", err))
		return
	}
	for _, commission := range commissions {
		outstanding := commission.Outstanding()
		if !outstanding.IsPositive() {
			continue
		}
		ref := fmt.Sprintf("referral:%s:paid-to:%s", commission.ID, commission.Paid.Add(outstanding).String())
		_, err := o.ledger.Apply(ctx, appwallet.ApplyRequest{
			TenantID:    o.tenantID,
			UserID:      commission.ReferrerID,
			Type:        wallet.TransactionTypeBonus,
			Amount:      outstanding,
			Currency:    commission.Currency,
			Segment:     wallet.SegmentBonus,
			ExternalRef: ref,
			Description: "Referral commission payout",
		})
		if err != nil {
			result.recordError(fmt.Errorf("referral %s: %w", commission.ID, err))
			continue
		}
		if err := commission.Settle(outstanding); err != nil {
			result.recordError(fmt.Errorf("referral %s: %w", commission.ID, err))
			continue
		}
		if err := o.referralRepo.Save(ctx, commission); err != nil {
			result.recordError(fmt.Errorf("referral %s: %w", commission.ID, err))
		}
	}
}
