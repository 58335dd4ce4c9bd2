package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	appwallet "github.com/commerce/backend/internal/application/wallet"
	"github.com/commerce/backend/internal/domain/billing"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/commerce/backend/internal/domain/wallet"
	"github.com/commerce/backend/internal/domain/webhook"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Notifier publishes outbound notifications fire-and-forget. A failed
// enqueue must never roll back the ledger mutation, so implementations
// log instead of returning errors.
type Notifier interface {
	Notify(ctx context.Context, tenantID uuid.UUID, eventType webhook.OutboundEventType, data any)
}

// depositPurpose is the only recognized purpose for wallet deposits
const depositPurpose = "wallet_topup"

// DepositCompletedHandler credits the primary segment when the provider
// confirms a checkout session.
type DepositCompletedHandler struct {
	ledger   *appwallet.LedgerService
	notifier Notifier
	logger   *zap.Logger
}

// NewDepositCompletedHandler creates a new DepositCompletedHandler
func NewDepositCompletedHandler(ledger *appwallet.LedgerService, notifier Notifier, logger *zap.Logger) *DepositCompletedHandler {
	return &DepositCompletedHandler{ledger: ledger, notifier: notifier, logger: logger}
}

func (h *DepositCompletedHandler) EventType() webhook.ProviderEventType {
	return webhook.EventDepositCompleted
}

type depositCompletedData struct {
	UserID        string `json:"user_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	SessionID     string `json:"session_id"`
	PaymentIntent string `json:"payment_intent"`
	Purpose       string `json:"purpose"`
}

func (h *DepositCompletedHandler) Handle(ctx context.Context, tenantID uuid.UUID, event *webhook.ProviderEvent) error {
	var data depositCompletedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return shared.ErrValidationFailed
	}
	if data.Purpose != depositPurpose {
		h.logger.Info("Skipped deposit with unrecognized purpose",
			zap.String("event_id", event.ID),
			zap.String("purpose", data.Purpose))
		return nil
	}
	userID, err := uuid.Parse(data.UserID)
	if err != nil {
		return shared.ErrValidationFailed
	}
	amount, currency, err := parseMoney(data.Amount, data.Currency)
	if err != nil {
		return err
	}
	if data.SessionID == "" {
		return shared.ErrValidationFailed
	}

	result, err := h.ledger.Apply(ctx, appwallet.ApplyRequest{
		TenantID:    tenantID,
		UserID:      userID,
		Type:        wallet.TransactionTypeDeposit,
		Amount:      amount,
		Currency:    currency,
		Segment:     wallet.SegmentPrimary,
		ExternalRef: data.SessionID,
		ProviderRef: data.PaymentIntent,
		Description: "Wallet deposit",
	})
	if err != nil {
		return err
	}
	if !result.Duplicate {
		h.notifier.Notify(ctx, tenantID, webhook.OutboundWalletCredited, map[string]any{
			"wallet_id": result.Wallet.ID.String(),
			"user_id":   userID.String(),
			"amount":    amount.String(),
			"currency":  string(currency),
		})
	}
	return nil
}

// ChargeRefundedHandler reverses a prior transaction into the segment
// it originally touched. Refunds of deposits claw funds back out of the
// wallet; refunds of charges restore them.
type ChargeRefundedHandler struct {
	ledger   *appwallet.LedgerService
	notifier Notifier
	logger   *zap.Logger
}

// NewChargeRefundedHandler creates a new ChargeRefundedHandler
func NewChargeRefundedHandler(ledger *appwallet.LedgerService, notifier Notifier, logger *zap.Logger) *ChargeRefundedHandler {
	return &ChargeRefundedHandler{ledger: ledger, notifier: notifier, logger: logger}
}

func (h *ChargeRefundedHandler) EventType() webhook.ProviderEventType {
	return webhook.EventChargeRefunded
}

type chargeRefundedData struct {
	ChargeID      string `json:"charge_id"`
	PaymentIntent string `json:"payment_intent"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

func (h *ChargeRefundedHandler) Handle(ctx context.Context, tenantID uuid.UUID, event *webhook.ProviderEvent) error {
	var data chargeRefundedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return shared.ErrValidationFailed
	}
	if data.ChargeID == "" || data.PaymentIntent == "" {
		return shared.ErrValidationFailed
	}
	amount, currency, err := parseMoney(data.Amount, data.Currency)
	if err != nil {
		return err
	}

	original, err := h.ledger.FindOriginalByProviderRef(ctx, data.PaymentIntent)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.logger.Warn("Refund references no prior transaction",
				zap.String("event_id", event.ID),
				zap.String("payment_intent", data.PaymentIntent))
			return shared.ErrValidationFailed
		}
		return err
	}

	result, err := h.ledger.Apply(ctx, appwallet.ApplyRequest{
		TenantID:    tenantID,
		WalletID:    &original.WalletID,
		Type:        wallet.TransactionTypeRefund,
		Amount:      amount,
		Currency:    currency,
		Segment:     original.Segment,
		ExternalRef: data.ChargeID,
		ProviderRef: data.ChargeID,
		Description: "Refund of " + original.ID.String(),
		Credit:      !original.Type.IsCredit(),
		Metadata:    map[string]string{"original_transaction_id": original.ID.String()},
	})
	if err != nil {
		return err
	}
	if !result.Duplicate {
		h.notifier.Notify(ctx, tenantID, webhook.OutboundWalletDebited, map[string]any{
			"wallet_id": result.Wallet.ID.String(),
			"amount":    amount.String(),
			"currency":  string(currency),
			"refund_of": original.ID.String(),
		})
	}
	return nil
}

// PaymentFailedHandler records a failed payment attempt. No ledger
// mutation happens; the event is acknowledged and operators notified.
type PaymentFailedHandler struct {
	notifier Notifier
	logger   *zap.Logger
}

// NewPaymentFailedHandler creates a new PaymentFailedHandler
func NewPaymentFailedHandler(notifier Notifier, logger *zap.Logger) *PaymentFailedHandler {
	return &PaymentFailedHandler{notifier: notifier, logger: logger}
}

func (h *PaymentFailedHandler) EventType() webhook.ProviderEventType {
	return webhook.EventPaymentFailed
}

type paymentFailedData struct {
	UserID        string `json:"user_id"`
	PaymentIntent string `json:"payment_intent"`
	Reason        string `json:"reason"`
}

func (h *PaymentFailedHandler) Handle(ctx context.Context, tenantID uuid.UUID, event *webhook.ProviderEvent) error {
	var data paymentFailedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return shared.ErrValidationFailed
	}
	h.logger.Warn("Payment failed",
		zap.String("event_id", event.ID),
		zap.String("user_id", data.UserID),
		zap.String("payment_intent", data.PaymentIntent),
		zap.String("reason", data.Reason))
	return nil
}

// InvoicePaidHandler settles an invoice when the provider confirms its
// payment. Redelivery finds the invoice already paid and neither saves
// nor notifies again.
type InvoicePaidHandler struct {
	scope    appwallet.TransactionScope
	notifier Notifier
	logger   *zap.Logger
}

// NewInvoicePaidHandler creates a new InvoicePaidHandler
func NewInvoicePaidHandler(scope appwallet.TransactionScope, notifier Notifier, logger *zap.Logger) *InvoicePaidHandler {
	return &InvoicePaidHandler{scope: scope, notifier: notifier, logger: logger}
}

func (h *InvoicePaidHandler) EventType() webhook.ProviderEventType {
	return webhook.EventInvoicePaid
}

type invoicePaidData struct {
	InvoiceID     string `json:"invoice_id"`
	PaymentIntent string `json:"payment_intent"`
}

func (h *InvoicePaidHandler) Handle(ctx context.Context, tenantID uuid.UUID, event *webhook.ProviderEvent) error {
	var data invoicePaidData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return shared.ErrValidationFailed
	}
	invoiceID, err := uuid.Parse(data.InvoiceID)
	if err != nil {
		return shared.ErrValidationFailed
	}

	var invoice *billing.Invoice
	var transitioned bool
	err = h.scope.Execute(ctx, func(repos appwallet.TransactionalRepositories) error {
		inv, err := repos.InvoiceRepo().FindByID(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		alreadyPaid := inv.Status == billing.InvoiceStatusPaid
		if err := inv.MarkPaid(time.Now()); err != nil {
			return err
		}
		invoice = inv
		transitioned = !alreadyPaid
		if !transitioned {
			return nil
		}
		return repos.InvoiceRepo().Save(ctx, inv)
	})
	if err != nil {
		return err
	}
	// A redelivered confirmation finds the invoice already paid. Only a
	// real transition emits the outbound event.
	if !transitioned {
		return nil
	}

	h.notifier.Notify(ctx, tenantID, webhook.OutboundInvoicePaid, map[string]any{
		"invoice_id": invoice.ID.String(),
		"number":     invoice.Number,
		"total":      invoice.Total.String(),
		"currency":   string(invoice.Currency),
	})
	return nil
}

func parseMoney(amount, currency string) (decimal.Decimal, valueobject.Currency, error) {
	value, err := decimal.NewFromString(amount)
	if err != nil || !value.IsPositive() {
		return decimal.Zero, "", shared.ErrValidationFailed
	}
	c := valueobject.Currency(currency)
	if !c.IsSupported() {
		return decimal.Zero, "", shared.ErrValidationFailed
	}
	return value, c, nil
}
