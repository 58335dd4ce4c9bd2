package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/commerce/backend/internal/domain/wallet"
	"github.com/commerce/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxConflictRetries bounds optimistic-lock retries per ledger write
const maxConflictRetries = 3

// LedgerService is the single write path into wallet balances. Every
// mutation runs inside a transaction scope, carries an external
// reference for idempotency, and snapshots balances into an immutable
// ledger entry.
type LedgerService struct {
	scope   TransactionScope
	logger  *zap.Logger
	metrics *telemetry.BusinessMetrics
}

// LedgerServiceConfig contains configuration for LedgerService
type LedgerServiceConfig struct {
	Scope  TransactionScope
	Logger *zap.Logger
	// Metrics is optional; settled entries are counted when set
	Metrics *telemetry.BusinessMetrics
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(cfg LedgerServiceConfig) *LedgerService {
	return &LedgerService{
		scope:   cfg.Scope,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// ApplyRequest describes a single-segment ledger mutation
type ApplyRequest struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	// WalletID targets a known wallet directly, bypassing the
	// (user, currency) lookup. Used by refunds, which act on the wallet
	// of the original entry.
	WalletID    *uuid.UUID
	Type        wallet.TransactionType
	Amount      decimal.Decimal
	Currency    valueobject.Currency
	Segment     wallet.Segment
	ExternalRef string
	ProviderRef string
	Description string
	Metadata    map[string]string
	// Credit sets the direction for refunds and adjustments, which
	// reverse a prior entry. Other types derive their direction from
	// the transaction type.
	Credit bool
}

// ApplyResult reports the outcome of a ledger write
type ApplyResult struct {
	Wallet       *wallet.Wallet
	Transactions []*wallet.Transaction
	Duplicate    bool
}

// GetOrCreateWallet returns the user's wallet for a currency, creating
// it lazily on first touch.
func (s *LedgerService) GetOrCreateWallet(ctx context.Context, tenantID, userID uuid.UUID, currency valueobject.Currency) (*wallet.Wallet, error) {
	var result *wallet.Wallet
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		existing, err := repos.WalletRepo().FindByUserAndCurrency(ctx, tenantID, userID, currency)
		if err == nil {
			result = existing
			return nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		created, err := wallet.NewWallet(tenantID, userID, currency)
		if err != nil {
			return err
		}
		if err := repos.WalletRepo().Create(ctx, created); err != nil {
			return err
		}
		s.logger.Info("Created wallet",
			zap.String("wallet_id", created.ID.String()),
			zap.String("user_id", userID.String()),
			zap.String("currency", string(currency)))
		result = created
		return nil
	})
	return result, err
}

// Apply writes a single-segment credit or debit. Replays with the same
// (external reference, type) return the recorded outcome unchanged.
func (s *LedgerService) Apply(ctx context.Context, req ApplyRequest) (*ApplyResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "apply")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTransactionType, string(req.Type),
		telemetry.SpanAttrWalletSegment, string(req.Segment),
		telemetry.SpanAttrExternalRef, req.ExternalRef,
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	var result *ApplyResult
	var opErr error
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("ledger_apply", map[string]string{"entry_type": string(req.Type)}), func(c context.Context) {
		result, opErr = s.withConflictRetry(c, req.ExternalRef, func() (*ApplyResult, error) {
			return s.applyOnce(c, req)
		})
	})
	if opErr != nil {
		telemetry.RecordError(span, opErr)
		return nil, opErr
	}
	if s.metrics != nil && !result.Duplicate {
		s.metrics.RecordLedgerEntryWithAmount(ctx, req.TenantID, string(req.Type), req.Amount)
	}
	return result, nil
}

func (s *LedgerService) applyOnce(ctx context.Context, req ApplyRequest) (*ApplyResult, error) {
	var result *ApplyResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		existing, err := repos.TransactionRepo().FindCompletedByExternalRef(ctx, req.ExternalRef, req.Type)
		if err == nil {
			w, werr := repos.WalletRepo().FindByID(ctx, existing.WalletID)
			if werr != nil {
				return werr
			}
			result = &ApplyResult{Wallet: w, Transactions: []*wallet.Transaction{existing}, Duplicate: true}
			return nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		var w *wallet.Wallet
		if req.WalletID != nil {
			w, err = repos.WalletRepo().FindByID(ctx, *req.WalletID)
		} else {
			w, err = s.loadOrCreateWallet(ctx, repos, req.TenantID, req.UserID, req.Currency)
		}
		if err != nil {
			return err
		}

		entry, err := s.mutate(ctx, repos, w, req.Type, req.Segment, req.Amount, req)
		if err != nil {
			return err
		}
		result = &ApplyResult{Wallet: w, Transactions: []*wallet.Transaction{entry}}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logApplied(req, result)
	return result, nil
}

// ChargeRequest describes a debit that spends across segments in the
// promotional, bonus, primary order.
type ChargeRequest struct {
	TenantID    uuid.UUID
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Currency    valueobject.Currency
	ExternalRef string
	Description string
	Metadata    map[string]string
}

// Charge debits the wallet, draining promotional funds first, then
// bonus, then primary. One ledger entry is written per touched segment;
// all of them share the external reference and commit atomically.
func (s *LedgerService) Charge(ctx context.Context, req ChargeRequest) (*ApplyResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "charge")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrExternalRef, req.ExternalRef,
		telemetry.SpanAttrAmount, req.Amount.String(),
		telemetry.SpanAttrWalletCurrency, string(req.Currency),
	)

	var result *ApplyResult
	var opErr error
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("ledger_charge", nil), func(c context.Context) {
		result, opErr = s.withConflictRetry(c, req.ExternalRef, func() (*ApplyResult, error) {
			return s.chargeOnce(c, req)
		})
	})
	if opErr != nil {
		telemetry.RecordError(span, opErr)
		return nil, opErr
	}
	if s.metrics != nil && !result.Duplicate {
		s.metrics.RecordLedgerEntryWithAmount(ctx, req.TenantID, string(wallet.TransactionTypeCharge), req.Amount)
	}
	return result, nil
}

func (s *LedgerService) chargeOnce(ctx context.Context, req ChargeRequest) (*ApplyResult, error) {
	var result *ApplyResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		existing, err := repos.TransactionRepo().FindCompletedByExternalRef(ctx, req.ExternalRef, wallet.TransactionTypeCharge)
		if err == nil {
			w, werr := repos.WalletRepo().FindByID(ctx, existing.WalletID)
			if werr != nil {
				return werr
			}
			result = &ApplyResult{Wallet: w, Transactions: []*wallet.Transaction{existing}, Duplicate: true}
			return nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		w, err := repos.WalletRepo().FindByUserAndCurrency(ctx, req.TenantID, req.UserID, req.Currency)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.ErrInsufficientFunds
			}
			return err
		}

		plan, err := w.PlanCharge(req.Amount)
		if err != nil {
			return err
		}

		entries := make([]*wallet.Transaction, 0, len(plan))
		for _, portion := range plan {
			entry, err := wallet.NewTransaction(req.TenantID, w.ID, wallet.TransactionTypeCharge, portion.Amount, req.Currency, portion.Segment, req.ExternalRef)
			if err != nil {
				return err
			}
			entry.WithDescription(req.Description)
			for k, v := range req.Metadata {
				entry.WithMetadata(k, v)
			}
			if err := repos.TransactionRepo().Create(ctx, entry); err != nil {
				return err
			}

			before := w.Total
			if err := w.Debit(portion.Segment, portion.Amount, false); err != nil {
				return err
			}
			entry.RecordBalances(before, w.Total)
			if err := entry.Complete(); err != nil {
				return err
			}
			if err := repos.TransactionRepo().Update(ctx, entry); err != nil {
				return err
			}
			entries = append(entries, entry)
		}

		if err := w.CheckInvariant(); err != nil {
			return err
		}
		if err := repos.WalletRepo().SaveWithVersion(ctx, w); err != nil {
			return err
		}
		result = &ApplyResult{Wallet: w, Transactions: entries}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !result.Duplicate {
		s.logger.Info("Charged wallet",
			zap.String("wallet_id", result.Wallet.ID.String()),
			zap.String("external_ref", req.ExternalRef),
			zap.String("amount", req.Amount.String()),
			zap.Int("segments", len(result.Transactions)))
	}
	return result, nil
}

// FindOriginalByProviderRef locates the completed entry that carries a
// provider payment reference. Refund reconciliation uses it to mirror
// the original segment.
func (s *LedgerService) FindOriginalByProviderRef(ctx context.Context, providerRef string) (*wallet.Transaction, error) {
	var found *wallet.Transaction
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		entry, err := repos.TransactionRepo().FindCompletedByProviderRef(ctx, providerRef)
		if err != nil {
			return err
		}
		found = entry
		return nil
	})
	return found, err
}

// History returns a page of ledger entries for a wallet
func (s *LedgerService) History(ctx context.Context, walletID uuid.UUID, filter wallet.TransactionFilter) ([]*wallet.Transaction, int64, error) {
	var (
		entries []*wallet.Transaction
		total   int64
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		entries, total, err = repos.TransactionRepo().ListByWallet(ctx, walletID, filter)
		return err
	})
	return entries, total, err
}

// loadOrCreateWallet fetches or lazily creates the wallet inside the
// current scope. Credits create; debits against a missing wallet fail.
func (s *LedgerService) loadOrCreateWallet(ctx context.Context, repos TransactionalRepositories, tenantID, userID uuid.UUID, currency valueobject.Currency) (*wallet.Wallet, error) {
	w, err := repos.WalletRepo().FindByUserAndCurrency(ctx, tenantID, userID, currency)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	created, cerr := wallet.NewWallet(tenantID, userID, currency)
	if cerr != nil {
		return nil, cerr
	}
	if err := repos.WalletRepo().Create(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

// mutate applies one entry to one segment and persists both sides
func (s *LedgerService) mutate(ctx context.Context, repos TransactionalRepositories, w *wallet.Wallet, txType wallet.TransactionType, segment wallet.Segment, amount decimal.Decimal, req ApplyRequest) (*wallet.Transaction, error) {
	entry, err := wallet.NewTransaction(req.TenantID, w.ID, txType, amount, req.Currency, segment, req.ExternalRef)
	if err != nil {
		return nil, err
	}
	entry.WithDescription(req.Description)
	if req.ProviderRef != "" {
		entry.WithProviderRef(req.ProviderRef)
	}
	for k, v := range req.Metadata {
		entry.WithMetadata(k, v)
	}
	if err := repos.TransactionRepo().Create(ctx, entry); err != nil {
		return nil, err
	}

	before := w.Total
	isCredit := txType.IsCredit() || (txType.IsReconciling() && req.Credit)
	if isCredit {
		err = w.Credit(segment, amount)
	} else {
		err = w.Debit(segment, amount, txType.IsReconciling())
	}
	if err != nil {
		return nil, err
	}
	entry.RecordBalances(before, w.Total)
	if err := entry.Complete(); err != nil {
		return nil, err
	}
	if err := repos.TransactionRepo().Update(ctx, entry); err != nil {
		return nil, err
	}
	if err := w.CheckInvariant(); err != nil {
		return nil, err
	}
	if err := repos.WalletRepo().SaveWithVersion(ctx, w); err != nil {
		return nil, err
	}
	return entry, nil
}

// withConflictRetry reruns the operation when an optimistic version
// check loses, or when a concurrent duplicate wins the completed
// reference race after the dedup read missed. Each rerun starts with a
// fresh dedup read, so the loser resolves to the winner's recorded
// entry and a replayed reference stays idempotent.
func (s *LedgerService) withConflictRetry(ctx context.Context, ref string, op func() (*ApplyResult, error)) (*ApplyResult, error) {
	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		result, err := op()
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) && !errors.Is(err, shared.ErrAlreadyProcessed) {
			return nil, err
		}
		lastErr = err
		s.logger.Debug("Retrying ledger write after concurrent writer won",
			zap.String("external_ref", ref),
			zap.Int("attempt", attempt+1))
	}
	return nil, fmt.Errorf("ledger write for %s: %w", ref, lastErr)
}

func (s *LedgerService) logApplied(req ApplyRequest, result *ApplyResult) {
	if result.Duplicate {
		s.logger.Info("Skipped duplicate ledger write",
			zap.String("external_ref", req.ExternalRef),
			zap.String("type", string(req.Type)))
		return
	}
	s.logger.Info("Applied ledger write",
		zap.String("wallet_id", result.Wallet.ID.String()),
		zap.String("type", string(req.Type)),
		zap.String("segment", string(req.Segment)),
		zap.String("amount", req.Amount.String()),
		zap.String("external_ref", req.ExternalRef))
}
