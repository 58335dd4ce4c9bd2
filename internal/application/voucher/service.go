package voucher

import (
	"context"
	"errors"
	"fmt"
	"time"

	appwallet "github.com/commerce/backend/internal/application/wallet"
	"github.com/commerce/backend/internal/domain/billing"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/wallet"
	"github.com/commerce/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxConflictRetries = 3

// Service validates and redeems voucher codes. Redemption consumes one
// use, credits the wallet segment the voucher type maps to, and writes
// the ledger entry, all in one transaction. The ledger reference
// voucher:<code>:<user> makes each user's redemption single-use.
type Service struct {
	scope   appwallet.TransactionScope
	logger  *zap.Logger
	metrics *telemetry.BusinessMetrics
}

// ServiceConfig contains configuration for Service
type ServiceConfig struct {
	Scope  appwallet.TransactionScope
	Logger *zap.Logger
	// Metrics is optional; redemptions are counted when set
	Metrics *telemetry.BusinessMetrics
}

// NewService creates a new voucher Service
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		scope:   cfg.Scope,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// ValidationResult reports whether a code is redeemable for a user
type ValidationResult struct {
	Valid   bool
	Reason  string
	Code    string
	Amount  decimal.Decimal
	Segment wallet.Segment
}

// RedeemResult reports a completed redemption
type RedeemResult struct {
	Voucher     *billing.Voucher
	Wallet      *wallet.Wallet
	Transaction *wallet.Transaction
}

// Validate checks a code without consuming it
func (s *Service) Validate(ctx context.Context, tenantID, userID uuid.UUID, code string) (*ValidationResult, error) {
	code = billing.NormalizeVoucherCode(code)
	result := &ValidationResult{Code: code}

	err := s.scope.Execute(ctx, func(repos appwallet.TransactionalRepositories) error {
		v, err := repos.VoucherRepo().FindByCode(ctx, tenantID, code)
		if err != nil {
			return err
		}
		if verr := v.CanRedeem(time.Now()); verr != nil {
			result.Reason = reasonFor(verr)
			return nil
		}
		ref := billing.RedemptionRef(code, userID)
		_, err = repos.TransactionRepo().FindCompletedByExternalRef(ctx, ref, wallet.TransactionTypeVoucherRedeem)
		if err == nil {
			result.Reason = reasonFor(shared.ErrAlreadyRedeemed)
			return nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		result.Valid = true
		result.Amount = v.Amount
		result.Segment = v.Type.Segment()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Redeem consumes one use of the code and credits the user's wallet.
// A second redemption by the same user fails; two users racing for the
// last use are serialized by the voucher's version check.
func (s *Service) Redeem(ctx context.Context, tenantID, userID uuid.UUID, code string) (*RedeemResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "voucher", "redeem")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrVoucherCode, code)

	code = billing.NormalizeVoucherCode(code)

	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		result, err := s.redeemOnce(ctx, tenantID, userID, code)
		if err == nil {
			if s.metrics != nil {
				s.metrics.RecordVoucherRedemption(ctx, tenantID)
			}
			return result, nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			telemetry.RecordError(span, err)
			return nil, err
		}
		lastErr = err
		s.logger.Debug("Retrying voucher redemption after version conflict",
			zap.String("code", code),
			zap.Int("attempt", attempt+1))
	}
	telemetry.RecordError(span, lastErr)
	return nil, fmt.Errorf("redeem voucher %s: %w", code, lastErr)
}

func (s *Service) redeemOnce(ctx context.Context, tenantID, userID uuid.UUID, code string) (*RedeemResult, error) {
	var result *RedeemResult
	err := s.scope.Execute(ctx, func(repos appwallet.TransactionalRepositories) error {
		v, err := repos.VoucherRepo().FindByCode(ctx, tenantID, code)
		if err != nil {
			return err
		}

		ref := billing.RedemptionRef(code, userID)
		_, err = repos.TransactionRepo().FindCompletedByExternalRef(ctx, ref, wallet.TransactionTypeVoucherRedeem)
		if err == nil {
			return shared.ErrAlreadyRedeemed
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		if err := v.Redeem(time.Now()); err != nil {
			return err
		}
		if err := repos.VoucherRepo().SaveWithVersion(ctx, v); err != nil {
			return err
		}

		w, err := s.loadOrCreateWallet(ctx, repos, tenantID, userID, v)
		if err != nil {
			return err
		}

		segment := v.Type.Segment()
		entry, err := wallet.NewTransaction(tenantID, w.ID, wallet.TransactionTypeVoucherRedeem, v.Amount, v.Currency, segment, ref)
		if err != nil {
			return err
		}
		entry.WithDescription("Voucher " + code)
		if err := repos.TransactionRepo().Create(ctx, entry); err != nil {
			return err
		}

		before := w.Total
		if err := w.Credit(segment, v.Amount); err != nil {
			return err
		}
		entry.RecordBalances(before, w.Total)
		if err := entry.Complete(); err != nil {
			return err
		}
		if err := repos.TransactionRepo().Update(ctx, entry); err != nil {
			return err
		}
		if err := repos.WalletRepo().SaveWithVersion(ctx, w); err != nil {
			return err
		}

		result = &RedeemResult{Voucher: v, Wallet: w, Transaction: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Redeemed voucher",
		zap.String("code", code),
		zap.String("user_id", userID.String()),
		zap.String("amount", result.Voucher.Amount.String()),
		zap.String("segment", string(result.Transaction.Segment)))
	return result, nil
}

func (s *Service) loadOrCreateWallet(ctx context.Context, repos appwallet.TransactionalRepositories, tenantID, userID uuid.UUID, v *billing.Voucher) (*wallet.Wallet, error) {
	w, err := repos.WalletRepo().FindByUserAndCurrency(ctx, tenantID, userID, v.Currency)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	created, cerr := wallet.NewWallet(tenantID, userID, v.Currency)
	if cerr != nil {
		return nil, cerr
	}
	if err := repos.WalletRepo().Create(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

func reasonFor(err error) string {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return "INVALID"
}
