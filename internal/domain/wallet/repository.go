package wallet

import (
	"context"
	"time"

	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// WalletRepository defines persistence for the Wallet aggregate
type WalletRepository interface {
	// FindByID retrieves a wallet by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Wallet, error)
	// FindByUserAndCurrency retrieves the wallet for a (user, currency) pair
	FindByUserAndCurrency(ctx context.Context, tenantID, userID uuid.UUID, currency valueobject.Currency) (*Wallet, error)
	// Create inserts a new wallet
	Create(ctx context.Context, w *Wallet) error
	// SaveWithVersion persists the wallet with an optimistic version check.
	// Returns shared.ErrConcurrencyConflict when the stored version moved.
	SaveWithVersion(ctx context.Context, w *Wallet) error
	// ListPromotionalIdle returns wallets holding promotional funds whose
	// latest promotional credit predates the cutoff (expiry sweeps)
	ListPromotionalIdle(ctx context.Context, tenantID uuid.UUID, cutoff time.Time, limit int) ([]*Wallet, error)
}

// TransactionFilter narrows ledger history queries
type TransactionFilter struct {
	Type     *TransactionType
	Status   *TransactionStatus
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PageSize int
}

// TransactionRepository defines persistence for the append-only ledger
type TransactionRepository interface {
	// Create inserts a ledger entry
	Create(ctx context.Context, tx *Transaction) error
	// Update persists a status transition (pending -> completed|failed)
	Update(ctx context.Context, tx *Transaction) error
	// FindByID retrieves an entry by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	// FindCompletedByExternalRef returns the completed entry for an
	// (externalRef, type) pair, or shared.ErrNotFound. This lookup is the
	// primary defense against duplicate webhook delivery.
	FindCompletedByExternalRef(ctx context.Context, externalRef string, txType TransactionType) (*Transaction, error)
	// FindCompletedByProviderRef returns the completed entry carrying the
	// given provider payment reference, or shared.ErrNotFound.
	FindCompletedByProviderRef(ctx context.Context, providerRef string) (*Transaction, error)
	// ListByWallet returns ledger history for a wallet
	ListByWallet(ctx context.Context, walletID uuid.UUID, filter TransactionFilter) ([]*Transaction, int64, error)
}
