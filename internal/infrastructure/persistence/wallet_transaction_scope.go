package persistence

import (
	"context"

	appwallet "github.com/commerce/backend/internal/application/wallet"
	"github.com/commerce/backend/internal/domain/billing"
	"github.com/commerce/backend/internal/domain/wallet"
	"gorm.io/gorm"
)

// GormWalletTransactionScope implements TransactionScope using GORM
// transactions. A ledger operation mutates the wallet, its entries and
// any settling voucher or invoice in one database transaction.
type GormWalletTransactionScope struct {
	db *gorm.DB
}

// NewGormWalletTransactionScope creates a new GormWalletTransactionScope
func NewGormWalletTransactionScope(db *gorm.DB) *GormWalletTransactionScope {
	return &GormWalletTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormWalletTransactionScope) Execute(ctx context.Context, fn func(repos appwallet.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormWalletTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormWalletTransactionalRepositories provides the repositories a
// ledger operation touches, all bound to the same transaction.
type gormWalletTransactionalRepositories struct {
	tx *gorm.DB
}

// WalletRepo returns the wallet repository scoped to the current transaction
func (r *gormWalletTransactionalRepositories) WalletRepo() wallet.WalletRepository {
	return NewGormWalletRepository(r.tx)
}

// TransactionRepo returns the ledger entry repository scoped to the current transaction
func (r *gormWalletTransactionalRepositories) TransactionRepo() wallet.TransactionRepository {
	return NewGormWalletTransactionRepository(r.tx)
}

// VoucherRepo returns the voucher repository scoped to the current transaction
func (r *gormWalletTransactionalRepositories) VoucherRepo() billing.VoucherRepository {
	return NewGormVoucherRepository(r.tx)
}

// InvoiceRepo returns the invoice repository scoped to the current transaction
func (r *gormWalletTransactionalRepositories) InvoiceRepo() billing.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

// Ensure GormWalletTransactionScope implements TransactionScope
var _ appwallet.TransactionScope = (*GormWalletTransactionScope)(nil)

// Ensure gormWalletTransactionalRepositories implements TransactionalRepositories
var _ appwallet.TransactionalRepositories = (*gormWalletTransactionalRepositories)(nil)
