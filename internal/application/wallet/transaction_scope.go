package wallet

import (
	"context"

	"github.com/commerce/backend/internal/domain/billing"
	"github.com/commerce/backend/internal/domain/wallet"
)

// TransactionScope provides transactional access to ledger repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or
// roll back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories a
// ledger operation touches within one transaction. The wallet is the
// aggregate root; transactions are append-only records; vouchers and
// invoices join the transaction when a ledger write must settle them
// atomically with the balance change.
type TransactionalRepositories interface {
	// WalletRepo returns the wallet repository scoped to the current transaction
	WalletRepo() wallet.WalletRepository
	// TransactionRepo returns the ledger entry repository scoped to the current transaction
	TransactionRepo() wallet.TransactionRepository
	// VoucherRepo returns the voucher repository scoped to the current transaction
	VoucherRepo() billing.VoucherRepository
	// InvoiceRepo returns the invoice repository scoped to the current transaction
	InvoiceRepo() billing.InvoiceRepository
}

// NoOpTransactionScope runs the function without a real transaction.
// Useful for tests with mocked repositories.
type NoOpTransactionScope struct {
	walletRepo      wallet.WalletRepository
	transactionRepo wallet.TransactionRepository
	voucherRepo     billing.VoucherRepository
	invoiceRepo     billing.InvoiceRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	walletRepo wallet.WalletRepository,
	transactionRepo wallet.TransactionRepository,
	voucherRepo billing.VoucherRepository,
	invoiceRepo billing.InvoiceRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		walletRepo:      walletRepo,
		transactionRepo: transactionRepo,
		voucherRepo:     voucherRepo,
		invoiceRepo:     invoiceRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// WalletRepo returns the wallet repository.
func (s *NoOpTransactionScope) WalletRepo() wallet.WalletRepository {
	return s.walletRepo
}

// TransactionRepo returns the ledger entry repository.
func (s *NoOpTransactionScope) TransactionRepo() wallet.TransactionRepository {
	return s.transactionRepo
}

// VoucherRepo returns the voucher repository.
func (s *NoOpTransactionScope) VoucherRepo() billing.VoucherRepository {
	return s.voucherRepo
}

// InvoiceRepo returns the invoice repository.
func (s *NoOpTransactionScope) InvoiceRepo() billing.InvoiceRepository {
	return s.invoiceRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
