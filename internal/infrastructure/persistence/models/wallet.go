package models

import (
	"encoding/json"
	"time"

	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/commerce/backend/internal/domain/wallet"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletModel is the persistence model for segmented wallet balances.
// The unique key on (tenant_id, user_id, currency) backs lazy creation:
// concurrent first touches collide on insert instead of duplicating.
type WalletModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_wallet_user_currency,priority:1"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_wallet_user_currency,priority:2"`
	Currency    string          `gorm:"type:varchar(3);not null;uniqueIndex:idx_wallet_user_currency,priority:3"`
	Primary     decimal.Decimal `gorm:"column:primary_balance;type:decimal(18,4);not null"`
	Bonus       decimal.Decimal `gorm:"column:bonus_balance;type:decimal(18,4);not null"`
	Promotional decimal.Decimal `gorm:"column:promotional_balance;type:decimal(18,4);not null"`
	Total       decimal.Decimal `gorm:"column:total_balance;type:decimal(18,4);not null"`
	Version     int             `gorm:"not null;default:1"`
	CreatedBy   *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (WalletModel) TableName() string {
	return "wallets"
}

// ToDomain converts the persistence model to a domain Wallet
func (m *WalletModel) ToDomain() *wallet.Wallet {
	w := &wallet.Wallet{
		UserID:      m.UserID,
		Currency:    valueobject.Currency(m.Currency),
		Primary:     m.Primary,
		Bonus:       m.Bonus,
		Promotional: m.Promotional,
		Total:       m.Total,
	}
	w.ID = m.ID
	w.TenantID = m.TenantID
	w.Version = m.Version
	w.CreatedBy = m.CreatedBy
	w.CreatedAt = m.CreatedAt
	w.UpdatedAt = m.UpdatedAt
	return w
}

// FromDomain populates the persistence model from a domain Wallet
func (m *WalletModel) FromDomain(w *wallet.Wallet) {
	m.ID = w.ID
	m.TenantID = w.TenantID
	m.UserID = w.UserID
	m.Currency = string(w.Currency)
	m.Primary = w.Primary
	m.Bonus = w.Bonus
	m.Promotional = w.Promotional
	m.Total = w.Total
	m.Version = w.Version
	m.CreatedBy = w.CreatedBy
	m.CreatedAt = w.CreatedAt
	m.UpdatedAt = w.UpdatedAt
}

// WalletModelFromDomain creates a new persistence model from a domain Wallet
func WalletModelFromDomain(w *wallet.Wallet) *WalletModel {
	m := &WalletModel{}
	m.FromDomain(w)
	return m
}

// WalletTransactionModel is the persistence model for ledger entries.
// The partial unique index on (external_ref, type, segment) for completed
// rows is what makes replayed webhook deliveries harmless.
type WalletTransactionModel struct {
	BaseModel
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	WalletID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type          string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_wallet_tx_ref,priority:2,where:status = 'COMPLETED'"`
	Status        string          `gorm:"type:varchar(20);not null;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency      string          `gorm:"type:varchar(3);not null"`
	Segment       string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_wallet_tx_ref,priority:3,where:status = 'COMPLETED'"`
	BalanceBefore decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ExternalRef   string          `gorm:"type:varchar(255);not null;uniqueIndex:idx_wallet_tx_ref,priority:1,where:status = 'COMPLETED'"`
	ProviderRef   string          `gorm:"type:varchar(255);index"`
	Description   string          `gorm:"type:text"`
	Metadata      string          `gorm:"type:jsonb"`
	CompletedAt   *time.Time
}

// TableName returns the table name for GORM
func (WalletTransactionModel) TableName() string {
	return "wallet_transactions"
}

// ToDomain converts the persistence model to a domain Transaction
func (m *WalletTransactionModel) ToDomain() *wallet.Transaction {
	var metadata map[string]string
	if m.Metadata != "" {
		// Corrupt metadata loses the annotations but never the entry
		_ = json.Unmarshal([]byte(m.Metadata), &metadata)
	}
	return &wallet.Transaction{
		BaseEntity:    m.BaseModel.ToDomain(),
		TenantID:      m.TenantID,
		WalletID:      m.WalletID,
		Type:          wallet.TransactionType(m.Type),
		Status:        wallet.TransactionStatus(m.Status),
		Amount:        m.Amount,
		Currency:      valueobject.Currency(m.Currency),
		Segment:       wallet.Segment(m.Segment),
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		ExternalRef:   m.ExternalRef,
		ProviderRef:   m.ProviderRef,
		Description:   m.Description,
		Metadata:      metadata,
		CompletedAt:   m.CompletedAt,
	}
}

// FromDomain populates the persistence model from a domain Transaction
func (m *WalletTransactionModel) FromDomain(tx *wallet.Transaction) {
	m.FromDomainBaseEntity(tx.BaseEntity)
	m.TenantID = tx.TenantID
	m.WalletID = tx.WalletID
	m.Type = string(tx.Type)
	m.Status = string(tx.Status)
	m.Amount = tx.Amount
	m.Currency = string(tx.Currency)
	m.Segment = string(tx.Segment)
	m.BalanceBefore = tx.BalanceBefore
	m.BalanceAfter = tx.BalanceAfter
	m.ExternalRef = tx.ExternalRef
	m.ProviderRef = tx.ProviderRef
	m.Description = tx.Description
	m.CompletedAt = tx.CompletedAt
	if len(tx.Metadata) > 0 {
		if data, err := json.Marshal(tx.Metadata); err == nil {
			m.Metadata = string(data)
		}
	}
}

// WalletTransactionModelFromDomain creates a new persistence model from a domain Transaction
func WalletTransactionModelFromDomain(tx *wallet.Transaction) *WalletTransactionModel {
	m := &WalletTransactionModel{}
	m.FromDomain(tx)
	return m
}
