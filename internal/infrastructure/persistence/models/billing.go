package models

import (
	"encoding/json"
	"time"

	"github.com/commerce/backend/internal/domain/billing"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for invoices
type InvoiceModel struct {
	TenantAggregateModel
	AccountID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	SubscriptionID *uuid.UUID      `gorm:"type:uuid;index:idx_invoice_sub_period"`
	Number         string          `gorm:"type:varchar(32);not null;uniqueIndex"`
	Status         string          `gorm:"type:varchar(20);not null;index"`
	LineItems      string          `gorm:"type:jsonb;not null"`
	Total          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency       string          `gorm:"type:varchar(3);not null"`
	PeriodStart    time.Time       `gorm:"not null;index:idx_invoice_sub_period"`
	PeriodEnd      time.Time       `gorm:"not null"`
	DueDate        time.Time       `gorm:"not null;index"`
	PaidAt         *time.Time
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	var items []billing.LineItem
	if m.LineItems != "" {
		_ = json.Unmarshal([]byte(m.LineItems), &items)
	}
	inv := &billing.Invoice{
		AccountID:      m.AccountID,
		SubscriptionID: m.SubscriptionID,
		Number:         m.Number,
		Status:         billing.InvoiceStatus(m.Status),
		LineItems:      items,
		Total:          m.Total,
		Currency:       valueobject.Currency(m.Currency),
		PeriodStart:    m.PeriodStart,
		PeriodEnd:      m.PeriodEnd,
		DueDate:        m.DueDate,
		PaidAt:         m.PaidAt,
	}
	m.PopulateTenantAggregateRoot(&inv.TenantAggregateRoot)
	return inv
}

// FromDomain populates the persistence model from a domain Invoice
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainTenantAggregateRoot(inv.TenantAggregateRoot)
	m.AccountID = inv.AccountID
	m.SubscriptionID = inv.SubscriptionID
	m.Number = inv.Number
	m.Status = string(inv.Status)
	m.Total = inv.Total
	m.Currency = string(inv.Currency)
	m.PeriodStart = inv.PeriodStart
	m.PeriodEnd = inv.PeriodEnd
	m.DueDate = inv.DueDate
	m.PaidAt = inv.PaidAt
	if data, err := json.Marshal(inv.LineItems); err == nil {
		m.LineItems = string(data)
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// SubscriptionModel is the persistence model for subscriptions
type SubscriptionModel struct {
	TenantAggregateModel
	AccountID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	PlanName         string          `gorm:"type:varchar(255);not null"`
	Price            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency         string          `gorm:"type:varchar(3);not null"`
	Cycle            string          `gorm:"type:varchar(20);not null"`
	Status           string          `gorm:"type:varchar(20);not null;index:idx_sub_status_period,priority:1"`
	CurrentPeriodEnd time.Time       `gorm:"not null;index:idx_sub_status_period,priority:2"`
	GraceUntil       *time.Time      `gorm:"index"`
	CancelledAt      *time.Time
}

// TableName returns the table name for GORM
func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

// ToDomain converts the persistence model to a domain Subscription
func (m *SubscriptionModel) ToDomain() *billing.Subscription {
	sub := &billing.Subscription{
		AccountID:        m.AccountID,
		PlanName:         m.PlanName,
		Price:            m.Price,
		Currency:         valueobject.Currency(m.Currency),
		Cycle:            billing.BillingCycle(m.Cycle),
		Status:           billing.SubscriptionStatus(m.Status),
		CurrentPeriodEnd: m.CurrentPeriodEnd,
		GraceUntil:       m.GraceUntil,
		CancelledAt:      m.CancelledAt,
	}
	m.PopulateTenantAggregateRoot(&sub.TenantAggregateRoot)
	return sub
}

// FromDomain populates the persistence model from a domain Subscription
func (m *SubscriptionModel) FromDomain(sub *billing.Subscription) {
	m.FromDomainTenantAggregateRoot(sub.TenantAggregateRoot)
	m.AccountID = sub.AccountID
	m.PlanName = sub.PlanName
	m.Price = sub.Price
	m.Currency = string(sub.Currency)
	m.Cycle = string(sub.Cycle)
	m.Status = string(sub.Status)
	m.CurrentPeriodEnd = sub.CurrentPeriodEnd
	m.GraceUntil = sub.GraceUntil
	m.CancelledAt = sub.CancelledAt
}

// SubscriptionModelFromDomain creates a new persistence model from a domain Subscription
func SubscriptionModelFromDomain(sub *billing.Subscription) *SubscriptionModel {
	m := &SubscriptionModel{}
	m.FromDomain(sub)
	return m
}

// VoucherModel is the persistence model for voucher codes
type VoucherModel struct {
	TenantAggregateModel
	Code          string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_voucher_tenant_code,priority:2"`
	Type          string          `gorm:"type:varchar(20);not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency      string          `gorm:"type:varchar(3);not null"`
	Status        string          `gorm:"type:varchar(20);not null;index"`
	MaxUses       int             `gorm:"not null"`
	UsedCount     int             `gorm:"not null;default:0"`
	RemainingUses int             `gorm:"not null"`
	ExpiresAt     *time.Time      `gorm:"index"`
	CancelledAt   *time.Time
}

// TableName returns the table name for GORM
func (VoucherModel) TableName() string {
	return "vouchers"
}

// ToDomain converts the persistence model to a domain Voucher
func (m *VoucherModel) ToDomain() *billing.Voucher {
	v := &billing.Voucher{
		Code:          m.Code,
		Type:          billing.VoucherType(m.Type),
		Amount:        m.Amount,
		Currency:      valueobject.Currency(m.Currency),
		Status:        billing.VoucherStatus(m.Status),
		MaxUses:       m.MaxUses,
		UsedCount:     m.UsedCount,
		RemainingUses: m.RemainingUses,
		ExpiresAt:     m.ExpiresAt,
		CancelledAt:   m.CancelledAt,
	}
	m.PopulateTenantAggregateRoot(&v.TenantAggregateRoot)
	return v
}

// FromDomain populates the persistence model from a domain Voucher
func (m *VoucherModel) FromDomain(v *billing.Voucher) {
	m.FromDomainTenantAggregateRoot(v.TenantAggregateRoot)
	m.Code = v.Code
	m.Type = string(v.Type)
	m.Amount = v.Amount
	m.Currency = string(v.Currency)
	m.Status = string(v.Status)
	m.MaxUses = v.MaxUses
	m.UsedCount = v.UsedCount
	m.RemainingUses = v.RemainingUses
	m.ExpiresAt = v.ExpiresAt
	m.CancelledAt = v.CancelledAt
}

// VoucherModelFromDomain creates a new persistence model from a domain Voucher
func VoucherModelFromDomain(v *billing.Voucher) *VoucherModel {
	m := &VoucherModel{}
	m.FromDomain(v)
	return m
}

// TopUpMandateModel is the persistence model for auto top-up mandates
type TopUpMandateModel struct {
	TenantAggregateModel
	AccountID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	WalletID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_mandate_tenant_wallet,priority:2"`
	Threshold       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TopUpAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency        string          `gorm:"type:varchar(3);not null"`
	Enabled         bool            `gorm:"not null;default:true;index"`
	CooldownSeconds int64           `gorm:"not null"`
	LastTriggeredAt *time.Time
}

// TableName returns the table name for GORM
func (TopUpMandateModel) TableName() string {
	return "topup_mandates"
}

// ToDomain converts the persistence model to a domain TopUpMandate
func (m *TopUpMandateModel) ToDomain() *billing.TopUpMandate {
	mandate := &billing.TopUpMandate{
		AccountID:       m.AccountID,
		WalletID:        m.WalletID,
		Threshold:       m.Threshold,
		TopUpAmount:     m.TopUpAmount,
		Currency:        valueobject.Currency(m.Currency),
		Enabled:         m.Enabled,
		Cooldown:        time.Duration(m.CooldownSeconds) * time.Second,
		LastTriggeredAt: m.LastTriggeredAt,
	}
	m.PopulateTenantAggregateRoot(&mandate.TenantAggregateRoot)
	return mandate
}

// FromDomain populates the persistence model from a domain TopUpMandate
func (m *TopUpMandateModel) FromDomain(mandate *billing.TopUpMandate) {
	m.FromDomainTenantAggregateRoot(mandate.TenantAggregateRoot)
	m.AccountID = mandate.AccountID
	m.WalletID = mandate.WalletID
	m.Threshold = mandate.Threshold
	m.TopUpAmount = mandate.TopUpAmount
	m.Currency = string(mandate.Currency)
	m.Enabled = mandate.Enabled
	m.CooldownSeconds = int64(mandate.Cooldown / time.Second)
	m.LastTriggeredAt = mandate.LastTriggeredAt
}

// TopUpMandateModelFromDomain creates a new persistence model from a domain TopUpMandate
func TopUpMandateModelFromDomain(mandate *billing.TopUpMandate) *TopUpMandateModel {
	m := &TopUpMandateModel{}
	m.FromDomain(mandate)
	return m
}

// ReferralCommissionModel is the persistence model for referral commissions
type ReferralCommissionModel struct {
	TenantAggregateModel
	ReferrerID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ReferredID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_referral_tenant_referred,priority:2"`
	Rate       decimal.Decimal `gorm:"type:decimal(5,4);not null"`
	Earned     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Paid       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Currency   string          `gorm:"type:varchar(3);not null"`
}

// TableName returns the table name for GORM
func (ReferralCommissionModel) TableName() string {
	return "referral_commissions"
}

// ToDomain converts the persistence model to a domain ReferralCommission
func (m *ReferralCommissionModel) ToDomain() *billing.ReferralCommission {
	c := &billing.ReferralCommission{
		ReferrerID: m.ReferrerID,
		ReferredID: m.ReferredID,
		Rate:       m.Rate,
		Earned:     m.Earned,
		Paid:       m.Paid,
		Currency:   valueobject.Currency(m.Currency),
	}
	m.PopulateTenantAggregateRoot(&c.TenantAggregateRoot)
	return c
}

// FromDomain populates the persistence model from a domain ReferralCommission
func (m *ReferralCommissionModel) FromDomain(c *billing.ReferralCommission) {
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	m.ReferrerID = c.ReferrerID
	m.ReferredID = c.ReferredID
	m.Rate = c.Rate
	m.Earned = c.Earned
	m.Paid = c.Paid
	m.Currency = string(c.Currency)
}

// ReferralCommissionModelFromDomain creates a new persistence model from a domain ReferralCommission
func ReferralCommissionModelFromDomain(c *billing.ReferralCommission) *ReferralCommissionModel {
	m := &ReferralCommissionModel{}
	m.FromDomain(c)
	return m
}
