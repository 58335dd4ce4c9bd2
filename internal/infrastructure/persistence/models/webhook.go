package models

import (
	"encoding/json"
	"time"

	"github.com/commerce/backend/internal/domain/webhook"
	"github.com/google/uuid"
)

// WebhookEventModel is the durable dedup record for provider events.
// The unique key on (tenant_id, provider_event_id) is what turns a
// concurrent duplicate delivery into a constraint violation instead of
// a double credit.
type WebhookEventModel struct {
	BaseModel
	TenantID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_webhook_event_tenant_provider,priority:1"`
	ProviderEventID string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_webhook_event_tenant_provider,priority:2"`
	Type            string    `gorm:"type:varchar(100);not null"`
	Outcome         string    `gorm:"type:varchar(20);not null;index"`
	Error           string    `gorm:"type:text"`
	ReceivedAt      time.Time `gorm:"not null;index"`
	ProcessedAt     *time.Time
}

// TableName returns the table name for GORM
func (WebhookEventModel) TableName() string {
	return "webhook_events"
}

// ToDomain converts the persistence model to a domain Event
func (m *WebhookEventModel) ToDomain() *webhook.Event {
	return &webhook.Event{
		BaseEntity:      m.BaseModel.ToDomain(),
		TenantID:        m.TenantID,
		ProviderEventID: m.ProviderEventID,
		Type:            webhook.ProviderEventType(m.Type),
		Outcome:         webhook.EventOutcome(m.Outcome),
		Error:           m.Error,
		ReceivedAt:      m.ReceivedAt,
		ProcessedAt:     m.ProcessedAt,
	}
}

// FromDomain populates the persistence model from a domain Event
func (m *WebhookEventModel) FromDomain(e *webhook.Event) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.TenantID = e.TenantID
	m.ProviderEventID = e.ProviderEventID
	m.Type = string(e.Type)
	m.Outcome = string(e.Outcome)
	m.Error = e.Error
	m.ReceivedAt = e.ReceivedAt
	m.ProcessedAt = e.ProcessedAt
}

// WebhookEventModelFromDomain creates a new persistence model from a domain Event
func WebhookEventModelFromDomain(e *webhook.Event) *WebhookEventModel {
	m := &WebhookEventModel{}
	m.FromDomain(e)
	return m
}

// WebhookEndpointModel is the persistence model for registered endpoints
type WebhookEndpointModel struct {
	TenantAggregateModel
	URL         string `gorm:"type:varchar(2048);not null"`
	Secret      string `gorm:"type:varchar(255);not null"`
	Events      string `gorm:"type:jsonb"`
	Active      bool   `gorm:"not null;default:true;index"`
	Description string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (WebhookEndpointModel) TableName() string {
	return "webhook_endpoints"
}

// ToDomain converts the persistence model to a domain Endpoint
func (m *WebhookEndpointModel) ToDomain() *webhook.Endpoint {
	var events []webhook.OutboundEventType
	if m.Events != "" {
		_ = json.Unmarshal([]byte(m.Events), &events)
	}
	ep := &webhook.Endpoint{
		URL:         m.URL,
		Secret:      m.Secret,
		Events:      events,
		Active:      m.Active,
		Description: m.Description,
	}
	m.PopulateTenantAggregateRoot(&ep.TenantAggregateRoot)
	return ep
}

// FromDomain populates the persistence model from a domain Endpoint
func (m *WebhookEndpointModel) FromDomain(ep *webhook.Endpoint) {
	m.FromDomainTenantAggregateRoot(ep.TenantAggregateRoot)
	m.URL = ep.URL
	m.Secret = ep.Secret
	m.Active = ep.Active
	m.Description = ep.Description
	if data, err := json.Marshal(ep.Events); err == nil {
		m.Events = string(data)
	}
}

// WebhookEndpointModelFromDomain creates a new persistence model from a domain Endpoint
func WebhookEndpointModelFromDomain(ep *webhook.Endpoint) *WebhookEndpointModel {
	m := &WebhookEndpointModel{}
	m.FromDomain(ep)
	return m
}

// WebhookDeliveryModel is the persistence model for outbound deliveries
type WebhookDeliveryModel struct {
	BaseModel
	TenantID     uuid.UUID `gorm:"type:uuid;not null;index"`
	EndpointID   uuid.UUID `gorm:"type:uuid;not null;index"`
	EventType    string    `gorm:"type:varchar(100);not null"`
	Payload      []byte    `gorm:"type:jsonb;not null"`
	Status       string    `gorm:"type:varchar(20);not null;index:idx_delivery_status_next,priority:1"`
	Attempts     int       `gorm:"not null;default:0"`
	MaxAttempts  int       `gorm:"not null"`
	NextAttempt  time.Time `gorm:"not null;index:idx_delivery_status_next,priority:2"`
	LastError    string    `gorm:"type:text"`
	LastHTTPCode int       `gorm:"column:last_http_code"`
	DeliveredAt  *time.Time
}

// TableName returns the table name for GORM
func (WebhookDeliveryModel) TableName() string {
	return "webhook_deliveries"
}

// ToDomain converts the persistence model to a domain Delivery
func (m *WebhookDeliveryModel) ToDomain() *webhook.Delivery {
	return &webhook.Delivery{
		BaseEntity:   m.BaseModel.ToDomain(),
		TenantID:     m.TenantID,
		EndpointID:   m.EndpointID,
		EventType:    webhook.OutboundEventType(m.EventType),
		Payload:      json.RawMessage(m.Payload),
		Status:       webhook.DeliveryStatus(m.Status),
		Attempts:     m.Attempts,
		MaxAttempts:  m.MaxAttempts,
		NextAttempt:  m.NextAttempt,
		LastError:    m.LastError,
		LastHTTPCode: m.LastHTTPCode,
		DeliveredAt:  m.DeliveredAt,
	}
}

// FromDomain populates the persistence model from a domain Delivery
func (m *WebhookDeliveryModel) FromDomain(d *webhook.Delivery) {
	m.FromDomainBaseEntity(d.BaseEntity)
	m.TenantID = d.TenantID
	m.EndpointID = d.EndpointID
	m.EventType = string(d.EventType)
	m.Payload = []byte(d.Payload)
	m.Status = string(d.Status)
	m.Attempts = d.Attempts
	m.MaxAttempts = d.MaxAttempts
	m.NextAttempt = d.NextAttempt
	m.LastError = d.LastError
	m.LastHTTPCode = d.LastHTTPCode
	m.DeliveredAt = d.DeliveredAt
}

// WebhookDeliveryModelFromDomain creates a new persistence model from a domain Delivery
func WebhookDeliveryModelFromDomain(d *webhook.Delivery) *WebhookDeliveryModel {
	m := &WebhookDeliveryModel{}
	m.FromDomain(d)
	return m
}
