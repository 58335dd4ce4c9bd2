package webhook

import (
	"encoding/json"
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ProviderEventType enumerates the payment provider events the
// reconciliation layer understands. Anything else is acknowledged and
// recorded as ignored.
type ProviderEventType string

const (
	EventDepositCompleted ProviderEventType = "deposit.completed"
	EventChargeRefunded   ProviderEventType = "charge.refunded"
	EventPaymentFailed    ProviderEventType = "payment.failed"
	EventInvoicePaid      ProviderEventType = "invoice.payment_succeeded"
)

// IsKnown reports whether a handler exists for the event type
func (t ProviderEventType) IsKnown() bool {
	switch t {
	case EventDepositCompleted, EventChargeRefunded, EventPaymentFailed, EventInvoicePaid:
		return true
	}
	return false
}

// ProviderEvent is the parsed provider envelope. Data stays raw so each
// handler decodes only the fields it needs.
type ProviderEvent struct {
	ID        string            `json:"id"`
	Type      ProviderEventType `json:"type"`
	Timestamp int64             `json:"timestamp"`
	Data      json.RawMessage   `json:"data"`
}

// ParseProviderEvent decodes and validates a provider envelope
func ParseProviderEvent(payload []byte) (*ProviderEvent, error) {
	var event ProviderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, shared.NewDomainError("MALFORMED_PAYLOAD", "Event payload is not valid JSON")
	}
	if event.ID == "" {
		return nil, shared.NewDomainError("MISSING_EVENT_ID", "Event is missing its identifier")
	}
	if event.Type == "" {
		return nil, shared.NewDomainError("MISSING_EVENT_TYPE", "Event is missing its type")
	}
	if len(event.Data) == 0 {
		event.Data = json.RawMessage("{}")
	}
	return &event, nil
}

// EventOutcome records how ingestion disposed of an event
type EventOutcome string

const (
	OutcomeProcessed EventOutcome = "PROCESSED"
	OutcomeDuplicate EventOutcome = "DUPLICATE"
	OutcomeIgnored   EventOutcome = "IGNORED"
	OutcomeFailed    EventOutcome = "FAILED"
)

// Terminal reports whether the outcome ends the event's lifecycle. An
// empty outcome means the claim was persisted but the handler's result
// never was; like FAILED, it is reclaimable on redelivery.
func (o EventOutcome) Terminal() bool {
	switch o {
	case OutcomeProcessed, OutcomeDuplicate, OutcomeIgnored:
		return true
	}
	return false
}

// Event is the durable dedup record for an ingested provider event. The
// unique index on (tenant_id, provider_event_id) is what makes the
// pipeline exactly-once across restarts.
type Event struct {
	shared.BaseEntity
	TenantID        uuid.UUID
	ProviderEventID string
	Type            ProviderEventType
	Outcome         EventOutcome
	Error           string
	ReceivedAt      time.Time
	ProcessedAt     *time.Time
}

// NewEvent records the arrival of a provider event
func NewEvent(tenantID uuid.UUID, providerEventID string, eventType ProviderEventType) (*Event, error) {
	if providerEventID == "" {
		return nil, shared.NewDomainError("MISSING_EVENT_ID", "Provider event ID cannot be empty")
	}
	return &Event{
		BaseEntity:      shared.NewBaseEntity(),
		TenantID:        tenantID,
		ProviderEventID: providerEventID,
		Type:            eventType,
		ReceivedAt:      time.Now(),
	}, nil
}

// MarkProcessed records successful handling
func (e *Event) MarkProcessed() {
	now := time.Now()
	e.Outcome = OutcomeProcessed
	e.ProcessedAt = &now
	e.UpdatedAt = now
}

// MarkIgnored records an acknowledged event with no handler
func (e *Event) MarkIgnored() {
	now := time.Now()
	e.Outcome = OutcomeIgnored
	e.ProcessedAt = &now
	e.UpdatedAt = now
}

// MarkFailed records a handler error so the provider retries delivery
func (e *Event) MarkFailed(err error) {
	now := time.Now()
	e.Outcome = OutcomeFailed
	if err != nil {
		e.Error = err.Error()
	}
	e.UpdatedAt = now
}
