package webhook

import (
	"encoding/json"
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// DeliveryStatus is the state of an outbound delivery attempt chain
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "PENDING"
	DeliveryStatusInFlight  DeliveryStatus = "IN_FLIGHT"
	DeliveryStatusSucceeded DeliveryStatus = "SUCCEEDED"
	DeliveryStatusFailed    DeliveryStatus = "FAILED"
	DeliveryStatusExhausted DeliveryStatus = "EXHAUSTED"
)

const (
	// DefaultMaxAttempts bounds the retry chain per delivery
	DefaultMaxAttempts = 5
	baseRetryDelay     = 30 * time.Second
)

// Delivery is one outbound notification to one endpoint. It survives
// restarts in the database; the dispatch worker drives it through
// pending, in_flight and a terminal state.
type Delivery struct {
	shared.BaseEntity
	TenantID     uuid.UUID
	EndpointID   uuid.UUID
	EventType    OutboundEventType
	Payload      json.RawMessage
	Status       DeliveryStatus
	Attempts     int
	MaxAttempts  int
	NextAttempt  time.Time
	LastError    string
	LastHTTPCode int
	DeliveredAt  *time.Time
}

// NewDelivery enqueues a notification for an endpoint
func NewDelivery(tenantID, endpointID uuid.UUID, eventType OutboundEventType, payload json.RawMessage) (*Delivery, error) {
	if endpointID == uuid.Nil {
		return nil, shared.ErrValidationFailed
	}
	if len(payload) == 0 {
		return nil, shared.NewDomainError("EMPTY_PAYLOAD", "Delivery payload cannot be empty")
	}
	return &Delivery{
		BaseEntity:  shared.NewBaseEntity(),
		TenantID:    tenantID,
		EndpointID:  endpointID,
		EventType:   eventType,
		Payload:     payload,
		Status:      DeliveryStatusPending,
		MaxAttempts: DefaultMaxAttempts,
		NextAttempt: time.Now(),
	}, nil
}

// IsDue reports whether the worker should attempt the delivery now
func (d *Delivery) IsDue(now time.Time) bool {
	switch d.Status {
	case DeliveryStatusPending, DeliveryStatusFailed:
		return !now.Before(d.NextAttempt)
	}
	return false
}

// MarkInFlight claims the delivery for an attempt. The repository pairs
// this with a conditional update so two workers cannot claim the same
// row.
func (d *Delivery) MarkInFlight() error {
	if d.Status != DeliveryStatusPending && d.Status != DeliveryStatusFailed {
		return shared.ErrInvalidState
	}
	d.Status = DeliveryStatusInFlight
	d.Attempts++
	d.UpdatedAt = time.Now()
	return nil
}

// MarkSucceeded records a 2xx response
func (d *Delivery) MarkSucceeded(httpCode int) error {
	if d.Status != DeliveryStatusInFlight {
		return shared.ErrInvalidState
	}
	now := time.Now()
	d.Status = DeliveryStatusSucceeded
	d.LastHTTPCode = httpCode
	d.LastError = ""
	d.DeliveredAt = &now
	d.UpdatedAt = now
	return nil
}

// MarkFailed records a failed attempt and schedules the retry with
// exponential backoff, or exhausts the delivery once attempts run out.
func (d *Delivery) MarkFailed(httpCode int, cause string) error {
	if d.Status != DeliveryStatusInFlight {
		return shared.ErrInvalidState
	}
	d.LastHTTPCode = httpCode
	d.LastError = cause
	d.UpdatedAt = time.Now()
	if d.Attempts >= d.MaxAttempts {
		d.Status = DeliveryStatusExhausted
		return nil
	}
	d.Status = DeliveryStatusFailed
	d.NextAttempt = time.Now().Add(backoffDelay(d.Attempts))
	return nil
}

// IsTerminal reports whether the worker is done with the delivery
func (d *Delivery) IsTerminal() bool {
	return d.Status == DeliveryStatusSucceeded || d.Status == DeliveryStatusExhausted
}

// backoffDelay doubles per attempt: 30s, 1m, 2m, 4m, ...
func backoffDelay(attempt int) time.Duration {
	delay := baseRetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay > time.Hour {
			return time.Hour
		}
	}
	return delay
}
