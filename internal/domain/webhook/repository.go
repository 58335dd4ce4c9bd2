package webhook

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventRepository persists inbound event dedup records. Create returns
// shared.ErrAlreadyProcessed when the (tenant, provider event id) pair
// already exists.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	Save(ctx context.Context, event *Event) error
	FindByProviderEventID(ctx context.Context, tenantID uuid.UUID, providerEventID string) (*Event, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// EndpointRepository persists tenant notification endpoints
type EndpointRepository interface {
	Create(ctx context.Context, endpoint *Endpoint) error
	Save(ctx context.Context, endpoint *Endpoint) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Endpoint, error)
	ListActive(ctx context.Context, tenantID uuid.UUID) ([]*Endpoint, error)
}

// DeliveryRepository persists outbound deliveries. ClaimDue atomically
// flips due rows to in_flight and returns only the rows this worker
// won.
type DeliveryRepository interface {
	Create(ctx context.Context, delivery *Delivery) error
	Save(ctx context.Context, delivery *Delivery) error
	FindByID(ctx context.Context, id uuid.UUID) (*Delivery, error)
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*Delivery, error)
	ListByEndpoint(ctx context.Context, tenantID, endpointID uuid.UUID, limit int) ([]*Delivery, error)
}
