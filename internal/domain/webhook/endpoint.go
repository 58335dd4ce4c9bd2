package webhook

import (
	"net/url"
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// OutboundEventType enumerates the notifications we publish to tenant
// endpoints
type OutboundEventType string

const (
	OutboundWalletCredited      OutboundEventType = "wallet.credited"
	OutboundWalletDebited       OutboundEventType = "wallet.debited"
	OutboundInvoicePaid         OutboundEventType = "invoice.paid"
	OutboundInvoiceOverdue      OutboundEventType = "invoice.overdue"
	OutboundSubscriptionExpired OutboundEventType = "subscription.expired"
	OutboundVoucherRedeemed     OutboundEventType = "voucher.redeemed"
)

// Endpoint is a tenant-registered URL that receives signed outbound
// notifications. Secret signs each delivery; Events filters which
// notifications the endpoint subscribes to (empty means all).
type Endpoint struct {
	shared.TenantAggregateRoot
	URL         string
	Secret      string
	Events      []OutboundEventType
	Active      bool
	Description string
}

// NewEndpoint registers an active endpoint
func NewEndpoint(tenantID uuid.UUID, rawURL, secret string, events []OutboundEventType) (*Endpoint, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme != "https" && parsed.Scheme != "http" || parsed.Host == "" {
		return nil, shared.NewDomainError("INVALID_URL", "Endpoint URL must be an absolute http(s) URL")
	}
	if len(secret) < 16 {
		return nil, shared.NewDomainError("WEAK_SECRET", "Endpoint secret must be at least 16 characters")
	}
	return &Endpoint{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		URL:                 rawURL,
		Secret:              secret,
		Events:              events,
		Active:              true,
	}, nil
}

// Subscribes reports whether the endpoint wants the given event type
func (e *Endpoint) Subscribes(eventType OutboundEventType) bool {
	if !e.Active {
		return false
	}
	if len(e.Events) == 0 {
		return true
	}
	for _, t := range e.Events {
		if t == eventType {
			return true
		}
	}
	return false
}

// Deactivate stops deliveries without losing history
func (e *Endpoint) Deactivate() {
	e.Active = false
	e.UpdatedAt = time.Now()
}
