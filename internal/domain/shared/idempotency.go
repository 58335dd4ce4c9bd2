package shared

import (
	"context"
	"time"
)

// IdempotencyStore stores processed event IDs to short-circuit duplicate
// deliveries before they reach the durable dedup table. It is a fast path
// only: the WebhookEvent record remains the source of truth.
type IdempotencyStore interface {
	// MarkProcessed marks an event as processed with a TTL.
	// Returns true if the event was newly marked, false if already present.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed checks if an event has already been processed
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for the fast-path dedup cache
type IdempotencyConfig struct {
	// TTL is the time-to-live for cached event IDs
	TTL time.Duration

	// Enabled determines whether the fast path is consulted at all
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
