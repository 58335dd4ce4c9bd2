package webhook

import (
	"context"
	"errors"
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/webhook"
	"github.com/commerce/backend/internal/infrastructure/signature"
	"github.com/commerce/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler reconciles one provider event type against the ledger
type Handler interface {
	EventType() webhook.ProviderEventType
	Handle(ctx context.Context, tenantID uuid.UUID, event *webhook.ProviderEvent) error
}

// IngestService is the inbound gateway for provider events. It verifies
// the signature, dedups by provider event id, and dispatches to the
// registered handler. Distinct events process fully in parallel; each
// event id lands at most one ledger mutation.
type IngestService struct {
	secret     string
	skewWindow time.Duration
	eventRepo  webhook.EventRepository
	idemStore  shared.IdempotencyStore
	handlers   map[webhook.ProviderEventType]Handler
	logger     *zap.Logger
	metrics    *telemetry.BusinessMetrics
}

// IngestServiceConfig contains configuration for IngestService
type IngestServiceConfig struct {
	Secret     string
	SkewWindow time.Duration
	EventRepo  webhook.EventRepository
	IdemStore  shared.IdempotencyStore
	Logger     *zap.Logger
	// Metrics is optional; ingested events are counted per outcome when set
	Metrics *telemetry.BusinessMetrics
}

// NewIngestService creates a new IngestService
func NewIngestService(cfg IngestServiceConfig) *IngestService {
	skew := cfg.SkewWindow
	if skew == 0 {
		skew = signature.DefaultSkewWindow
	}
	return &IngestService{
		secret:     cfg.Secret,
		skewWindow: skew,
		eventRepo:  cfg.EventRepo,
		idemStore:  cfg.IdemStore,
		handlers:   make(map[webhook.ProviderEventType]Handler),
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// Register wires a handler for its event type
func (s *IngestService) Register(handler Handler) {
	s.handlers[handler.EventType()] = handler
}

// IngestResult reports how an event was disposed of
type IngestResult struct {
	EventID string               `json:"event_id"`
	Type    string               `json:"event_type"`
	Outcome webhook.EventOutcome `json:"outcome"`
}

// Process verifies, dedups and dispatches one provider delivery.
// Returning an error signals the provider to redeliver; duplicates and
// unknown types acknowledge cleanly.
func (s *IngestService) Process(ctx context.Context, tenantID uuid.UUID, payload []byte, sigHeader, tsHeader string) (*IngestResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ingest", "process_event")
	defer span.End()

	ts, err := signature.ParseTimestamp(tsHeader)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := signature.Verify(s.secret, sigHeader, ts, payload, s.skewWindow, time.Now()); err != nil {
		s.logger.Warn("Rejected provider webhook",
			zap.String("reason", "signature verification failed"))
		telemetry.RecordError(span, err)
		return nil, err
	}

	event, err := webhook.ParseProviderEvent(payload)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrProviderEventID, event.ID,
		telemetry.SpanAttrEventType, string(event.Type),
	)

	if s.alreadySeen(ctx, tenantID, event.ID) {
		s.logger.Info("Skipped duplicate provider event",
			zap.String("event_id", event.ID))
		return s.finish(ctx, tenantID, event, webhook.OutcomeDuplicate), nil
	}

	record, duplicate, err := s.claimEvent(ctx, tenantID, event)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if duplicate {
		return s.finish(ctx, tenantID, event, webhook.OutcomeDuplicate), nil
	}

	handler, known := s.handlers[event.Type]
	if !known {
		s.logger.Info("Acknowledged unknown provider event type",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
		record.MarkIgnored()
		if err := s.eventRepo.Save(ctx, record); err != nil {
			return nil, err
		}
		return s.finish(ctx, tenantID, event, webhook.OutcomeIgnored), nil
	}

	var handleErr error
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("reconcile_event", map[string]string{"event_type": string(event.Type)}), func(c context.Context) {
		handleErr = handler.Handle(c, tenantID, event)
	})
	if handleErr != nil {
		s.logger.Error("Failed to process provider event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(handleErr))
		telemetry.RecordError(span, handleErr)
		record.MarkFailed(handleErr)
		if saveErr := s.eventRepo.Save(ctx, record); saveErr != nil {
			s.logger.Error("Failed to record event failure", zap.Error(saveErr))
		}
		if s.metrics != nil {
			s.metrics.RecordProviderEvent(ctx, tenantID, string(event.Type), string(webhook.OutcomeFailed))
		}
		return nil, handleErr
	}

	record.MarkProcessed()
	if err := s.eventRepo.Save(ctx, record); err != nil {
		return nil, err
	}
	s.markSeen(ctx, tenantID, event.ID)

	s.logger.Info("Processed provider event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))
	return s.finish(ctx, tenantID, event, webhook.OutcomeProcessed), nil
}

// finish stamps the outcome on the active span and counter before the
// delivery is acknowledged.
func (s *IngestService) finish(ctx context.Context, tenantID uuid.UUID, event *webhook.ProviderEvent, outcome webhook.EventOutcome) *IngestResult {
	telemetry.SetAttribute(telemetry.SpanFromContext(ctx), telemetry.SpanAttrEventOutcome, string(outcome))
	if s.metrics != nil {
		s.metrics.RecordProviderEvent(ctx, tenantID, string(event.Type), string(outcome))
	}
	return &IngestResult{EventID: event.ID, Type: string(event.Type), Outcome: outcome}
}

// claimEvent inserts the dedup record, or resolves what an earlier
// delivery did with it. A record without a terminal outcome, whether a
// recorded failure or a claim orphaned by a crash before its outcome
// was saved, is reclaimed so the provider's redelivery can retry the
// handler.
func (s *IngestService) claimEvent(ctx context.Context, tenantID uuid.UUID, event *webhook.ProviderEvent) (*webhook.Event, bool, error) {
	existing, err := s.eventRepo.FindByProviderEventID(ctx, tenantID, event.ID)
	if err == nil {
		if existing.Outcome.Terminal() {
			return existing, true, nil
		}
		return existing, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}

	record, err := webhook.NewEvent(tenantID, event.ID, event.Type)
	if err != nil {
		return nil, false, err
	}
	if err := s.eventRepo.Create(ctx, record); err != nil {
		if errors.Is(err, shared.ErrAlreadyProcessed) {
			return record, true, nil
		}
		return nil, false, err
	}
	return record, false, nil
}

// alreadySeen is the cache fast path. Store errors degrade to the
// durable dedup table.
func (s *IngestService) alreadySeen(ctx context.Context, tenantID uuid.UUID, eventID string) bool {
	if s.idemStore == nil {
		return false
	}
	seen, err := s.idemStore.IsProcessed(ctx, idemKey(tenantID, eventID))
	if err != nil {
		s.logger.Warn("Idempotency store lookup failed, falling back to durable dedup", zap.Error(err))
		return false
	}
	return seen
}

func (s *IngestService) markSeen(ctx context.Context, tenantID uuid.UUID, eventID string) {
	if s.idemStore == nil {
		return
	}
	if _, err := s.idemStore.MarkProcessed(ctx, idemKey(tenantID, eventID), shared.DefaultIdempotencyConfig().TTL); err != nil {
		s.logger.Warn("Idempotency store write failed", zap.Error(err))
	}
}

func idemKey(tenantID uuid.UUID, eventID string) string {
	return tenantID.String() + ":" + eventID
}
