package webhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/commerce/backend/internal/domain/webhook"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DispatchService fans business events out to subscribed tenant
// endpoints. Enqueue only records deliveries; the delivery worker
// performs the signed HTTP POSTs, so the triggering mutation never
// waits on the network.
type DispatchService struct {
	endpointRepo webhook.EndpointRepository
	deliveryRepo webhook.DeliveryRepository
	logger       *zap.Logger
}

// DispatchServiceConfig contains configuration for DispatchService
type DispatchServiceConfig struct {
	EndpointRepo webhook.EndpointRepository
	DeliveryRepo webhook.DeliveryRepository
	Logger       *zap.Logger
}

// NewDispatchService creates a new DispatchService
func NewDispatchService(cfg DispatchServiceConfig) *DispatchService {
	return &DispatchService{
		endpointRepo: cfg.EndpointRepo,
		deliveryRepo: cfg.DeliveryRepo,
		logger:       cfg.Logger,
	}
}

// outboundPayload is the envelope endpoints receive
type outboundPayload struct {
	ID        string `json:"id"`
	Event     string `json:"event"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// Enqueue creates one pending delivery per subscribed active endpoint
func (s *DispatchService) Enqueue(ctx context.Context, tenantID uuid.UUID, eventType webhook.OutboundEventType, data any) error {
	endpoints, err := s.endpointRepo.ListActive(ctx, tenantID)
	if err != nil {
		return err
	}

	for _, endpoint := range endpoints {
		if !endpoint.Subscribes(eventType) {
			continue
		}
		deliveryID := uuid.New()
		payload, err := json.Marshal(outboundPayload{
			ID:        deliveryID.String(),
			Event:     string(eventType),
			Timestamp: time.Now().Unix(),
			Data:      data,
		})
		if err != nil {
			return err
		}
		delivery, err := webhook.NewDelivery(tenantID, endpoint.ID, eventType, payload)
		if err != nil {
			return err
		}
		delivery.ID = deliveryID
		if err := s.deliveryRepo.Create(ctx, delivery); err != nil {
			return err
		}
		s.logger.Debug("Enqueued outbound delivery",
			zap.String("delivery_id", delivery.ID.String()),
			zap.String("endpoint_id", endpoint.ID.String()),
			zap.String("event", string(eventType)))
	}
	return nil
}

// Notify implements Notifier. Enqueue failures are logged and dropped
// so they never unwind the financial mutation that triggered them.
func (s *DispatchService) Notify(ctx context.Context, tenantID uuid.UUID, eventType webhook.OutboundEventType, data any) {
	if err := s.Enqueue(ctx, tenantID, eventType, data); err != nil {
		s.logger.Error("Failed to enqueue outbound notification",
			zap.String("event", string(eventType)),
			zap.Error(err))
	}
}

var _ Notifier = (*DispatchService)(nil)
