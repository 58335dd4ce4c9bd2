package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/commerce/backend/internal/domain/webhook"
	"github.com/commerce/backend/internal/infrastructure/signature"
	"go.uber.org/zap"
)

// DeliveryWorkerConfig holds configuration for the delivery worker
type DeliveryWorkerConfig struct {
	BatchSize      int
	PollInterval   time.Duration
	RequestTimeout time.Duration
}

// DefaultDeliveryWorkerConfig returns default configuration
func DefaultDeliveryWorkerConfig() DeliveryWorkerConfig {
	return DeliveryWorkerConfig{
		BatchSize:      50,
		PollInterval:   10 * time.Second,
		RequestTimeout: 10 * time.Second,
	}
}

// DeliveryWorker drains the outbound delivery backlog in the
// background. Each due delivery is claimed, POSTed to its endpoint
// with an HMAC signature and settled as succeeded or rescheduled with
// backoff. Ledger state is never touched here; a delivery that
// exhausts its attempts is only logged.
type DeliveryWorker struct {
	deliveryRepo webhook.DeliveryRepository
	endpointRepo webhook.EndpointRepository
	client       *http.Client
	config       DeliveryWorkerConfig
	logger       *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDeliveryWorker creates a new delivery worker
func NewDeliveryWorker(
	deliveryRepo webhook.DeliveryRepository,
	endpointRepo webhook.EndpointRepository,
	config DeliveryWorkerConfig,
	logger *zap.Logger,
) *DeliveryWorker {
	return &DeliveryWorker{
		deliveryRepo: deliveryRepo,
		endpointRepo: endpointRepo,
		client:       &http.Client{Timeout: config.RequestTimeout},
		config:       config,
		logger:       logger,
	}
}

// Start starts the background delivery loop
func (w *DeliveryWorker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.deliverLoop(ctx)

	w.logger.Info("delivery worker started",
		zap.Int("batch_size", w.config.BatchSize),
		zap.Duration("poll_interval", w.config.PollInterval),
	)
	return nil
}

// Stop gracefully stops the worker
func (w *DeliveryWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("delivery worker stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *DeliveryWorker) deliverLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch claims and attempts one batch of due deliveries.
// Exported so the cron surface can force a drain without waiting for
// the next tick.
func (w *DeliveryWorker) ProcessBatch(ctx context.Context) {
	claimed, err := w.deliveryRepo.ClaimDue(ctx, time.Now(), w.config.BatchSize)
	if err != nil {
		w.logger.Error("failed to claim due deliveries", zap.Error(err))
		return
	}

	for _, delivery := range claimed {
		select {
		case <-ctx.Done():
			return
		default:
		}
		w.attempt(ctx, delivery)
	}
}

// attempt performs one signed POST for an already claimed delivery
func (w *DeliveryWorker) attempt(ctx context.Context, delivery *webhook.Delivery) {
	endpoint, err := w.endpointRepo.FindByID(ctx, delivery.TenantID, delivery.EndpointID)
	if err != nil {
		w.settleFailure(ctx, delivery, 0, fmt.Sprintf("endpoint lookup: %v", err))
		return
	}

	code, err := w.post(ctx, endpoint, delivery)
	if err != nil {
		w.settleFailure(ctx, delivery, code, err.Error())
		return
	}

	if err := delivery.MarkSucceeded(code); err != nil {
		w.logger.Error("delivery in unexpected state",
			zap.String("delivery_id", delivery.ID.String()),
			zap.Error(err))
		return
	}
	if err := w.deliveryRepo.Save(ctx, delivery); err != nil {
		w.logger.Error("failed to persist delivery success",
			zap.String("delivery_id", delivery.ID.String()),
			zap.Error(err))
		return
	}
	w.logger.Debug("delivered outbound webhook",
		zap.String("delivery_id", delivery.ID.String()),
		zap.String("event", string(delivery.EventType)),
		zap.Int("http_code", code))
}

// post sends the payload with the signature headers. Non-2xx responses
// count as failed attempts.
func (w *DeliveryWorker) post(ctx context.Context, endpoint *webhook.Endpoint, delivery *webhook.Delivery) (int, error) {
	timestamp := time.Now().Unix()
	sig := signature.Sign(endpoint.Secret, timestamp, delivery.Payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader(delivery.Payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Id", delivery.ID.String())
	req.Header.Set("X-Webhook-Timestamp", fmt.Sprintf("%d", timestamp))
	req.Header.Set("X-Webhook-Signature", sig)

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("endpoint returned %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func (w *DeliveryWorker) settleFailure(ctx context.Context, delivery *webhook.Delivery, code int, cause string) {
	if err := delivery.MarkFailed(code, cause); err != nil {
		w.logger.Error("delivery in unexpected state",
			zap.String("delivery_id", delivery.ID.String()),
			zap.Error(err))
		return
	}
	if delivery.Status == webhook.DeliveryStatusExhausted {
		w.logger.Warn("outbound delivery exhausted",
			zap.String("delivery_id", delivery.ID.String()),
			zap.String("event", string(delivery.EventType)),
			zap.String("last_error", cause))
	}
	if err := w.deliveryRepo.Save(ctx, delivery); err != nil {
		w.logger.Error("failed to persist delivery failure",
			zap.String("delivery_id", delivery.ID.String()),
			zap.Error(err))
	}
}
