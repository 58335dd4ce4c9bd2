package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	webhookapp "github.com/commerce/backend/internal/application/webhook"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/webhook"
	"github.com/commerce/backend/internal/infrastructure/signature"
	"github.com/commerce/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_test_0123456789abcdef"

// mockEventRepository is a mock implementation of webhook.EventRepository
type mockEventRepository struct {
	events map[string]*webhook.Event
}

func newMockEventRepository() *mockEventRepository {
	return &mockEventRepository{events: make(map[string]*webhook.Event)}
}

func (m *mockEventRepository) Create(ctx context.Context, event *webhook.Event) error {
	key := event.TenantID.String() + ":" + event.ProviderEventID
	if _, exists := m.events[key]; exists {
		return shared.ErrAlreadyProcessed
	}
	m.events[key] = event
	return nil
}

func (m *mockEventRepository) Save(ctx context.Context, event *webhook.Event) error {
	m.events[event.TenantID.String()+":"+event.ProviderEventID] = event
	return nil
}

func (m *mockEventRepository) FindByProviderEventID(ctx context.Context, tenantID uuid.UUID, providerEventID string) (*webhook.Event, error) {
	if event, ok := m.events[tenantID.String()+":"+providerEventID]; ok {
		return event, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func newIngestTestHandler(repo *mockEventRepository) *ProviderWebhookHandler {
	ingest := webhookapp.NewIngestService(webhookapp.IngestServiceConfig{
		Secret:    testWebhookSecret,
		EventRepo: repo,
		Logger:    zap.NewNop(),
	})
	return NewProviderWebhookHandler(ingest)
}

func signedWebhookRequest(t *testing.T, payload []byte) *http.Request {
	t.Helper()
	ts := time.Now().Unix()
	req, _ := http.NewRequest(http.MethodPost, "/webhooks/provider", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Provider-Timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("X-Provider-Signature", signature.Sign(testWebhookSecret, ts, payload))
	return req
}

func TestProviderWebhookHandler_AcknowledgesUnknownEventType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newIngestTestHandler(newMockEventRepository())

	payload := []byte(`{"id":"evt_001","type":"something.else","timestamp":1756720000,"data":{}}`)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = signedWebhookRequest(t, payload)

	h.Receive(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "evt_001", data["event_id"])
	assert.Equal(t, string(webhook.OutcomeIgnored), data["outcome"])
}

func TestProviderWebhookHandler_DuplicateAcknowledgesCleanly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newMockEventRepository()
	h := newIngestTestHandler(repo)

	payload := []byte(`{"id":"evt_dup","type":"something.else","timestamp":1756720000,"data":{}}`)

	for i, wantOutcome := range []webhook.EventOutcome{webhook.OutcomeIgnored, webhook.OutcomeDuplicate} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = signedWebhookRequest(t, payload)

		h.Receive(c)

		assert.Equal(t, http.StatusOK, w.Code, "delivery %d", i)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, string(wantOutcome), data["outcome"], "delivery %d", i)
	}
}

func TestProviderWebhookHandler_RejectsBadSignature(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newIngestTestHandler(newMockEventRepository())

	payload := []byte(`{"id":"evt_002","type":"deposit.completed","timestamp":1756720000,"data":{}}`)
	ts := time.Now().Unix()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/webhooks/provider", bytes.NewReader(payload))
	c.Request.Header.Set("X-Provider-Timestamp", strconv.FormatInt(ts, 10))
	c.Request.Header.Set("X-Provider-Signature", "deadbeef")

	h.Receive(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProviderWebhookHandler_RejectsStaleTimestamp(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newIngestTestHandler(newMockEventRepository())

	payload := []byte(`{"id":"evt_003","type":"deposit.completed","timestamp":1756720000,"data":{}}`)
	stale := time.Now().Add(-time.Hour).Unix()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/webhooks/provider", bytes.NewReader(payload))
	c.Request.Header.Set("X-Provider-Timestamp", strconv.FormatInt(stale, 10))
	c.Request.Header.Set("X-Provider-Signature", signature.Sign(testWebhookSecret, stale, payload))

	h.Receive(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProviderWebhookHandler_RejectsMalformedPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newIngestTestHandler(newMockEventRepository())

	for _, payload := range [][]byte{
		[]byte(`not json`),
		[]byte(`{"type":"deposit.completed"}`),
		[]byte(fmt.Sprintf(`{"id":"evt_004","timestamp":%d}`, time.Now().Unix())),
	} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = signedWebhookRequest(t, payload)

		h.Receive(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}
