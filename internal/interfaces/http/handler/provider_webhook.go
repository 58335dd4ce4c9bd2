package handler

import (
	"io"

	webhookapp "github.com/commerce/backend/internal/application/webhook"
	"github.com/gin-gonic/gin"
)

// ProviderWebhookHandler receives inbound payment provider webhooks.
// The provider retries on any non-2xx response, so the handler only
// returns 200 once the event has been durably recorded. Duplicates
// acknowledge cleanly.
type ProviderWebhookHandler struct {
	BaseHandler
	ingest *webhookapp.IngestService
}

// NewProviderWebhookHandler creates a new ProviderWebhookHandler
func NewProviderWebhookHandler(ingest *webhookapp.IngestService) *ProviderWebhookHandler {
	return &ProviderWebhookHandler{
		ingest: ingest,
	}
}

// Receive godoc
// @ID           receiveProviderWebhook
// @Summary      Receive a payment provider webhook
// @Description  Verify, dedup and reconcile one provider event delivery
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        X-Provider-Signature header string true "HMAC-SHA256 signature over timestamp and body"
// @Param        X-Provider-Timestamp header string true "Unix timestamp the signature covers"
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Success      200 {object} APIResponse[webhookapp.IngestResult]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /webhooks/provider [post]
func (h *ProviderWebhookHandler) Receive(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}

	result, err := h.ingest.Process(
		c.Request.Context(),
		tenantID,
		payload,
		c.GetHeader("X-Provider-Signature"),
		c.GetHeader("X-Provider-Timestamp"),
	)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
