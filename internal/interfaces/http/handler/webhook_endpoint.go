package handler

import (
	"github.com/commerce/backend/internal/domain/webhook"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WebhookEndpointHandler manages outbound webhook endpoint registrations
type WebhookEndpointHandler struct {
	BaseHandler
	endpointRepo webhook.EndpointRepository
}

// NewWebhookEndpointHandler creates a new WebhookEndpointHandler
func NewWebhookEndpointHandler(endpointRepo webhook.EndpointRepository) *WebhookEndpointHandler {
	return &WebhookEndpointHandler{
		endpointRepo: endpointRepo,
	}
}

// CreateEndpointRequest represents an endpoint registration
// @Description Request body for registering a webhook endpoint
type CreateEndpointRequest struct {
	URL         string   `json:"url" binding:"required,url" example:"https://example.com/hooks/billing"`
	Secret      string   `json:"secret" binding:"required,min=16" example:"whsec_0123456789abcdef"`
	Events      []string `json:"events" binding:"required,min=1" example:"wallet.credited"`
	Description string   `json:"description" binding:"max=500" example:"Billing events for the storefront"`
}

// EndpointResponse represents a webhook endpoint in API responses.
// The secret is never echoed back.
// @Description Webhook endpoint response
type EndpointResponse struct {
	ID          string   `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	URL         string   `json:"url" example:"https://example.com/hooks/billing"`
	Events      []string `json:"events" example:"wallet.credited"`
	Active      bool     `json:"active" example:"true"`
	Description string   `json:"description,omitempty" example:"Billing events for the storefront"`
}

// Create godoc
// @ID           createWebhookEndpoint
// @Summary      Register a webhook endpoint
// @Description  Register an endpoint to receive outbound event deliveries
// @Tags         webhook-endpoints
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        request body CreateEndpointRequest true "Endpoint definition"
// @Success      201 {object} APIResponse[EndpointResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /webhook-endpoints [post]
func (h *WebhookEndpointHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req CreateEndpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	events := make([]webhook.OutboundEventType, 0, len(req.Events))
	for _, event := range req.Events {
		events = append(events, webhook.OutboundEventType(event))
	}

	endpoint, err := webhook.NewEndpoint(tenantID, req.URL, req.Secret, events)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	endpoint.Description = req.Description

	if err := h.endpointRepo.Create(c.Request.Context(), endpoint); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, endpointToResponse(endpoint))
}

// List godoc
// @ID           listWebhookEndpoints
// @Summary      List active webhook endpoints
// @Description  List the tenant's active webhook endpoints
// @Tags         webhook-endpoints
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Success      200 {object} APIResponse[[]EndpointResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /webhook-endpoints [get]
func (h *WebhookEndpointHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	endpoints, err := h.endpointRepo.ListActive(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]EndpointResponse, 0, len(endpoints))
	for _, endpoint := range endpoints {
		responses = append(responses, endpointToResponse(endpoint))
	}

	h.Success(c, responses)
}

// Deactivate godoc
// @ID           deactivateWebhookEndpoint
// @Summary      Deactivate a webhook endpoint
// @Description  Stop deliveries to an endpoint without deleting its history
// @Tags         webhook-endpoints
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Endpoint ID" format(uuid)
// @Success      204
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /webhook-endpoints/{id} [delete]
func (h *WebhookEndpointHandler) Deactivate(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	endpointID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid endpoint ID format")
		return
	}

	endpoint, err := h.endpointRepo.FindByID(c.Request.Context(), tenantID, endpointID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	endpoint.Deactivate()
	if err := h.endpointRepo.Save(c.Request.Context(), endpoint); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

func endpointToResponse(e *webhook.Endpoint) EndpointResponse {
	events := make([]string, 0, len(e.Events))
	for _, event := range e.Events {
		events = append(events, string(event))
	}
	return EndpointResponse{
		ID:          e.ID.String(),
		URL:         e.URL,
		Events:      events,
		Active:      e.Active,
		Description: e.Description,
	}
}
