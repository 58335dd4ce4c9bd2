package handler

import (
	"time"

	"github.com/commerce/backend/internal/domain/billing"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// InvoiceHandler handles invoice-related API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceRepo billing.InvoiceRepository
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceRepo billing.InvoiceRepository) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceRepo: invoiceRepo,
	}
}

// InvoiceListFilter represents filter options for the invoice list
// @Description Filter options for listing invoices
type InvoiceListFilter struct {
	Status   string `form:"status" binding:"omitempty,oneof=DRAFT PENDING PAID OVERDUE CANCELLED REFUNDED" example:"PENDING"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=created_at due_date number total" example:"due_date"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc" example:"desc"`
	Page     int    `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
}

// LineItemResponse represents an invoice line item in API responses
// @Description Invoice line item response
type LineItemResponse struct {
	Description string  `json:"description" example:"Pro plan, monthly"`
	Quantity    int     `json:"quantity" example:"1"`
	UnitPrice   float64 `json:"unit_price" example:"29.00"`
	Amount      float64 `json:"amount" example:"29.00"`
}

// InvoiceResponse represents an invoice in API responses
// @Description Invoice response
type InvoiceResponse struct {
	ID             string             `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Number         string             `json:"number" example:"INV-202608-42"`
	SubscriptionID *string            `json:"subscription_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440003"`
	Status         string             `json:"status" example:"PENDING"`
	LineItems      []LineItemResponse `json:"line_items"`
	Total          float64            `json:"total" example:"29.00"`
	Currency       string             `json:"currency" example:"USD"`
	PeriodStart    string             `json:"period_start" example:"2026-08-01T00:00:00Z"`
	PeriodEnd      string             `json:"period_end" example:"2026-09-01T00:00:00Z"`
	DueDate        string             `json:"due_date" example:"2026-09-08T00:00:00Z"`
	PaidAt         *string            `json:"paid_at,omitempty" example:"2026-08-02T10:00:00Z"`
	CreatedAt      string             `json:"created_at" example:"2026-08-01T00:00:00Z"`
}

// List godoc
// @ID           listInvoices
// @Summary      List the caller's invoices
// @Description  List invoices for the authenticated user with optional status filtering
// @Tags         invoices
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        status query string false "Invoice status" Enums(DRAFT, PENDING, PAID, OVERDUE, CANCELLED, REFUNDED)
// @Param        order_by query string false "Sort field" Enums(created_at, due_date, number, total)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]InvoiceResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity required")
		return
	}

	var filter InvoiceListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	sharedFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Filters:  map[string]any{},
	}
	if filter.Status != "" {
		sharedFilter.Filters["status"] = filter.Status
	}

	page, err := h.invoiceRepo.ListByAccount(c.Request.Context(), tenantID, userID, sharedFilter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]InvoiceResponse, 0, len(page.Items))
	for _, invoice := range page.Items {
		responses = append(responses, invoiceToResponse(invoice))
	}

	h.SuccessWithMeta(c, responses, page.Total, filter.Page, filter.PageSize)
}

func invoiceToResponse(inv *billing.Invoice) InvoiceResponse {
	items := make([]LineItemResponse, 0, len(inv.LineItems))
	for _, item := range inv.LineItems {
		items = append(items, LineItemResponse{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.InexactFloat64(),
			Amount:      item.Total.InexactFloat64(),
		})
	}

	resp := InvoiceResponse{
		ID:          inv.ID.String(),
		Number:      inv.Number,
		Status:      string(inv.Status),
		LineItems:   items,
		Total:       inv.Total.InexactFloat64(),
		Currency:    string(inv.Currency),
		PeriodStart: inv.PeriodStart.Format(time.RFC3339),
		PeriodEnd:   inv.PeriodEnd.Format(time.RFC3339),
		DueDate:     inv.DueDate.Format(time.RFC3339),
		CreatedAt:   inv.CreatedAt.Format(time.RFC3339),
	}
	if inv.SubscriptionID != nil {
		sub := inv.SubscriptionID.String()
		resp.SubscriptionID = &sub
	}
	if inv.PaidAt != nil {
		paid := inv.PaidAt.Format(time.RFC3339)
		resp.PaidAt = &paid
	}
	return resp
}
