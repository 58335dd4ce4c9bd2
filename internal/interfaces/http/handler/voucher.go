package handler

import (
	"time"

	voucherapp "github.com/commerce/backend/internal/application/voucher"
	"github.com/commerce/backend/internal/domain/billing"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// VoucherHandler handles voucher-related API endpoints
type VoucherHandler struct {
	BaseHandler
	voucherService *voucherapp.Service
	importService  *voucherapp.ImportService
	voucherRepo    billing.VoucherRepository
}

// NewVoucherHandler creates a new VoucherHandler
func NewVoucherHandler(voucherService *voucherapp.Service, importService *voucherapp.ImportService, voucherRepo billing.VoucherRepository) *VoucherHandler {
	return &VoucherHandler{
		voucherService: voucherService,
		importService:  importService,
		voucherRepo:    voucherRepo,
	}
}

// VoucherCodeRequest carries a voucher code for validation or redemption
// @Description Request body carrying a voucher code
type VoucherCodeRequest struct {
	Code string `json:"code" binding:"required,min=1,max=64" example:"WELCOME10"`
}

// CreateVoucherRequest represents an administrative voucher creation
// @Description Request body for creating a voucher
type CreateVoucherRequest struct {
	Code      string  `json:"code" binding:"required,min=1,max=64" example:"WELCOME10"`
	Type      string  `json:"type" binding:"required,oneof=BONUS PROMO" example:"BONUS"`
	Amount    float64 `json:"amount" binding:"required,gt=0" example:"10.00"`
	Currency  string  `json:"currency" binding:"omitempty,len=3" example:"USD"`
	MaxUses   int     `json:"max_uses" binding:"required,gt=0" example:"100"`
	ExpiresAt string  `json:"expires_at" binding:"omitempty" example:"2026-12-31T23:59:59Z"`
}

// VoucherResponse represents a voucher in API responses
// @Description Voucher response
type VoucherResponse struct {
	ID            string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Code          string  `json:"code" example:"WELCOME10"`
	Type          string  `json:"type" example:"BONUS"`
	Amount        float64 `json:"amount" example:"10.00"`
	Currency      string  `json:"currency" example:"USD"`
	Status        string  `json:"status" example:"ACTIVE"`
	MaxUses       int     `json:"max_uses" example:"100"`
	UsedCount     int     `json:"used_count" example:"3"`
	RemainingUses int     `json:"remaining_uses" example:"97"`
	ExpiresAt     *string `json:"expires_at,omitempty" example:"2026-12-31T23:59:59Z"`
}

// ValidationResponse reports whether a code is redeemable
// @Description Voucher validation response
type ValidationResponse struct {
	Valid   bool    `json:"valid" example:"true"`
	Reason  string  `json:"reason,omitempty" example:"VOUCHER_EXPIRED"`
	Code    string  `json:"code" example:"WELCOME10"`
	Amount  float64 `json:"amount,omitempty" example:"10.00"`
	Segment string  `json:"segment,omitempty" example:"BONUS"`
}

// Validate godoc
// @ID           validateVoucher
// @Summary      Validate a voucher code
// @Description  Check whether a code is redeemable without consuming it
// @Tags         vouchers
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        request body VoucherCodeRequest true "Voucher code"
// @Success      200 {object} APIResponse[ValidationResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /vouchers/validate [post]
func (h *VoucherHandler) Validate(c *gin.Context) {
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

	var req VoucherCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.voucherService.Validate(c.Request.Context(), tenantID, userID, req.Code)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ValidationResponse{
		Valid:   result.Valid,
		Reason:  result.Reason,
		Code:    result.Code,
		Amount:  result.Amount.InexactFloat64(),
		Segment: string(result.Segment),
	})
}

// Redeem godoc
// @ID           redeemVoucher
// @Summary      Redeem a voucher code
// @Description  Consume one use of a voucher and credit the caller's wallet
// @Tags         vouchers
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        request body VoucherCodeRequest true "Voucher code"
// @Success      200 {object} APIResponse[TransactionResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /vouchers/redeem [post]
func (h *VoucherHandler) Redeem(c *gin.Context) {
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

	var req VoucherCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.voucherService.Redeem(c.Request.Context(), tenantID, userID, req.Code)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{
		"voucher":     voucherToResponse(result.Voucher),
		"wallet":      walletToResponse(result.Wallet),
		"transaction": transactionToResponse(result.Transaction),
	})
}

// Create godoc
// @ID           createVoucher
// @Summary      Create a voucher
// @Description  Administratively create a voucher code
// @Tags         vouchers
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        request body CreateVoucherRequest true "Voucher definition"
// @Success      201 {object} APIResponse[VoucherResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /vouchers [post]
func (h *VoucherHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req CreateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	currency := valueobject.USD
	if req.Currency != "" {
		currency = valueobject.Currency(req.Currency)
	}

	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			h.BadRequest(c, "Invalid expires_at format, expected RFC3339")
			return
		}
		expiresAt = &parsed
	}

	voucher, err := billing.NewVoucher(
		tenantID,
		req.Code,
		billing.VoucherType(req.Type),
		decimal.NewFromFloat(req.Amount),
		currency,
		req.MaxUses,
		expiresAt,
	)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if err := h.voucherRepo.Create(c.Request.Context(), voucher); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, voucherToResponse(voucher))
}

func voucherToResponse(v *billing.Voucher) VoucherResponse {
	resp := VoucherResponse{
		ID:            v.ID.String(),
		Code:          v.Code,
		Type:          string(v.Type),
		Amount:        v.Amount.InexactFloat64(),
		Currency:      string(v.Currency),
		Status:        string(v.Status),
		MaxUses:       v.MaxUses,
		UsedCount:     v.UsedCount,
		RemainingUses: v.RemainingUses,
	}
	if v.ExpiresAt != nil {
		expires := v.ExpiresAt.Format(time.RFC3339)
		resp.ExpiresAt = &expires
	}
	return resp
}
