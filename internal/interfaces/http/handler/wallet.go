package handler

import (
	"time"

	walletapp "github.com/commerce/backend/internal/application/wallet"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/commerce/backend/internal/domain/wallet"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletHandler handles wallet-related API endpoints
type WalletHandler struct {
	BaseHandler
	ledger *walletapp.LedgerService
}

// NewWalletHandler creates a new WalletHandler
func NewWalletHandler(ledger *walletapp.LedgerService) *WalletHandler {
	return &WalletHandler{
		ledger: ledger,
	}
}

// WalletResponse represents a wallet in API responses
// @Description Wallet balance response with per-segment breakdown
type WalletResponse struct {
	ID          string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	UserID      string  `json:"user_id" example:"550e8400-e29b-41d4-a716-446655440002"`
	Currency    string  `json:"currency" example:"USD"`
	Primary     float64 `json:"primary" example:"100.00"`
	Bonus       float64 `json:"bonus" example:"10.00"`
	Promotional float64 `json:"promotional" example:"5.00"`
	Total       float64 `json:"total" example:"115.00"`
	Version     int     `json:"version" example:"3"`
}

// TransactionResponse represents a ledger entry in API responses
// @Description Ledger entry response
type TransactionResponse struct {
	ID            string            `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	WalletID      string            `json:"wallet_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	Type          string            `json:"type" example:"DEPOSIT"`
	Status        string            `json:"status" example:"COMPLETED"`
	Amount        float64           `json:"amount" example:"50.00"`
	Currency      string            `json:"currency" example:"USD"`
	Segment       string            `json:"segment" example:"PRIMARY"`
	BalanceBefore float64           `json:"balance_before" example:"100.00"`
	BalanceAfter  float64           `json:"balance_after" example:"150.00"`
	ExternalRef   string            `json:"external_ref" example:"evt_01HX2Y3Z"`
	Description   string            `json:"description,omitempty" example:"Card deposit"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CompletedAt   *string           `json:"completed_at,omitempty" example:"2026-08-30T10:00:00Z"`
	CreatedAt     string            `json:"created_at" example:"2026-08-30T10:00:00Z"`
}

// TransactionListFilter represents filter options for the ledger history
// @Description Filter options for listing wallet transactions
type TransactionListFilter struct {
	Type     string `form:"type" binding:"omitempty,oneof=DEPOSIT CHARGE REFUND ADJUSTMENT BONUS VOUCHER_REDEEM" example:"DEPOSIT"`
	Status   string `form:"status" binding:"omitempty,oneof=PENDING COMPLETED FAILED" example:"COMPLETED"`
	DateFrom string `form:"date_from" example:"2026-01-01"`
	DateTo   string `form:"date_to" example:"2026-01-31"`
	Currency string `form:"currency" example:"USD"`
	Page     int    `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
}

// CreditRequest represents an administrative wallet credit
// @Description Request body for crediting a wallet
type CreditRequest struct {
	Amount      float64 `json:"amount" binding:"required,gt=0" example:"25.00"`
	Segment     string  `json:"segment" binding:"omitempty,oneof=PRIMARY BONUS PROMOTIONAL" example:"PRIMARY"`
	Reference   string  `json:"reference" binding:"required,max=100" example:"support-ticket-1042"`
	Description string  `json:"description" binding:"max=500" example:"Goodwill credit"`
}

// GetWallet godoc
// @ID           getWallet
// @Summary      Get the caller's wallet
// @Description  Return the wallet for the authenticated user, creating it on first touch
// @Tags         wallet
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        currency query string false "Wallet currency" default(USD)
// @Success      200 {object} APIResponse[WalletResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /wallet [get]
func (h *WalletHandler) GetWallet(c *gin.Context) {
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

	currency := valueobject.Currency(c.DefaultQuery("currency", string(valueobject.USD)))
	if !currency.IsSupported() {
		h.BadRequest(c, "Unsupported currency")
		return
	}

	w, err := h.ledger.GetOrCreateWallet(c.Request.Context(), tenantID, userID, currency)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, walletToResponse(w))
}

// ListTransactions godoc
// @ID           listWalletTransactions
// @Summary      List the caller's ledger history
// @Description  List ledger entries for the authenticated user's wallet with optional filtering
// @Tags         wallet
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        type query string false "Transaction type" Enums(DEPOSIT, CHARGE, REFUND, ADJUSTMENT, BONUS, VOUCHER_REDEEM)
// @Param        status query string false "Transaction status" Enums(PENDING, COMPLETED, FAILED)
// @Param        date_from query string false "Start date (YYYY-MM-DD)"
// @Param        date_to query string false "End date (YYYY-MM-DD)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]TransactionResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /wallet/transactions [get]
func (h *WalletHandler) ListTransactions(c *gin.Context) {
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

	var filter TransactionListFilter
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
	if filter.Currency == "" {
		filter.Currency = string(valueobject.USD)
	}

	currency := valueobject.Currency(filter.Currency)
	if !currency.IsSupported() {
		h.BadRequest(c, "Unsupported currency")
		return
	}

	w, err := h.ledger.GetOrCreateWallet(c.Request.Context(), tenantID, userID, currency)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	domainFilter, err := toDomainTransactionFilter(filter)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	entries, total, err := h.ledger.History(c.Request.Context(), w.ID, domainFilter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]TransactionResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, transactionToResponse(entry))
	}

	h.SuccessWithMeta(c, responses, total, filter.Page, filter.PageSize)
}

// Credit godoc
// @ID           creditWallet
// @Summary      Credit a wallet
// @Description  Administratively credit a wallet segment. The reference makes the operation idempotent.
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Wallet ID" format(uuid)
// @Param        request body CreditRequest true "Credit request"
// @Success      200 {object} APIResponse[WalletResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /wallets/{id}/credit [post]
func (h *WalletHandler) Credit(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid wallet ID format")
		return
	}

	var req CreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	segment := wallet.SegmentPrimary
	if req.Segment != "" {
		segment = wallet.Segment(req.Segment)
	}

	result, err := h.ledger.Apply(c.Request.Context(), walletapp.ApplyRequest{
		TenantID:    tenantID,
		WalletID:    &walletID,
		Type:        wallet.TransactionTypeAdjustment,
		Amount:      decimal.NewFromFloat(req.Amount),
		Segment:     segment,
		ExternalRef: "admin:" + req.Reference,
		Description: req.Description,
		Credit:      true,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{
		"wallet":    walletToResponse(result.Wallet),
		"duplicate": result.Duplicate,
	})
}

func walletToResponse(w *wallet.Wallet) WalletResponse {
	return WalletResponse{
		ID:          w.ID.String(),
		UserID:      w.UserID.String(),
		Currency:    string(w.Currency),
		Primary:     w.Primary.InexactFloat64(),
		Bonus:       w.Bonus.InexactFloat64(),
		Promotional: w.Promotional.InexactFloat64(),
		Total:       w.Total.InexactFloat64(),
		Version:     w.Version,
	}
}

func transactionToResponse(tx *wallet.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:            tx.ID.String(),
		WalletID:      tx.WalletID.String(),
		Type:          string(tx.Type),
		Status:        string(tx.Status),
		Amount:        tx.Amount.InexactFloat64(),
		Currency:      string(tx.Currency),
		Segment:       string(tx.Segment),
		BalanceBefore: tx.BalanceBefore.InexactFloat64(),
		BalanceAfter:  tx.BalanceAfter.InexactFloat64(),
		ExternalRef:   tx.ExternalRef,
		Description:   tx.Description,
		Metadata:      tx.Metadata,
		CreatedAt:     tx.CreatedAt.Format(time.RFC3339),
	}
	if tx.CompletedAt != nil {
		completed := tx.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &completed
	}
	return resp
}

func toDomainTransactionFilter(filter TransactionListFilter) (wallet.TransactionFilter, error) {
	result := wallet.TransactionFilter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	if filter.Type != "" {
		txType := wallet.TransactionType(filter.Type)
		result.Type = &txType
	}
	if filter.Status != "" {
		status := wallet.TransactionStatus(filter.Status)
		result.Status = &status
	}
	if filter.DateFrom != "" {
		from, err := time.Parse("2006-01-02", filter.DateFrom)
		if err != nil {
			return result, err
		}
		result.DateFrom = &from
	}
	if filter.DateTo != "" {
		to, err := time.Parse("2006-01-02", filter.DateTo)
		if err != nil {
			return result, err
		}
		// Include the whole end day
		end := to.Add(24*time.Hour - time.Nanosecond)
		result.DateTo = &end
	}
	return result, nil
}
