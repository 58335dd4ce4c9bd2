package handler

import (
	"errors"
	"net/http"

	voucherapp "github.com/commerce/backend/internal/application/voucher"
	csvimport "github.com/commerce/backend/internal/infrastructure/import"
	"github.com/commerce/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

const maxImportFileSize = 10 * 1024 * 1024

// ImportResultResponse represents the outcome of a bulk voucher import
// @Description Bulk voucher import result
type ImportResultResponse struct {
	TotalRows    int  `json:"total_rows" example:"100"`
	ImportedRows int  `json:"imported_rows" example:"98"`
	SkippedRows  int  `json:"skipped_rows" example:"2"`
	ErrorRows    int  `json:"error_rows" example:"0"`
	Errors       any  `json:"errors,omitempty"`
	IsTruncated  bool `json:"is_truncated,omitempty"`
	TotalErrors  int  `json:"total_errors,omitempty"`
}

// Import godoc
// @ID           importVouchers
// @Summary      Bulk import vouchers from CSV
// @Description  Upload a CSV file (columns code, type, amount, currency, max_uses, expires_at) and create all vouchers in it. Validation errors abort the import before anything is written.
// @Tags         vouchers
// @Accept       multipart/form-data
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        file formData file true "CSV file"
// @Success      200 {object} APIResponse[ImportResultResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      413 {object} dto.ErrorResponse
// @Failure      415 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /vouchers/import [post]
func (h *VoucherHandler) Import(c *gin.Context) {
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

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}
	defer file.Close()

	if header.Size > maxImportFileSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeValidation, "file exceeds maximum size of 10MB")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType != "" && contentType != "text/csv" && contentType != "application/octet-stream" &&
		contentType != "text/plain" {
		h.Error(c, http.StatusUnsupportedMediaType, dto.ErrCodeValidation, "file must be a CSV file")
		return
	}

	result, err := h.importService.Run(c.Request.Context(), tenantID, userID, header.Filename, header.Size, file)
	if err != nil {
		switch {
		case errors.Is(err, csvimport.ErrEmptyFile):
			h.BadRequest(c, "CSV file is empty")
		case errors.Is(err, csvimport.ErrInvalidEncoding):
			h.BadRequest(c, "CSV file has invalid encoding, must be UTF-8")
		case errors.Is(err, csvimport.ErrMissingHeader):
			h.BadRequest(c, "CSV file is missing header row")
		default:
			h.HandleError(c, err)
		}
		return
	}

	h.Success(c, importResultToResponse(result))
}

func importResultToResponse(r *voucherapp.ImportResult) ImportResultResponse {
	resp := ImportResultResponse{
		TotalRows:    r.TotalRows,
		ImportedRows: r.ImportedRows,
		SkippedRows:  r.SkippedRows,
		ErrorRows:    r.ErrorRows,
		IsTruncated:  r.IsTruncated,
		TotalErrors:  r.TotalErrors,
	}
	if len(r.Errors) > 0 {
		resp.Errors = r.Errors
	}
	return resp
}
