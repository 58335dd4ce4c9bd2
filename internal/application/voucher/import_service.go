package voucher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/commerce/backend/internal/domain/billing"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	csvimport "github.com/commerce/backend/internal/infrastructure/import"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxImportFileSize = 10 * 1024 * 1024

// ImportResult summarizes a bulk voucher import
type ImportResult struct {
	TotalRows    int                  `json:"total_rows"`
	ImportedRows int                  `json:"imported_rows"`
	SkippedRows  int                  `json:"skipped_rows"`
	ErrorRows    int                  `json:"error_rows"`
	Errors       []csvimport.RowError `json:"errors,omitempty"`
	IsTruncated  bool                 `json:"is_truncated,omitempty"`
	TotalErrors  int                  `json:"total_errors,omitempty"`
}

// ImportService creates vouchers in bulk from an uploaded CSV file.
// Expected columns: code, type, amount, currency, max_uses, expires_at
// (expires_at optional, RFC 3339 date).
type ImportService struct {
	vouchers billing.VoucherRepository
	logger   *zap.Logger
}

// NewImportService creates a new voucher ImportService
func NewImportService(vouchers billing.VoucherRepository, logger *zap.Logger) *ImportService {
	return &ImportService{
		vouchers: vouchers,
		logger:   logger,
	}
}

// GetValidationRules returns the validation rules for voucher import
func (s *ImportService) GetValidationRules() []csvimport.FieldRule {
	zero := decimal.Zero
	return []csvimport.FieldRule{
		csvimport.Field("code").Required().String().MinLength(1).MaxLength(64).Unique().Build(),
		csvimport.Field("type").Required().String().Custom(validateVoucherType).Build(),
		csvimport.Field("amount").Required().Decimal().MinValue(zero).Build(),
		csvimport.Field("currency").Required().String().Custom(validateCurrency).Build(),
		csvimport.Field("max_uses").Required().Int().Build(),
		csvimport.Field("expires_at").Date().Build(),
	}
}

func validateVoucherType(value string) error {
	switch billing.VoucherType(value) {
	case billing.VoucherTypeBonus, billing.VoucherTypePromo:
		return nil
	default:
		return fmt.Errorf("type must be 'BONUS' or 'PROMO'")
	}
}

func validateCurrency(value string) error {
	if !valueobject.Currency(value).IsSupported() {
		return fmt.Errorf("unsupported currency %q", value)
	}
	return nil
}

// LookupUnique checks whether a voucher code already exists
func (s *ImportService) LookupUnique(ctx context.Context, tenantID uuid.UUID, field, value string) (bool, error) {
	if field != "code" || value == "" {
		return false, nil
	}
	_, err := s.vouchers.FindByCode(ctx, tenantID, billing.NormalizeVoucherCode(value))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Run validates the uploaded file and, when clean, creates all vouchers.
// Validation errors abort the import before anything is written. The file
// is buffered so the validated content can be parsed a second time for
// the write pass.
func (s *ImportService) Run(ctx context.Context, tenantID, userID uuid.UUID, fileName string, fileSize int64, reader io.Reader) (*ImportResult, error) {
	data, err := io.ReadAll(io.LimitReader(reader, maxImportFileSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxImportFileSize {
		return nil, shared.NewDomainError("FILE_TOO_LARGE", "Import file exceeds size limit")
	}

	session := csvimport.NewImportSession(tenantID, userID, csvimport.EntityVouchers, fileName, fileSize)

	processor := csvimport.NewImportProcessor(
		csvimport.WithMaxFileSize(maxImportFileSize),
		csvimport.WithUniqueLookup(func(entityType, field, value string) (bool, error) {
			return s.LookupUnique(ctx, tenantID, field, value)
		}),
	)

	validation, err := processor.Validate(ctx, session, bytes.NewReader(data), s.GetValidationRules())
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		TotalRows:   validation.TotalRows,
		ErrorRows:   validation.ErrorRows,
		Errors:      validation.Errors,
		TotalErrors: validation.ErrorRows,
	}
	if validation.ErrorRows > 0 {
		return result, nil
	}

	return s.importRows(ctx, tenantID, session, data, result)
}

func (s *ImportService) importRows(ctx context.Context, tenantID uuid.UUID, session *csvimport.ImportSession, data []byte, result *ImportResult) (*ImportResult, error) {
	parser, err := csvimport.ParseFromBytes(data)
	if err != nil {
		session.UpdateState(csvimport.StateFailed)
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		session.UpdateState(csvimport.StateFailed)
		return nil, err
	}
	rows, err := parser.ReadAllRows()
	if err != nil {
		session.UpdateState(csvimport.StateFailed)
		return nil, err
	}

	session.UpdateState(csvimport.StateImporting)
	errs := csvimport.NewErrorCollection(100)

	for _, row := range rows {
		select {
		case <-ctx.Done():
			session.UpdateState(csvimport.StateCancelled)
			return nil, ctx.Err()
		default:
		}
		s.importRow(ctx, tenantID, row, result, errs)
	}

	result.Errors = errs.Errors()
	result.IsTruncated = errs.IsTruncated()
	result.TotalErrors = errs.TotalCount()

	if result.ErrorRows > 0 {
		session.UpdateState(csvimport.StateFailed)
	} else {
		session.UpdateState(csvimport.StateCompleted)
	}
	return result, nil
}

func (s *ImportService) importRow(ctx context.Context, tenantID uuid.UUID, row *csvimport.Row, result *ImportResult, errs *csvimport.ErrorCollection) {
	amount, err := decimal.NewFromString(row.Get("amount"))
	if err != nil {
		errs.Add(csvimport.NewRowError(row.LineNumber, "amount", csvimport.ErrCodeImportInvalidType, "invalid decimal value"))
		result.ErrorRows++
		return
	}

	maxUses, err := strconv.Atoi(row.Get("max_uses"))
	if err != nil || maxUses <= 0 {
		errs.Add(csvimport.NewRowError(row.LineNumber, "max_uses", csvimport.ErrCodeImportInvalidType, "max_uses must be a positive integer"))
		result.ErrorRows++
		return
	}

	var expiresAt *time.Time
	if raw := row.Get("expires_at"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			errs.Add(csvimport.NewRowError(row.LineNumber, "expires_at", csvimport.ErrCodeImportInvalidType, "invalid date, expected YYYY-MM-DD"))
			result.ErrorRows++
			return
		}
		expiresAt = &t
	}

	v, err := billing.NewVoucher(
		tenantID,
		row.Get("code"),
		billing.VoucherType(row.Get("type")),
		amount,
		valueobject.Currency(row.Get("currency")),
		maxUses,
		expiresAt,
	)
	if err != nil {
		errs.Add(csvimport.NewRowError(row.LineNumber, "code", csvimport.ErrCodeImportValidation, err.Error()))
		result.ErrorRows++
		return
	}

	if err := s.vouchers.Create(ctx, v); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			result.SkippedRows++
			return
		}
		s.logger.Error("voucher import row failed",
			zap.String("code", v.Code),
			zap.Error(err))
		errs.Add(csvimport.NewRowError(row.LineNumber, "code", csvimport.ErrCodeImportValidation, "failed to create voucher"))
		result.ErrorRows++
		return
	}
	result.ImportedRows++
}
