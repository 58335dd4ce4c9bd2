package voucher

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/commerce/backend/internal/domain/billing"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// importVoucherRepo stores created vouchers in memory keyed by code
type importVoucherRepo struct {
	mu       sync.Mutex
	vouchers map[string]*billing.Voucher
}

func newImportVoucherRepo() *importVoucherRepo {
	return &importVoucherRepo{vouchers: make(map[string]*billing.Voucher)}
}

func (r *importVoucherRepo) Create(ctx context.Context, v *billing.Voucher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.vouchers[v.Code]; ok {
		return shared.ErrAlreadyExists
	}
	r.vouchers[v.Code] = v
	return nil
}

func (r *importVoucherRepo) SaveWithVersion(ctx context.Context, v *billing.Voucher) error {
	return nil
}

func (r *importVoucherRepo) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*billing.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.vouchers[code]; ok {
		return v, nil
	}
	return nil, shared.ErrNotFound
}

func (r *importVoucherRepo) FindActiveExpired(ctx context.Context, tenantID uuid.UUID, now time.Time, limit int) ([]*billing.Voucher, error) {
	return nil, nil
}

func (r *importVoucherRepo) FindDepleted(ctx context.Context, tenantID uuid.UUID, limit int) ([]*billing.Voucher, error) {
	return nil, nil
}

func runImport(t *testing.T, repo *importVoucherRepo, csv string) (*ImportResult, error) {
	t.Helper()
	svc := NewImportService(repo, zap.NewNop())
	return svc.Run(context.Background(), uuid.New(), uuid.New(), "vouchers.csv", int64(len(csv)), strings.NewReader(csv))
}

func TestImportService_Run(t *testing.T) {
	csv := "code,type,amount,currency,max_uses,expires_at\n" +
		"WELCOME10,BONUS,10.00,USD,100,2027-01-01\n" +
		"SUMMER5,PROMO,5.00,EUR,50,\n"

	repo := newImportVoucherRepo()
	result, err := runImport(t, repo, csv)

	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalRows)
	assert.Equal(t, 2, result.ImportedRows)
	assert.Equal(t, 0, result.ErrorRows)

	welcome, err := repo.FindByCode(context.Background(), uuid.Nil, "WELCOME10")
	require.NoError(t, err)
	assert.Equal(t, billing.VoucherTypeBonus, welcome.Type)
	assert.Equal(t, 100, welcome.MaxUses)
	require.NotNil(t, welcome.ExpiresAt)

	summer, err := repo.FindByCode(context.Background(), uuid.Nil, "SUMMER5")
	require.NoError(t, err)
	assert.Equal(t, billing.VoucherTypePromo, summer.Type)
	assert.Nil(t, summer.ExpiresAt)
}

func TestImportService_RunNormalizesCodes(t *testing.T) {
	csv := "code,type,amount,currency,max_uses,expires_at\n" +
		"  welcome10  ,BONUS,10.00,USD,100,\n"

	repo := newImportVoucherRepo()
	result, err := runImport(t, repo, csv)

	require.NoError(t, err)
	assert.Equal(t, 1, result.ImportedRows)

	_, err = repo.FindByCode(context.Background(), uuid.Nil, "WELCOME10")
	assert.NoError(t, err)
}

func TestImportService_RunAbortsOnValidationErrors(t *testing.T) {
	csv := "code,type,amount,currency,max_uses,expires_at\n" +
		"GOOD1,BONUS,10.00,USD,100,\n" +
		"BAD1,GOLD,10.00,USD,100,\n"

	repo := newImportVoucherRepo()
	result, err := runImport(t, repo, csv)

	require.NoError(t, err)
	assert.Equal(t, 1, result.ErrorRows)
	assert.Equal(t, 0, result.ImportedRows)
	assert.Empty(t, repo.vouchers, "nothing should be written when validation fails")
}

func TestImportService_RunRejectsInvalidRows(t *testing.T) {
	cases := []struct {
		name string
		row  string
	}{
		{"missing code", ",BONUS,10.00,USD,100,"},
		{"negative amount", "NEG,BONUS,-5.00,USD,100,"},
		{"unsupported currency", "CUR,BONUS,10.00,XXX,100,"},
		{"zero max uses", "ZERO,BONUS,10.00,USD,0,"},
		{"bad expiry", "EXP,BONUS,10.00,USD,100,tomorrow"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			csv := "code,type,amount,currency,max_uses,expires_at\n" + tc.row + "\n"
			repo := newImportVoucherRepo()
			result, err := runImport(t, repo, csv)

			require.NoError(t, err)
			assert.NotZero(t, result.ErrorRows)
			assert.Zero(t, result.ImportedRows)
		})
	}
}

func TestImportService_RunSkipsExistingCodes(t *testing.T) {
	repo := newImportVoucherRepo()

	csv := "code,type,amount,currency,max_uses,expires_at\nDUP1,BONUS,10.00,USD,100,\n"
	first, err := runImport(t, repo, csv)
	require.NoError(t, err)
	assert.Equal(t, 1, first.ImportedRows)

	// A second upload of the same file flags the duplicate during validation
	second, err := runImport(t, repo, csv)
	require.NoError(t, err)
	assert.Equal(t, 1, second.ErrorRows)
	assert.Equal(t, 0, second.ImportedRows)
}
