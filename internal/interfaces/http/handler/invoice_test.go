package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/commerce/backend/internal/domain/billing"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/commerce/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockInvoiceRepository is a mock implementation of billing.InvoiceRepository
type mockInvoiceRepository struct {
	page       *shared.Paginated[*billing.Invoice]
	lastFilter shared.Filter
	err        error
}

func (m *mockInvoiceRepository) Create(ctx context.Context, invoice *billing.Invoice) error {
	return nil
}

func (m *mockInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	return nil
}

func (m *mockInvoiceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	return nil, shared.ErrNotFound
}

func (m *mockInvoiceRepository) FindBySubscriptionPeriod(ctx context.Context, tenantID, subscriptionID uuid.UUID, periodStart time.Time) (*billing.Invoice, error) {
	return nil, shared.ErrNotFound
}

func (m *mockInvoiceRepository) FindOpenPastDue(ctx context.Context, tenantID uuid.UUID, now time.Time, limit int) ([]*billing.Invoice, error) {
	return nil, nil
}

func (m *mockInvoiceRepository) FindOverdue(ctx context.Context, tenantID uuid.UUID, limit int) ([]*billing.Invoice, error) {
	return nil, nil
}

func (m *mockInvoiceRepository) ListByAccount(ctx context.Context, tenantID, accountID uuid.UUID, filter shared.Filter) (*shared.Paginated[*billing.Invoice], error) {
	if m.err != nil {
		return nil, m.err
	}
	m.lastFilter = filter
	return m.page, nil
}

func (m *mockInvoiceRepository) NextSequence(ctx context.Context, tenantID uuid.UUID, period time.Time) (int64, error) {
	return 1, nil
}

func createTestInvoice(t *testing.T, tenantID, accountID uuid.UUID) *billing.Invoice {
	t.Helper()
	periodStart := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)
	invoice, err := billing.NewInvoice(tenantID, accountID, "INV-202608-1",
		[]billing.LineItem{{
			Description: "Pro plan, monthly",
			Quantity:    1,
			UnitPrice:   decimal.NewFromInt(29),
			Total:       decimal.NewFromInt(29),
		}},
		valueobject.USD,
		periodStart, periodEnd, periodEnd.AddDate(0, 0, 7),
	)
	require.NoError(t, err)
	return invoice
}

func newInvoiceTestContext(t *testing.T, query string, userID uuid.UUID) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/invoices"+query, nil)
	c.Request.Header.Set("X-User-ID", userID.String())
	return c, w
}

func TestInvoiceHandler_List(t *testing.T) {
	tenantID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	userID := uuid.New()
	invoice := createTestInvoice(t, tenantID, userID)

	repo := &mockInvoiceRepository{
		page: &shared.Paginated[*billing.Invoice]{
			Items:    []*billing.Invoice{invoice},
			Total:    1,
			Page:     1,
			PageSize: 20,
		},
	}
	h := NewInvoiceHandler(repo)

	c, w := newInvoiceTestContext(t, "?status=PENDING&order_by=due_date&order_dir=desc", userID)
	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(1), resp.Meta.Total)
	assert.Equal(t, 1, resp.Meta.Page)
	assert.Equal(t, 20, resp.Meta.PageSize)

	items := resp.Data.([]interface{})
	require.Len(t, items, 1)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "INV-202608-1", first["number"])
	assert.Equal(t, 29.0, first["total"])

	assert.Equal(t, "PENDING", repo.lastFilter.Filters["status"])
	assert.Equal(t, "due_date", repo.lastFilter.OrderBy)
	assert.Equal(t, "desc", repo.lastFilter.OrderDir)
}

func TestInvoiceHandler_ListDefaultsPagination(t *testing.T) {
	userID := uuid.New()
	repo := &mockInvoiceRepository{
		page: &shared.Paginated[*billing.Invoice]{Items: nil, Total: 0, Page: 1, PageSize: 20},
	}
	h := NewInvoiceHandler(repo)

	c, w := newInvoiceTestContext(t, "", userID)
	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, repo.lastFilter.Page)
	assert.Equal(t, 20, repo.lastFilter.PageSize)
}

func TestInvoiceHandler_ListRejectsInvalidStatus(t *testing.T) {
	h := NewInvoiceHandler(&mockInvoiceRepository{})

	c, w := newInvoiceTestContext(t, "?status=BOGUS", uuid.New())
	h.List(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvoiceHandler_ListRequiresUser(t *testing.T) {
	h := NewInvoiceHandler(&mockInvoiceRepository{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/invoices", nil)

	h.List(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
