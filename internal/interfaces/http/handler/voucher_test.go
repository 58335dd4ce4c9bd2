package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/commerce/backend/internal/domain/billing"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockVoucherRepository is a mock implementation of billing.VoucherRepository
type mockVoucherRepository struct {
	created *billing.Voucher
	err     error
}

func (m *mockVoucherRepository) Create(ctx context.Context, voucher *billing.Voucher) error {
	if m.err != nil {
		return m.err
	}
	m.created = voucher
	return nil
}

func (m *mockVoucherRepository) SaveWithVersion(ctx context.Context, voucher *billing.Voucher) error {
	return nil
}

func (m *mockVoucherRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*billing.Voucher, error) {
	return nil, shared.ErrNotFound
}

func (m *mockVoucherRepository) FindActiveExpired(ctx context.Context, tenantID uuid.UUID, now time.Time, limit int) ([]*billing.Voucher, error) {
	return nil, nil
}

func (m *mockVoucherRepository) FindDepleted(ctx context.Context, tenantID uuid.UUID, limit int) ([]*billing.Voucher, error) {
	return nil, nil
}

func newVoucherTestContext(t *testing.T, path string, body any) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	data, err := json.Marshal(body)
	require.NoError(t, err)
	c.Request, _ = http.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.Header.Set("X-User-ID", uuid.New().String())
	return c, w
}

func TestVoucherHandler_Create(t *testing.T) {
	repo := &mockVoucherRepository{}
	h := NewVoucherHandler(nil, nil, repo)

	c, w := newVoucherTestContext(t, "/vouchers", CreateVoucherRequest{
		Code:      "WELCOME10",
		Type:      "BONUS",
		Amount:    10,
		Currency:  "USD",
		MaxUses:   100,
		ExpiresAt: "2026-12-31T23:59:59Z",
	})

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, repo.created)
	assert.Equal(t, "WELCOME10", repo.created.Code)
	assert.Equal(t, billing.VoucherTypeBonus, repo.created.Type)
	assert.Equal(t, 100, repo.created.MaxUses)
	require.NotNil(t, repo.created.ExpiresAt)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "WELCOME10", data["code"])
	assert.Equal(t, float64(100), data["remaining_uses"])
}

func TestVoucherHandler_CreateRejectsInvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"missing code", CreateVoucherRequest{Type: "BONUS", Amount: 10, MaxUses: 1}},
		{"bad type", map[string]any{"code": "X", "type": "GOLD", "amount": 10, "max_uses": 1}},
		{"zero amount", CreateVoucherRequest{Code: "X", Type: "BONUS", Amount: 0, MaxUses: 1}},
		{"zero max uses", CreateVoucherRequest{Code: "X", Type: "BONUS", Amount: 10}},
		{"bad expiry", CreateVoucherRequest{Code: "X", Type: "BONUS", Amount: 10, MaxUses: 1, ExpiresAt: "tomorrow"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockVoucherRepository{}
			h := NewVoucherHandler(nil, nil, repo)

			c, w := newVoucherTestContext(t, "/vouchers", tt.body)
			h.Create(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Nil(t, repo.created)
		})
	}
}

func TestVoucherHandler_ValidateRejectsMissingCode(t *testing.T) {
	h := NewVoucherHandler(nil, nil, &mockVoucherRepository{})

	c, w := newVoucherTestContext(t, "/vouchers/validate", map[string]string{})
	h.Validate(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVoucherHandler_RedeemRejectsMissingCode(t *testing.T) {
	h := NewVoucherHandler(nil, nil, &mockVoucherRepository{})

	c, w := newVoucherTestContext(t, "/vouchers/redeem", map[string]string{})
	h.Redeem(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVoucherToResponse(t *testing.T) {
	expires := time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC)
	v, err := billing.NewVoucher(uuid.New(), "PROMO5", billing.VoucherTypePromo,
		decimal.NewFromInt(5), "USD", 10, &expires)
	require.NoError(t, err)

	resp := voucherToResponse(v)

	assert.Equal(t, "PROMO5", resp.Code)
	assert.Equal(t, "PROMO", resp.Type)
	assert.Equal(t, 5.0, resp.Amount)
	assert.Equal(t, 10, resp.RemainingUses)
	require.NotNil(t, resp.ExpiresAt)
	assert.Equal(t, "2026-12-31T23:59:59Z", *resp.ExpiresAt)
}
