package http

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holaphone/order-service/internal/domain"
	apperrors "github.com/holaphone/order-service/pkg/errors"
)

const voucherID = "550e8400-e29b-41d4-a716-446655440099"

func sampleVoucher() *domain.Voucher {
	now := time.Now().UTC()
	return &domain.Voucher{
		ID:            voucherID,
		Code:          "SUMMER10",
		DiscountType:  domain.DiscountTypePercentage,
		DiscountValue: 10,
		MaxDiscount:   50_000,
		UsageLimit:    100,
		MinOrderValue: 100_000,
		StartDate:     now.Add(-time.Hour),
		EndDate:       now.Add(24 * time.Hour),
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func sampleVoucherJSON() []byte {
	v := sampleVoucher()
	body, _ := json.Marshal(VoucherRequest{
		Code:          v.Code,
		DiscountType:  v.DiscountType,
		DiscountValue: v.DiscountValue,
		MaxDiscount:   v.MaxDiscount,
		UsageLimit:    v.UsageLimit,
		MinOrderValue: v.MinOrderValue,
		StartDate:     v.StartDate,
		EndDate:       v.EndDate,
		IsActive:      true,
	})
	return body
}

func TestApplyVoucher(t *testing.T) {
	router, repos := setupRouter(t)

	repos.vouchers.On("GetByCode", mock.Anything, "SUMMER10").Return(sampleVoucher(), nil)

	body, _ := json.Marshal(ApplyVoucherRequest{Code: "SUMMER10", Subtotal: 200_000})
	rec := doRequest(router, http.MethodPost, "/api/v1/vouchers/apply", "user-456|customer", body)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(20_000), data["discount_amount"])
	assert.Equal(t, float64(180_000), data["final_total"])
}

func TestApplyVoucher_Expired(t *testing.T) {
	router, repos := setupRouter(t)

	v := sampleVoucher()
	v.EndDate = time.Now().UTC().Add(-time.Hour)
	repos.vouchers.On("GetByCode", mock.Anything, "SUMMER10").Return(v, nil)

	body, _ := json.Marshal(ApplyVoucherRequest{Code: "SUMMER10", Subtotal: 200_000})
	rec := doRequest(router, http.MethodPost, "/api/v1/vouchers/apply", "user-456|customer", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "STATE_CONFLICT", resp.Error.Code)
}

func TestApplyVoucher_AdminForbidden(t *testing.T) {
	router, _ := setupRouter(t)

	body, _ := json.Marshal(ApplyVoucherRequest{Code: "SUMMER10", Subtotal: 200_000})
	rec := doRequest(router, http.MethodPost, "/api/v1/vouchers/apply", "admin-001|admin", body)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateVoucher(t *testing.T) {
	router, repos := setupRouter(t)

	repos.vouchers.On("Create", mock.Anything, mock.AnythingOfType("*domain.Voucher")).Return(nil)

	rec := doRequest(router, http.MethodPost, "/api/v1/vouchers", "admin-001|admin", sampleVoucherJSON())
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateVoucher_DuplicateCode(t *testing.T) {
	router, repos := setupRouter(t)

	repos.vouchers.On("Create", mock.Anything, mock.AnythingOfType("*domain.Voucher")).
		Return(apperrors.AlreadyExists("voucher", "code", "SUMMER10"))

	rec := doRequest(router, http.MethodPost, "/api/v1/vouchers", "admin-001|admin", sampleVoucherJSON())
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateVoucher_Validation(t *testing.T) {
	router, _ := setupRouter(t)

	body, _ := json.Marshal(VoucherRequest{Code: "BAD", DiscountType: "bogo"})
	rec := doRequest(router, http.MethodPost, "/api/v1/vouchers", "admin-001|admin", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetVoucher(t *testing.T) {
	router, repos := setupRouter(t)

	repos.vouchers.On("GetByID", mock.Anything, voucherID).Return(sampleVoucher(), nil)

	rec := doRequest(router, http.MethodGet, "/api/v1/vouchers/"+voucherID, "staff-001|staff", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteVoucher(t *testing.T) {
	router, repos := setupRouter(t)

	repos.vouchers.On("Delete", mock.Anything, voucherID).Return(nil)

	rec := doRequest(router, http.MethodDelete, "/api/v1/vouchers/"+voucherID, "admin-001|admin", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
