package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/holaphone/order-service/internal/repository"
	"github.com/holaphone/order-service/internal/service"
	"github.com/holaphone/order-service/pkg/httputil"
	"github.com/holaphone/order-service/pkg/pagination"
	"github.com/holaphone/order-service/pkg/validator"
)

// VoucherHandler handles voucher preview and admin CRUD endpoints.
type VoucherHandler struct {
	vouchers *service.VoucherService
	logger   *slog.Logger
}

// NewVoucherHandler creates a new voucher HTTP handler.
func NewVoucherHandler(vouchers *service.VoucherService, logger *slog.Logger) *VoucherHandler {
	return &VoucherHandler{
		vouchers: vouchers,
		logger:   logger,
	}
}

// ApplyVoucherRequest is the JSON request body for a voucher preview.
type ApplyVoucherRequest struct {
	Code       string   `json:"code" validate:"required"`
	Subtotal   int64    `json:"subtotal" validate:"gte=0"`
	Categories []string `json:"categories"`
}

// VoucherRequest is the JSON request body for creating or updating a voucher.
type VoucherRequest struct {
	Code          string    `json:"code" validate:"required"`
	DiscountType  string    `json:"discount_type" validate:"required,oneof=fixed percentage"`
	DiscountValue int64     `json:"discount_value" validate:"required,gt=0"`
	MaxDiscount   int64     `json:"max_discount" validate:"gte=0"`
	UsageLimit    int       `json:"usage_limit" validate:"required,gt=0"`
	MinOrderValue int64     `json:"min_order_value" validate:"gte=0"`
	Categories    []string  `json:"categories"`
	StartDate     time.Time `json:"start_date" validate:"required"`
	EndDate       time.Time `json:"end_date" validate:"required"`
	IsActive      bool      `json:"is_active"`
}

func (r VoucherRequest) toInput() service.VoucherInput {
	return service.VoucherInput{
		Code:          r.Code,
		DiscountType:  r.DiscountType,
		DiscountValue: r.DiscountValue,
		MaxDiscount:   r.MaxDiscount,
		UsageLimit:    r.UsageLimit,
		MinOrderValue: r.MinOrderValue,
		Categories:    r.Categories,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		IsActive:      r.IsActive,
	}
}

// Apply handles POST /api/v1/vouchers/apply
// It previews the discount without consuming the voucher.
func (h *VoucherHandler) Apply(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ApplyVoucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	preview, err := h.vouchers.Preview(r.Context(), req.Code, req.Subtotal, req.Categories)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: preview})
}

// Create handles POST /api/v1/vouchers (admin).
func (h *VoucherHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeVoucherRequest(w, r)
	if !ok {
		return
	}

	voucher, err := h.vouchers.Create(r.Context(), req.toInput())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: voucher})
}

// List handles GET /api/v1/vouchers (admin).
func (h *VoucherHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.VoucherFilter{
		Page: pagination.FromRequest(r, "created_at", "code", "end_date"),
	}
	if v := r.URL.Query().Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "active must be a boolean"},
			})
			return
		}
		filter.Active = &active
	}

	vouchers, total, err := h.vouchers.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(vouchers, total, filter.Page))
}

// Get handles GET /api/v1/vouchers/{id} (admin).
func (h *VoucherHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	voucher, err := h.vouchers.Get(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: voucher})
}

// Update handles PUT /api/v1/vouchers/{id} (admin).
func (h *VoucherHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	req, ok := decodeVoucherRequest(w, r)
	if !ok {
		return
	}

	voucher, err := h.vouchers.Update(r.Context(), id.String(), req.toInput())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: voucher})
}

// Delete handles DELETE /api/v1/vouchers/{id} (admin).
func (h *VoucherHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.vouchers.Delete(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func decodeVoucherRequest(w http.ResponseWriter, r *http.Request) (VoucherRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req VoucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return req, false
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return req, false
	}

	return req, true
}
