package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/holaphone/order-service/internal/domain"
	"github.com/holaphone/order-service/internal/repository"
	"github.com/holaphone/order-service/internal/service"
	"github.com/holaphone/order-service/pkg/httputil"
	"github.com/holaphone/order-service/pkg/middleware"
	"github.com/holaphone/order-service/pkg/pagination"
	"github.com/holaphone/order-service/pkg/validator"
)

// orderSortColumns are the columns list endpoints may sort by.
var orderSortColumns = []string{"created_at", "updated_at", "total_amount", "status"}

// OrderHandler handles HTTP requests for checkout and order endpoints.
type OrderHandler struct {
	checkout *service.CheckoutService
	orders   *service.OrderService
	logger   *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(checkout *service.CheckoutService, orders *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		checkout: checkout,
		orders:   orders,
		logger:   logger,
	}
}

// --- Request DTOs ---

// ShippingInfoRequest is the JSON shipping snapshot in checkout and shipping
// update requests.
type ShippingInfoRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Address  string `json:"address" validate:"required"`
	Ward     string `json:"ward"`
	District string `json:"district"`
	Province string `json:"province"`
}

func (r ShippingInfoRequest) toDomain() domain.ShippingInfo {
	return domain.ShippingInfo{
		FullName: r.FullName,
		Phone:    r.Phone,
		Address:  r.Address,
		Ward:     r.Ward,
		District: r.District,
		Province: r.Province,
	}
}

// CheckoutItemRequest selects a cart line for checkout at a confirmed price.
type CheckoutItemRequest struct {
	VariantID string `json:"variant_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
	Price     int64  `json:"price" validate:"gte=0"`
}

// CheckoutRequest is the JSON request body for placing an order.
type CheckoutRequest struct {
	Items         []CheckoutItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingInfo  ShippingInfoRequest   `json:"shipping_info" validate:"required"`
	PaymentMethod string                `json:"payment_method" validate:"required,oneof=cod online"`
	VoucherCode   string                `json:"voucher_code"`
}

// UpdateStatusRequest is the JSON request body for updating order status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason"`
}

// ReasonRequest is the JSON request body for actions that carry a reason.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// AssignShipperRequest is the JSON request body for assigning a shipper.
type AssignShipperRequest struct {
	ShipperID string `json:"shipper_id" validate:"required"`
}

// --- Handlers ---

// Checkout handles POST /api/v1/orders
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CheckoutRequest
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

	selections := make([]service.Selection, len(req.Items))
	for i, item := range req.Items {
		selections[i] = service.Selection{
			VariantID:     item.VariantID,
			Quantity:      item.Quantity,
			ExpectedPrice: item.Price,
		}
	}

	order, err := h.checkout.PlaceOrder(r.Context(), service.PlaceOrderInput{
		UserID:        middleware.UserIDFromContext(r.Context()),
		ShippingInfo:  req.ShippingInfo.toDomain(),
		PaymentMethod: req.PaymentMethod,
		VoucherCode:   req.VoucherCode,
		Selections:    selections,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: order})
}

// ListOrders handles GET /api/v1/orders (admin/staff listing).
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	filter := repository.OrderFilter{
		Page: pagination.FromRequest(r, orderSortColumns...),
	}
	if v := r.URL.Query().Get("user_id"); v != "" {
		filter.UserID = &v
	}
	if v := r.URL.Query().Get("shipper_id"); v != "" {
		filter.ShipperID = &v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = &v
	}

	orders, total, err := h.orders.ListOrders(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(orders, total, filter.Page))
}

// ListMyOrders handles GET /api/v1/orders/my
func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r, orderSortColumns...)

	var status *string
	if v := r.URL.Query().Get("status"); v != "" {
		status = &v
	}

	orders, total, err := h.orders.ListMyOrders(r.Context(), middleware.UserIDFromContext(r.Context()), status, page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(orders, total, page))
}

// GetOrder handles GET /api/v1/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	ctx := r.Context()
	order, err := h.orders.GetOrder(ctx, id.String(), middleware.UserIDFromContext(ctx), middleware.RoleFromContext(ctx))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// UpdateOrderStatus handles PUT /api/v1/orders/{id}/status (admin/staff).
func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	req, ok := decodeStatusRequest(w, r)
	if !ok {
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), id.String(), req.Status, req.Reason, middleware.RoleFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// CancelOrder handles POST /api/v1/orders/{id}/cancel (customer).
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.orders.Cancel(r.Context(), id.String(), decodeReason(w, r), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// ConfirmReceived handles POST /api/v1/orders/{id}/confirm-received (customer).
func (h *OrderHandler) ConfirmReceived(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.orders.ConfirmReceived(r.Context(), id.String(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// RequestReturn handles POST /api/v1/orders/{id}/return (customer).
func (h *OrderHandler) RequestReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.orders.RequestReturn(r.Context(), id.String(), decodeReason(w, r), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// ApproveReturn handles POST /api/v1/orders/{id}/return/approve (admin/staff).
func (h *OrderHandler) ApproveReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.orders.ApproveReturn(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// RejectReturn handles POST /api/v1/orders/{id}/return/reject (admin/staff).
func (h *OrderHandler) RejectReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.orders.RejectReturn(r.Context(), id.String(), decodeReason(w, r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// MarkReturned handles POST /api/v1/orders/{id}/return/returned (admin/staff).
func (h *OrderHandler) MarkReturned(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.orders.MarkReturned(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// MarkRefunded handles POST /api/v1/orders/{id}/return/refunded (admin/staff).
func (h *OrderHandler) MarkRefunded(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.orders.MarkRefunded(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// AssignShipper handles PUT /api/v1/orders/{id}/shipper (admin/staff).
func (h *OrderHandler) AssignShipper(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req AssignShipperRequest
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

	order, err := h.orders.AssignShipper(r.Context(), id.String(), req.ShipperID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// UpdateShippingInfo handles PUT /api/v1/orders/{id}/shipping-info
func (h *OrderHandler) UpdateShippingInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ShippingInfoRequest
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

	ctx := r.Context()
	order, err := h.orders.UpdateShippingInfo(ctx, id.String(), req.toDomain(),
		middleware.UserIDFromContext(ctx), middleware.RoleFromContext(ctx))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// DeleteOrder handles DELETE /api/v1/orders/{id} (admin).
func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.orders.Delete(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// decodeStatusRequest decodes and validates an UpdateStatusRequest body,
// writing the error response itself on failure.
func decodeStatusRequest(w http.ResponseWriter, r *http.Request) (UpdateStatusRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateStatusRequest
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

// decodeReason reads an optional ReasonRequest body. An empty or malformed
// body yields an empty reason; the service decides whether one is required.
func decodeReason(w http.ResponseWriter, r *http.Request) string {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return ""
	}
	return req.Reason
}
