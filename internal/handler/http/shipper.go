package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/holaphone/order-service/internal/service"
	"github.com/holaphone/order-service/pkg/httputil"
	"github.com/holaphone/order-service/pkg/middleware"
	"github.com/holaphone/order-service/pkg/pagination"
)

// ShipperHandler handles the delivery work queue endpoints.
type ShipperHandler struct {
	orders *service.OrderService
	logger *slog.Logger
}

// NewShipperHandler creates a new shipper HTTP handler.
func NewShipperHandler(orders *service.OrderService, logger *slog.Logger) *ShipperHandler {
	return &ShipperHandler{
		orders: orders,
		logger: logger,
	}
}

// ListOrders handles GET /api/v1/shipper/orders
// By default it shows every order in a shipper-relevant status; with
// assigned_only=true it narrows to the caller's own assignments.
func (h *ShipperHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r, orderSortColumns...)

	var status *string
	if v := r.URL.Query().Get("status"); v != "" {
		status = &v
	}

	assignedOnly := false
	if v := r.URL.Query().Get("assigned_only"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "assigned_only must be a boolean"},
			})
			return
		}
		assignedOnly = parsed
	}

	orders, total, err := h.orders.ListShipperOrders(r.Context(), middleware.UserIDFromContext(r.Context()), status, assignedOnly, page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(orders, total, page))
}

// UpdateOrderStatus handles PUT /api/v1/shipper/orders/{id}/status
func (h *ShipperHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	req, ok := decodeStatusRequest(w, r)
	if !ok {
		return
	}

	order, err := h.orders.ShipperUpdateStatus(r.Context(), id.String(), req.Status, req.Reason, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}
