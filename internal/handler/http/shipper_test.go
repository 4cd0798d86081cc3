package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holaphone/order-service/internal/domain"
	"github.com/holaphone/order-service/internal/repository"
)

func assignedSampleOrder(status string) *domain.Order {
	o := sampleOrder(status)
	shipperID := "shipper-007"
	o.ShipperID = &shipperID
	return o
}

func TestShipperListOrders_Default(t *testing.T) {
	router, repos := setupRouter(t)

	repos.orders.On("List", mock.Anything, mock.MatchedBy(func(f repository.OrderFilter) bool {
		return f.ShipperID == nil && len(f.Statuses) == 4
	})).Return([]domain.Order{*assignedSampleOrder(domain.OrderStatusReadyToShip)}, 1, nil)

	rec := doRequest(router, http.MethodGet, "/api/v1/shipper/orders", "shipper-007|shipper", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestShipperListOrders_AssignedOnly(t *testing.T) {
	router, repos := setupRouter(t)

	repos.orders.On("List", mock.Anything, mock.MatchedBy(func(f repository.OrderFilter) bool {
		return f.ShipperID != nil && *f.ShipperID == "shipper-007" &&
			f.Status != nil && *f.Status == domain.OrderStatusShipped
	})).Return([]domain.Order{}, 0, nil)

	rec := doRequest(router, http.MethodGet, "/api/v1/shipper/orders?assigned_only=true&status=shipped", "shipper-007|shipper", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestShipperListOrders_BadBoolean(t *testing.T) {
	router, _ := setupRouter(t)

	rec := doRequest(router, http.MethodGet, "/api/v1/shipper/orders?assigned_only=maybe", "shipper-007|shipper", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShipperListOrders_CustomerForbidden(t *testing.T) {
	router, _ := setupRouter(t)

	rec := doRequest(router, http.MethodGet, "/api/v1/shipper/orders", "user-456|customer", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestShipperUpdateStatus_Delivered(t *testing.T) {
	router, repos := setupRouter(t)

	repos.orders.On("GetByID", mock.Anything, orderID).Return(assignedSampleOrder(domain.OrderStatusShipped), nil)
	repos.orders.On("Update", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil)

	body, _ := json.Marshal(UpdateStatusRequest{Status: domain.OrderStatusDelivered})
	rec := doRequest(router, http.MethodPut, "/api/v1/shipper/orders/"+orderID+"/status", "shipper-007|shipper", body)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, domain.OrderStatusDelivered, data["status"])
	// COD settles on delivery.
	assert.Equal(t, domain.PaymentStatusPaid, data["payment_status"])
}

func TestShipperUpdateStatus_NotAssigned(t *testing.T) {
	router, repos := setupRouter(t)

	repos.orders.On("GetByID", mock.Anything, orderID).Return(assignedSampleOrder(domain.OrderStatusShipped), nil)

	body, _ := json.Marshal(UpdateStatusRequest{Status: domain.OrderStatusDelivered})
	rec := doRequest(router, http.MethodPut, "/api/v1/shipper/orders/"+orderID+"/status", "shipper-999|shipper", body)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestShipperUpdateStatus_FailureNeedsReason(t *testing.T) {
	router, repos := setupRouter(t)

	repos.orders.On("GetByID", mock.Anything, orderID).Return(assignedSampleOrder(domain.OrderStatusShipped), nil)

	body, _ := json.Marshal(UpdateStatusRequest{Status: domain.OrderStatusDeliveryFailed})
	rec := doRequest(router, http.MethodPut, "/api/v1/shipper/orders/"+orderID+"/status", "shipper-007|shipper", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

func TestShipperUpdateStatus_ForeignTarget(t *testing.T) {
	router, _ := setupRouter(t)

	body, _ := json.Marshal(UpdateStatusRequest{Status: domain.OrderStatusReceived})
	rec := doRequest(router, http.MethodPut, "/api/v1/shipper/orders/"+orderID+"/status", "shipper-007|shipper", body)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
