package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderCreatedData struct {
	OrderID string `json:"order_id"`
	Total   int64  `json:"total"`
}

func TestNewEvent(t *testing.T) {
	e, err := NewEvent("order.created", "ord-1", "order", "order-service", orderCreatedData{OrderID: "ord-1", Total: 15990000})
	require.NoError(t, err)

	assert.NotEmpty(t, e.EventID)
	assert.Equal(t, "order.created", e.EventType)
	assert.Equal(t, "ord-1", e.AggregateID)
	assert.Equal(t, "order", e.AggregateType)
	assert.Equal(t, 1, e.Version)
	assert.Equal(t, "order-service", e.Source)
	assert.False(t, e.Timestamp.IsZero())
}

func TestEventRoundTrip(t *testing.T) {
	e, err := NewEvent("order.status_changed", "ord-2", "order", "order-service", orderCreatedData{OrderID: "ord-2"})
	require.NoError(t, err)
	e.WithCorrelationID("corr-7").WithMetadata("actor_role", "admin")

	raw, err := e.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, e.EventID, decoded.EventID)
	assert.Equal(t, "corr-7", decoded.CorrelationID)
	assert.Equal(t, "admin", decoded.Metadata["actor_role"])

	var data orderCreatedData
	require.NoError(t, decoded.UnmarshalData(&data))
	assert.Equal(t, "ord-2", data.OrderID)
}

func TestUnmarshalEvent_Invalid(t *testing.T) {
	_, err := UnmarshalEvent([]byte("{broken"))
	assert.Error(t, err)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "holaphone.order.created", Topic("order", "created"))
	assert.Equal(t, "holaphone.order.status_changed", Topic("order", "status_changed"))
}
