package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorError(t *testing.T) {
	err := NotFound("order", "42")
	assert.Contains(t, err.Error(), "NOT_FOUND")
	assert.Contains(t, err.Error(), "order with id 42 not found")

	wrapped := Internal(stderrors.New("pg: connection refused"))
	assert.Contains(t, wrapped.Error(), "pg: connection refused")
}

func TestAppErrorUnwrap(t *testing.T) {
	err := StateConflict("order is already delivered")
	assert.True(t, stderrors.Is(err, ErrStateConflict))

	cause := stderrors.New("boom")
	assert.True(t, stderrors.Is(Internal(cause), cause))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NotFound("voucher", "x"), http.StatusNotFound},
		{"already exists", AlreadyExists("voucher", "code", "SALE10"), http.StatusConflict},
		{"invalid input", InvalidInput("quantity must be positive"), http.StatusBadRequest},
		{"state conflict", StateConflict("insufficient stock"), http.StatusBadRequest},
		{"unauthorized", Unauthorized("missing token"), http.StatusUnauthorized},
		{"forbidden", Forbidden("not your order"), http.StatusForbidden},
		{"gone", Gone("voucher expired"), http.StatusGone},
		{"service unavailable", ServiceUnavailable("user profile lookup failed"), http.StatusServiceUnavailable},
		{"internal", Internal(stderrors.New("boom")), http.StatusInternalServerError},
		{"wrapped sentinel", Wrap(ErrNotFound, "load order"), http.StatusNotFound},
		{"wrapped state sentinel", Wrap(ErrStateConflict, "apply voucher"), http.StatusBadRequest},
		{"plain error", stderrors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
