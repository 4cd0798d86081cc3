package httpclient

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/holaphone/order-service/pkg/errors"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastConfig() Config {
	return Config{
		Timeout:         2 * time.Second,
		MaxRetries:      2,
		RetryWaitMin:    time.Millisecond,
		RetryWaitMax:    5 * time.Millisecond,
		MaxConnsPerHost: 10,
	}
}

func TestClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"email":"jo@example.com"}}`))
	}))
	defer srv.Close()

	resp, err := New(fastConfig()).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClient_RetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	resp, err := New(fastConfig()).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetry4xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	resp, err := New(fastConfig()).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestParseResponseError_StructuredBody(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"not found", http.StatusNotFound, `{"error":{"code":"NOT_FOUND","message":"user missing"}}`, apperrors.ErrNotFound},
		{"bad request", http.StatusBadRequest, `{"error":{"code":"INVALID_INPUT","message":"bad id"}}`, apperrors.ErrInvalidInput},
		{"conflict", http.StatusConflict, `{"error":{"code":"CONFLICT","message":"duplicate"}}`, apperrors.ErrAlreadyExists},
		{"forbidden", http.StatusForbidden, `{"error":{"code":"FORBIDDEN","message":"nope"}}`, apperrors.ErrForbidden},
		{"gone", http.StatusGone, `{"error":{"code":"GONE","message":"expired"}}`, apperrors.ErrGone},
		{"unprocessable", http.StatusUnprocessableEntity, `{"error":{"code":"STATE_CONFLICT","message":"stale"}}`, apperrors.ErrStateConflict},
		{"unavailable", http.StatusServiceUnavailable, `{"error":{"code":"SERVICE_UNAVAILABLE","message":"down"}}`, apperrors.ErrServiceUnavail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{
				StatusCode: tt.status,
				Body:       io.NopCloser(strings.NewReader(tt.body)),
			}
			err := ParseResponseError(resp, "user-service")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestParseResponseError_UnstructuredBody(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusBadGateway,
		Body:       io.NopCloser(strings.NewReader("upstream timeout")),
	}
	err := ParseResponseError(resp, "user-service")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user-service returned status 502")
	assert.Contains(t, err.Error(), "upstream timeout")
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(http.StatusBadRequest))
	assert.True(t, IsClientError(http.StatusConflict))
	assert.False(t, IsClientError(http.StatusOK))
	assert.False(t, IsClientError(http.StatusBadGateway))
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := Config{Timeout: time.Second, MaxRetries: 0, RetryWaitMin: time.Millisecond, RetryWaitMax: time.Millisecond, MaxConnsPerHost: 10}
	cbCfg := CircuitBreakerConfig{
		Name:         "test-user-profile",
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
	cb := NewCircuitBreakerClient(New(cfg), cbCfg, quietLogger())

	for i := 0; i < 5; i++ {
		_, _ = cb.Get(context.Background(), srv.URL)
	}

	_, err := cb.Get(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_FallbackInvokedWhenOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := Config{Timeout: time.Second, MaxRetries: 0, RetryWaitMin: time.Millisecond, RetryWaitMax: time.Millisecond, MaxConnsPerHost: 10}
	cbCfg := CircuitBreakerConfig{
		Name:         "test-user-profile-fallback",
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  2,
	}
	cb := NewCircuitBreakerClient(New(cfg), cbCfg, quietLogger()).WithFallback(
		func(ctx context.Context, err error) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`{"data":{"email":"cached@example.com"}}`)),
			}, nil
		})

	for i := 0; i < 4; i++ {
		_, _ = cb.Get(context.Background(), srv.URL)
	}

	resp, err := cb.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "cached@example.com")
}
