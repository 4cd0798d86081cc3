// Package client holds HTTP clients for sibling services.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/holaphone/order-service/pkg/httpclient"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// UserProfile is the slice of the user service's account record the order
// service needs when addressing notifications.
type UserProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// UserClient resolves user profiles from the user service.
type UserClient struct {
	httpClient HTTPDoer
	baseURL    string
	logger     *slog.Logger
}

// NewUserClient creates a client against the user service at baseURL.
func NewUserClient(httpClient HTTPDoer, baseURL string, logger *slog.Logger) *UserClient {
	return &UserClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// GetProfile fetches the profile for a user id.
func (c *UserClient) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	endpoint := c.baseURL + "/api/v1/users/" + url.PathEscape(userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create user profile request: %w", err)
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call user service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "user")
	}

	var profile UserProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode user profile response: %w", err)
	}

	c.logger.DebugContext(ctx, "resolved user profile",
		slog.String("user_id", userID),
	)

	return &profile, nil
}
