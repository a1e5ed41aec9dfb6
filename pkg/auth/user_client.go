package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultUserClientTimeout is the maximum time to wait for the identity provider.
const DefaultUserClientTimeout = 10 * time.Second

// maxUserResponseBytes caps how much of the provider's response is read.
const maxUserResponseBytes = 1 << 20

// UserClient resolves tokens by asking the identity provider who they belong to
// (GET <endpoint> with the caller's bearer token).
type UserClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewUserClient creates a client for the provider's current-user endpoint.
// apiKey is sent as the apikey header when non-empty.
func NewUserClient(endpoint, apiKey string, timeout time.Duration, logger *zap.Logger) *UserClient {
	if timeout <= 0 {
		timeout = DefaultUserClientTimeout
	}
	return &UserClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.Named("identity"),
	}
}

// userResponse is the subset of the provider's user object we read.
type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ResolveUser exchanges a token for the user it belongs to.
// 401/403/404 from the provider mean the token has no live session and
// return ErrInvalidToken; any other failure is returned as an upstream error.
func (c *UserClient) ResolveUser(ctx context.Context, token string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call identity provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		c.logger.Debug("Identity provider rejected token", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: provider returned status %d", ErrInvalidToken, resp.StatusCode)
	default:
		c.logger.Error("Identity provider returned error",
			zap.Int("status", resp.StatusCode),
			zap.Int("body_bytes", len(body)))
		return nil, fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	var user userResponse
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if user.ID == "" {
		return nil, fmt.Errorf("%w: provider returned no user", ErrInvalidToken)
	}

	id, err := uuid.Parse(user.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: user id is not a UUID", ErrInvalidToken)
	}
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: user id is the nil UUID", ErrInvalidToken)
	}

	return &User{ID: id, Email: user.Email, Role: user.Role}, nil
}

var _ IdentityProvider = (*UserClient)(nil)
