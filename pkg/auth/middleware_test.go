package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockProvider is a mock implementation of IdentityProvider for testing.
type mockProvider struct {
	user      *User
	err       error
	lastToken string
	calls     int
}

func (m *mockProvider) ResolveUser(ctx context.Context, token string) (*User, error) {
	m.calls++
	m.lastToken = token
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Len(t, body, 1)
	return body["error"]
}

func TestMiddleware_RequireUser_Success(t *testing.T) {
	user := &User{ID: uuid.MustParse(testUserID)}
	provider := &mockProvider{user: user}
	middleware := NewMiddleware(provider, zap.NewNop())

	var ctxUser *User
	var ctxToken string
	handler := middleware.RequireUser(func(w http.ResponseWriter, r *http.Request) {
		ctxUser, _ = GetUser(r.Context())
		ctxToken, _ = GetToken(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/observations", nil)
	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	rec := httptest.NewRecorder()

	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user, ctxUser)
	assert.Equal(t, "abc.def.ghi", ctxToken)
	assert.Equal(t, "abc.def.ghi", provider.lastToken)
}

func TestMiddleware_RequireUser_MissingToken(t *testing.T) {
	headers := []string{"", "Basic dXNlcjpwYXNz", "Bearer ", "bearer abc"}

	for _, header := range headers {
		t.Run(header, func(t *testing.T) {
			provider := &mockProvider{}
			middleware := NewMiddleware(provider, zap.NewNop())

			called := false
			handler := middleware.RequireUser(func(w http.ResponseWriter, r *http.Request) {
				called = true
			})

			req := httptest.NewRequest(http.MethodPost, "/api/observations", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)

			assert.False(t, called)
			assert.Equal(t, 0, provider.calls, "provider must not be consulted without a token")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "missing_bearer_token", decodeError(t, rec))
		})
	}
}

func TestMiddleware_RequireUser_Unauthenticated(t *testing.T) {
	providers := map[string]*mockProvider{
		"invalid token":  {err: ErrInvalidToken},
		"upstream error": {err: errors.New("connection refused")},
		"nil user":       {},
		"nil user id":    {user: &User{ID: uuid.Nil}},
	}

	for name, provider := range providers {
		t.Run(name, func(t *testing.T) {
			middleware := NewMiddleware(provider, zap.NewNop())
			handler := middleware.RequireUser(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			})

			req := httptest.NewRequest(http.MethodPost, "/api/observations", nil)
			req.Header.Set("Authorization", "Bearer stale")
			rec := httptest.NewRecorder()
			handler(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, "unauthenticated", decodeError(t, rec))
		})
	}
}
