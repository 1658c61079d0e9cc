package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityRoundTrip(t *testing.T) {
	ctx := WithIdentity(context.Background(), "user-1", "user@example.com", "admin")

	assert.Equal(t, "user-1", UserID(ctx))
	assert.Equal(t, "user@example.com", Email(ctx))
	assert.Equal(t, "admin", Role(ctx))
}

func TestIdentityHelpers_EmptyContext(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, UserID(ctx))
	assert.Empty(t, Email(ctx))
	assert.Empty(t, Role(ctx))
}

func TestRequireAdmin(t *testing.T) {
	var reached bool
	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/show/now-playing", nil)
	req = req.WithContext(WithIdentity(req.Context(), "user-1", "", "admin"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin_RejectsNonAdmin(t *testing.T) {
	var reached bool
	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	for _, role := range []string{"", "user"} {
		req := httptest.NewRequest(http.MethodGet, "/api/show/now-playing", nil)
		req = req.WithContext(WithIdentity(req.Context(), "user-1", "", role))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.False(t, reached)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	}
}
