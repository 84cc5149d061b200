package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"CampusNotify/internal/auth"
	"CampusNotify/internal/config"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	auth.SetJWTKey([]byte("test-signing-key"))
	enf, err := NewEnforcer(&config.AppConfig{}, zap.NewNop())
	require.NoError(t, err)

	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	api := e.Group("/api", JWTMiddleware, CasbinMiddleware(enf, zap.NewNop()))
	api.POST("/messages", ok)
	api.GET("/messages", ok)
	api.DELETE("/messages/:id", ok)
	api.POST("/messages/process-scheduled", ok)
	return e
}

func call(t *testing.T, e *echo.Echo, method, path string, role auth.Role) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if role != "" {
		token, err := auth.GenerateJWT("Test", "user@school.test", role, "t1", time.Hour)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestJWTMiddleware(t *testing.T) {
	e := newServer(t)

	assert.Equal(t, http.StatusUnauthorized, call(t, e, http.MethodGet, "/api/messages", ""))

	req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-token")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCasbinPolicies(t *testing.T) {
	e := newServer(t)
	tests := []struct {
		name   string
		method string
		path   string
		role   auth.Role
		want   int
	}{
		{"teacher sends", http.MethodPost, "/api/messages", auth.RoleTeacher, http.StatusOK},
		{"student cannot send", http.MethodPost, "/api/messages", auth.RoleStudent, http.StatusForbidden},
		{"guardian lists", http.MethodGet, "/api/messages", auth.RoleGuardian, http.StatusOK},
		{"student deletes", http.MethodDelete, "/api/messages/abc", auth.RoleStudent, http.StatusOK},
		{"admin sweeps", http.MethodPost, "/api/messages/process-scheduled", auth.RoleAdmin, http.StatusOK},
		{"teacher cannot sweep", http.MethodPost, "/api/messages/process-scheduled", auth.RoleTeacher, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, call(t, e, tt.method, tt.path, tt.role))
		})
	}
}
