package notification

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"CampusNotify/internal/auth"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newContext(method, target, body string, claims *auth.JWTClaims) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if claims != nil {
		c.Set("user", claims)
	}
	return c, rec
}

func TestHandlerCreate(t *testing.T) {
	h := newHarness()
	handler := NewMessageHandler(h.service, zap.NewNop())

	c, rec := newContext(http.MethodPost, "/api/messages",
		`{"content":"hello","recipients":["kid@school.test"]}`,
		&auth.JWTClaims{Name: "Ada Admin", Email: "admin@school.test", Role: "admin", TenantID: "t1"})
	require.NoError(t, handler.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "SENT", body["status"])
	assert.Equal(t, true, body["canDelete"])
}

func TestHandlerMapsErrors(t *testing.T) {
	h := newHarness()
	h.perms["teacher@school.test"] = []string{"math-9a"}
	handler := NewMessageHandler(h.service, zap.NewNop())

	c, rec := newContext(http.MethodPost, "/api/messages",
		`{"content":"hw","groupIds":["unauthorized-group"]}`,
		&auth.JWTClaims{Email: "teacher@school.test", Role: "teacher", TenantID: "t1"})
	require.NoError(t, handler.Create(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "outside your permissions")

	c, rec = newContext(http.MethodGet, "/api/messages/missing", "",
		&auth.JWTClaims{Email: "admin@school.test", Role: "admin", TenantID: "t1"})
	c.SetParamNames("id")
	c.SetParamValues("missing")
	require.NoError(t, handler.Get(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = newContext(http.MethodPost, "/api/messages", `{}`, nil)
	require.NoError(t, handler.Create(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerProcessScheduled(t *testing.T) {
	h := newHarness()
	handler := NewMessageHandler(h.service, zap.NewNop())

	c, rec := newContext(http.MethodPost, "/api/messages/process-scheduled", "",
		&auth.JWTClaims{Email: "root@platform.test", Role: "superadmin"})
	require.NoError(t, handler.ProcessScheduled(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"processed":0}`, rec.Body.String())
}

func TestHandlerTrackAlwaysServesPixel(t *testing.T) {
	h := newHarness()
	handler := NewMessageHandler(h.service, zap.NewNop())

	c, rec := newContext(http.MethodGet, "/messages/nope/track?recipient=kid%40school.test", "", nil)
	c.SetParamNames("id")
	c.SetParamValues("nope")
	require.NoError(t, handler.Track(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/gif", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, transparentGIF, rec.Body.Bytes())
}
