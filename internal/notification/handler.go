package notification

import (
	"net/http"
	"strconv"

	"CampusNotify/internal/apperr"
	"CampusNotify/internal/auth"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// transparentGIF is a 1x1 transparent GIF.
var transparentGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

type MessageHandler struct {
	service *Service
	logger  *zap.Logger
}

func NewMessageHandler(service *Service, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{service: service, logger: logger}
}

func (h *MessageHandler) identity(c echo.Context) (auth.Identity, bool) {
	claims, ok := c.Get("user").(*auth.JWTClaims)
	if !ok || claims == nil {
		return auth.Identity{}, false
	}
	return claims.Identity(), true
}

func (h *MessageHandler) fail(c echo.Context, err error) error {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.JSON(status, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(status, map[string]string{"error": apperr.Message(err)})
}

// Create handles POST /api/messages.
func (h *MessageHandler) Create(c echo.Context) error {
	id, ok := h.identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	view, err := h.service.Create(c.Request().Context(), id, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, view)
}

// List handles GET /api/messages.
func (h *MessageHandler) List(c echo.Context) error {
	id, ok := h.identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("pageSize"))
	self, _ := strconv.ParseBool(c.QueryParam("self"))
	res, err := h.service.List(c.Request().Context(), id, ListQuery{
		TenantID: c.QueryParam("tenantId"),
		Year:     c.QueryParam("year"),
		Query:    c.QueryParam("q"),
		Self:     self,
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Get handles GET /api/messages/:id.
func (h *MessageHandler) Get(c echo.Context) error {
	id, ok := h.identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	view, err := h.service.Get(c.Request().Context(), id, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// Delete handles DELETE /api/messages/:id.
func (h *MessageHandler) Delete(c echo.Context) error {
	id, ok := h.identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	if err := h.service.Delete(c.Request().Context(), id, c.Param("id")); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkRead handles POST /api/messages/:id/read.
func (h *MessageHandler) MarkRead(c echo.Context) error {
	id, ok := h.identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	view, err := h.service.MarkRead(c.Request().Context(), id, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// ProcessScheduled handles POST /api/messages/process-scheduled.
func (h *MessageHandler) ProcessScheduled(c echo.Context) error {
	id, ok := h.identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	n, err := h.service.ProcessScheduled(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"processed": n})
}

// Track serves the open-tracking pixel. It always answers with the image.
func (h *MessageHandler) Track(c echo.Context) error {
	h.service.TrackOpen(c.Request().Context(), c.Param("id"), c.QueryParam("recipient"))
	c.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	return c.Blob(http.StatusOK, "image/gif", transparentGIF)
}
