package device

import (
	"net/http"

	"CampusNotify/internal/auth"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// DeviceHandler exposes device registration.
type DeviceHandler struct {
	service *Service
	logger  *zap.Logger
}

func NewDeviceHandler(service *Service, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{service: service, logger: logger}
}

// Register binds the caller's address to a push token.
func (h *DeviceHandler) Register(c echo.Context) error {
	claims, ok := c.Get("user").(*auth.JWTClaims)
	if !ok || claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	id := claims.Identity()
	tenant := req.TenantID
	if tenant == "" {
		tenant = id.TenantID
	}
	if err := h.service.Register(c.Request().Context(), id.Email, req.Token, req.Platform, tenant); err != nil {
		h.logger.Error("device registration failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to register device"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Unregister removes one of the caller's push tokens.
func (h *DeviceHandler) Unregister(c echo.Context) error {
	claims, ok := c.Get("user").(*auth.JWTClaims)
	if !ok || claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	if err := h.service.Unregister(c.Request().Context(), claims.Identity().Email, c.Param("token")); err != nil {
		h.logger.Error("device unregister failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to unregister device"})
	}
	return c.NoContent(http.StatusNoContent)
}
