package attachment

import (
	"errors"
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AttachmentHandler serves signed attachment downloads.
type AttachmentHandler struct {
	service *Service
	logger  *zap.Logger
}

func NewAttachmentHandler(service *Service, logger *zap.Logger) *AttachmentHandler {
	return &AttachmentHandler{service: service, logger: logger}
}

// Download streams the attachment referenced by the signed token.
func (h *AttachmentHandler) Download(c echo.Context) error {
	p, err := h.service.Open(c.Request().Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Attachment not found"})
		}
		h.logger.Debug("rejected attachment download", zap.Error(err))
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Invalid or expired link"})
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		mime.FormatMediaType("attachment", map[string]string{"filename": p.FileName}))
	return c.Blob(http.StatusOK, p.MimeType, p.Content)
}
