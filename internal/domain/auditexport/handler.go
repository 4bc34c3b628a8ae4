package auditexport

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mmh/hms/internal/platform/auth"
	"github.com/mmh/hms/internal/platform/session"
	"github.com/mmh/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/export-log", h.LogExport, auth.Require(auth.ActionLogExport))
	api.GET("/export-log", h.ListExports, auth.Require(auth.ActionViewReports))
}

// LogExport is called by the browser alongside a download. It answers JSON
// rather than the usual envelope; clients only check the success flag.
func (h *Handler) LogExport(c echo.Context) error {
	var in struct {
		ExportType string `json:"export_type"`
	}
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}

	p := session.PrincipalFromContext(c.Request().Context())
	if _, err := h.svc.Log(c.Request().Context(), p, in.ExportType); err != nil {
		if errors.Is(err, ErrInvalid) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "export_type is required"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not record export"})
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) ListExports(c echo.Context) error {
	pg := pagination.FromContext(c)
	entries, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, pg.Limit, pg.Offset))
}
