package vitals

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
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
	read := api.Group("", auth.RequireAuthenticated())
	read.GET("/patients/:id/vitals", h.History)
	read.GET("/patients/:id/vitals/latest", h.Latest)

	api.POST("/patients/:id/vitals", h.Record, auth.Require(auth.ActionRecordVitals))
}

func (h *Handler) Record(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var in RecordInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p := session.PrincipalFromContext(c.Request().Context())
	rd, err := h.svc.Record(c.Request().Context(), p, patientID, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, rd)
}

func (h *Handler) History(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)

	p := session.PrincipalFromContext(c.Request().Context())
	readings, total, err := h.svc.History(c.Request().Context(), p, patientID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(readings, total, pg.Limit, pg.Offset))
}

func (h *Handler) Latest(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	p := session.PrincipalFromContext(c.Request().Context())
	rd, err := h.svc.Latest(c.Request().Context(), p, patientID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rd)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrWrongDepartment):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrDischarged):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
