package patient

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
	read.GET("/patients", h.ListPatients)
	read.GET("/patients/:id", h.GetPatient)
	read.GET("/deaths", h.ListDeaths)

	api.POST("/patients", h.AdmitPatient, auth.Require(auth.ActionAdmitPatient))
	api.PUT("/patients/:id", h.EditPatient, auth.Require(auth.ActionEditPatient))
	api.POST("/patients/:id/discharge", h.DischargePatient, auth.Require(auth.ActionDischargePatient))
	api.POST("/patients/:id/bed", h.AssignBed, auth.Require(auth.ActionAssignBed))
	api.POST("/patients/:id/death", h.RecordDeath, auth.Require(auth.ActionRecordDeath))
}

func (h *Handler) AdmitPatient(c echo.Context) error {
	var in AdmitInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p := session.PrincipalFromContext(c.Request().Context())
	pt, err := h.svc.Admit(c.Request().Context(), p, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, pt)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p := session.PrincipalFromContext(c.Request().Context())
	pt, err := h.svc.GetFor(c.Request().Context(), p, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pt)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{
		Department:   c.QueryParam("department"),
		CriticalOnly: c.QueryParam("critical") == "true",
		AdmittedOnly: c.QueryParam("admitted") == "true",
	}

	p := session.PrincipalFromContext(c.Request().Context())
	patients, total, err := h.svc.List(c.Request().Context(), p, f, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, pg.Limit, pg.Offset))
}

func (h *Handler) EditPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in EditInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p := session.PrincipalFromContext(c.Request().Context())
	pt, err := h.svc.Edit(c.Request().Context(), p, id, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pt)
}

func (h *Handler) DischargePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in struct {
		Notes string `json:"notes"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p := session.PrincipalFromContext(c.Request().Context())
	if err := h.svc.Discharge(c.Request().Context(), p, id, in.Notes); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AssignBed(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in struct {
		BedNumber string `json:"bed_number"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p := session.PrincipalFromContext(c.Request().Context())
	if err := h.svc.AssignBed(c.Request().Context(), p, id, in.BedNumber); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RecordDeath(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in DeathInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p := session.PrincipalFromContext(c.Request().Context())
	death, err := h.svc.RecordDeath(c.Request().Context(), p, id, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, death)
}

func (h *Handler) ListDeaths(c echo.Context) error {
	pg := pagination.FromContext(c)
	p := session.PrincipalFromContext(c.Request().Context())
	deaths, total, err := h.svc.ListDeaths(c.Request().Context(), p, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(deaths, total, pg.Limit, pg.Offset))
}

// httpError maps service errors to HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrWrongDepartment):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrDischarged), errors.Is(err, ErrDeathRecorded):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
