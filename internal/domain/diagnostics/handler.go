package diagnostics

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mmh/hms/internal/platform/auth"
	"github.com/mmh/hms/internal/platform/blobstore"
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
	read.GET("/tests", h.ListResults)
	read.GET("/tests/:id", h.GetResult)
	read.GET("/tests/images/:imageID", h.GetImage)

	api.POST("/patients/:id/tests", h.RequestTest, auth.Require(auth.ActionRequestTest))
	api.POST("/tests/:id/fulfill", h.FulfillTest, auth.Require(auth.ActionFulfillTest))
}

func (h *Handler) RequestTest(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var in RequestInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p := session.PrincipalFromContext(c.Request().Context())
	tr, err := h.svc.Request(c.Request().Context(), p, patientID, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, tr)
}

// FulfillTest accepts a multipart form: result_value plus an optional image
// part for radiology results.
func (h *Handler) FulfillTest(c echo.Context) error {
	resultID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid result id")
	}

	in := FulfillInput{ResultValue: c.FormValue("result_value")}
	if fh, err := c.FormFile("image"); err == nil {
		src, err := fh.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable image upload")
		}
		defer src.Close()
		in.Image = &ImageUpload{FileName: fh.Filename, Content: src}
	}

	p := session.PrincipalFromContext(c.Request().Context())
	tr, err := h.svc.Fulfill(c.Request().Context(), p, resultID, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, tr)
}

func (h *Handler) GetResult(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid result id")
	}
	p := session.PrincipalFromContext(c.Request().Context())
	tr, err := h.svc.Get(c.Request().Context(), p, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, tr)
}

func (h *Handler) ListResults(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{
		TestType: c.QueryParam("test_type"),
		Status:   c.QueryParam("status"),
		Category: c.QueryParam("category"),
	}
	if raw := c.QueryParam("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = id
	}

	p := session.PrincipalFromContext(c.Request().Context())
	results, total, err := h.svc.List(c.Request().Context(), p, f, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(results, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetImage(c echo.Context) error {
	p := session.PrincipalFromContext(c.Request().Context())
	rc, meta, err := h.svc.OpenImage(c.Request().Context(), p, c.Param("imageID"))
	if err != nil {
		return httpError(err)
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentType, meta.ContentType)
	c.Response().WriteHeader(http.StatusOK)
	_, err = io.Copy(c.Response(), rc)
	return err
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPatientNotFound),
		errors.Is(err, blobstore.ErrImageNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalid), errors.Is(err, blobstore.ErrImageTooLarge),
		errors.Is(err, blobstore.ErrUnsupportedType), errors.Is(err, blobstore.ErrMissingFileName):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrWrongDepartment), errors.Is(err, ErrWrongCategory):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrDischarged), errors.Is(err, ErrAlreadyCompleted):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
