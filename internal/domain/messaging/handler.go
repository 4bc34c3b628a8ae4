package messaging

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
	read.GET("/messages", h.Inbox)
	read.GET("/messages/unread", h.UnreadCount)
	read.GET("/messages/:id", h.Open)

	api.POST("/messages", h.Compose, auth.Require(auth.ActionSendMessage))
	api.POST("/messages/escalate", h.Escalate, auth.Require(auth.ActionEscalate))
}

func (h *Handler) Compose(c echo.Context) error {
	var in ComposeInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p := session.PrincipalFromContext(c.Request().Context())
	m, err := h.svc.Compose(c.Request().Context(), p, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) Escalate(c echo.Context) error {
	var in EscalateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p := session.PrincipalFromContext(c.Request().Context())
	m, err := h.svc.Escalate(c.Request().Context(), p, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) Inbox(c echo.Context) error {
	pg := pagination.FromContext(c)
	p := session.PrincipalFromContext(c.Request().Context())

	messages, total, err := h.svc.Inbox(c.Request().Context(), p, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(messages, total, pg.Limit, pg.Offset))
}

func (h *Handler) UnreadCount(c echo.Context) error {
	p := session.PrincipalFromContext(c.Request().Context())
	n, err := h.svc.UnreadCount(c.Request().Context(), p)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"unread": n})
}

func (h *Handler) Open(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid message id")
	}

	p := session.PrincipalFromContext(c.Request().Context())
	m, err := h.svc.Open(c.Request().Context(), p, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, m)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotRecipient):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
