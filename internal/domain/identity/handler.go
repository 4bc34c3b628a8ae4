package identity

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mmh/hms/internal/platform/auth"
	"github.com/mmh/hms/internal/platform/session"
	"github.com/mmh/hms/pkg/pagination"
)

type Handler struct {
	svc          *Service
	sessions     session.Store
	issuer       *session.TokenIssuer
	secureCookie bool
}

func NewHandler(svc *Service, sessions session.Store, issuer *session.TokenIssuer, secureCookie bool) *Handler {
	return &Handler{svc: svc, sessions: sessions, issuer: issuer, secureCookie: secureCookie}
}

// RegisterPublicRoutes mounts the unauthenticated login endpoint.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/login", h.Login)
}

// RegisterRoutes mounts the session-bound endpoints.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/logout", h.Logout, auth.RequireAuthenticated())
	api.GET("/me", h.Me, auth.RequireAuthenticated())
	api.GET("/departments", h.ListDepartments, auth.RequireAuthenticated())

	admin := api.Group("/users", auth.Require(auth.ActionManageUsers))
	admin.POST("", h.CreateUser)
	admin.GET("", h.ListUsers)
	admin.GET("/:id", h.GetUser)
	admin.PUT("/:id", h.UpdateUser)
	admin.POST("/:id/deactivate", h.DeactivateUser)
	admin.POST("/:id/reactivate", h.ReactivateUser)
	admin.POST("/:id/password", h.ResetPassword)
}

type loginRequest struct {
	EmployeeID string `json:"employee_id"`
	Password   string `json:"password"`
}

type loginResponse struct {
	User      *User  `json:"user"`
	CSRFToken string `json:"csrf_token"`
}

// Login verifies credentials, opens a server-side session, and hands the
// browser a signed cookie plus the initial CSRF token.
func (h *Handler) Login(c echo.Context) error {
	var in loginRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if in.EmployeeID == "" || in.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "employee_id and password are required")
	}

	u, err := h.svc.Authenticate(c.Request().Context(), in.EmployeeID, in.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrInactive) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid employee id or password")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "login unavailable")
	}

	now := time.Now().UTC()
	sess := &session.Session{
		ID:         uuid.New(),
		UserID:     u.ID,
		Username:   u.Username,
		Role:       u.Role,
		Department: u.Department,
		CSRFToken:  session.NewCSRFToken(),
		CreatedAt:  now,
		ExpiresAt:  now.Add(h.issuer.TTL()),
	}
	if err := h.sessions.Create(c.Request().Context(), sess); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "login unavailable")
	}

	token, err := h.issuer.Issue(sess.ID, now)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "login unavailable")
	}
	session.SetCookie(c, token, h.issuer.TTL(), h.secureCookie)

	return c.JSON(http.StatusOK, loginResponse{User: u, CSRFToken: sess.CSRFToken})
}

// Logout revokes the current session and clears the cookie.
func (h *Handler) Logout(c echo.Context) error {
	p := session.PrincipalFromContext(c.Request().Context())
	if err := h.sessions.Revoke(c.Request().Context(), p.SessionID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "logout failed")
	}
	session.ClearCookie(c, h.secureCookie)
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's account.
func (h *Handler) Me(c echo.Context) error {
	p := session.PrincipalFromContext(c.Request().Context())
	u, err := h.svc.Get(c.Request().Context(), p.UserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ListDepartments(c echo.Context) error {
	deps, err := h.svc.ListDepartments(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, deps)
}

func (h *Handler) CreateUser(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) ListUsers(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{
		Role:       c.QueryParam("role"),
		Department: c.QueryParam("department"),
		ActiveOnly: c.QueryParam("active") == "true",
	}
	users, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(users, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	u, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) DeactivateUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Deactivate(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ReactivateUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Reactivate(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ResetPassword(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in struct {
		Password string `json:"password"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ResetPassword(c.Request().Context(), id, in.Password); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrDuplicateEmployee):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
