package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mmh/hms/internal/platform/session"
)

// memSessions is a map-backed session.Store for handler tests.
type memSessions struct {
	sessions map[uuid.UUID]*session.Session
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[uuid.UUID]*session.Session)}
}

func (m *memSessions) Create(_ context.Context, s *session.Session) error {
	m.sessions[s.ID] = s
	return nil
}

func (m *memSessions) Get(_ context.Context, id uuid.UUID) (*session.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return s, nil
}

func (m *memSessions) RotateCSRF(_ context.Context, id uuid.UUID) (string, error) {
	s, ok := m.sessions[id]
	if !ok {
		return "", session.ErrNotFound
	}
	s.CSRFToken = session.NewCSRFToken()
	return s.CSRFToken, nil
}

func (m *memSessions) Revoke(_ context.Context, id uuid.UUID) error {
	s, ok := m.sessions[id]
	if !ok {
		return session.ErrNotFound
	}
	now := time.Now()
	s.RevokedAt = &now
	return nil
}

func (m *memSessions) RevokeAllForUser(_ context.Context, userID uuid.UUID) error {
	now := time.Now()
	for _, s := range m.sessions {
		if s.UserID == userID {
			s.RevokedAt = &now
		}
	}
	return nil
}

func (m *memSessions) Cleanup(_ context.Context) error { return nil }

func newTestHandler() (*Handler, *mockRepo, *memSessions) {
	repo := newMockRepo()
	sessions := newMemSessions()
	svc := NewService(repo, sessions)
	issuer := session.NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	return NewHandler(svc, sessions, issuer, false), repo, sessions
}

func jsonRequest(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestLogin(t *testing.T) {
	h, _, sessions := newTestHandler()
	h.svc.Create(context.Background(), validInput())

	c, rec := jsonRequest(http.MethodPost, "/login", `{"employee_id":"EMP-1042","password":"correct horse battery"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.CSRFToken == "" {
		t.Error("login must return the initial anti-forgery token")
	}
	if len(sessions.sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions.sessions))
	}

	// The browser gets a session cookie.
	found := false
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == session.CookieName && cookie.Value != "" {
			found = true
			if !cookie.HttpOnly {
				t.Error("session cookie must be http-only")
			}
		}
	}
	if !found {
		t.Error("expected session cookie in response")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	h, _, sessions := newTestHandler()
	h.svc.Create(context.Background(), validInput())

	c, _ := jsonRequest(http.MethodPost, "/login", `{"employee_id":"EMP-1042","password":"wrong"}`)
	err := h.Login(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
	if len(sessions.sessions) != 0 {
		t.Error("failed login must not open a session")
	}
}

// A deactivated account gets the same response as bad credentials.
func TestLogin_InactiveAccountIndistinguishable(t *testing.T) {
	h, _, _ := newTestHandler()
	u, _ := h.svc.Create(context.Background(), validInput())
	h.svc.Deactivate(context.Background(), u.ID)

	c, _ := jsonRequest(http.MethodPost, "/login", `{"employee_id":"EMP-1042","password":"correct horse battery"}`)
	err := h.Login(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	h, _, _ := newTestHandler()

	c, _ := jsonRequest(http.MethodPost, "/login", `{"employee_id":"EMP-1042"}`)
	err := h.Login(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	h, _, sessions := newTestHandler()
	u, _ := h.svc.Create(context.Background(), validInput())

	sess := &session.Session{
		ID:        uuid.New(),
		UserID:    u.ID,
		Username:  u.Username,
		Role:      u.Role,
		CSRFToken: session.NewCSRFToken(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	sessions.Create(context.Background(), sess)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/logout", nil)
	req = req.WithContext(session.WithPrincipal(req.Context(), &session.Principal{
		UserID: u.ID, SessionID: sess.ID, Username: u.Username, Role: u.Role,
	}))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Logout(c); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if sess.RevokedAt == nil {
		t.Error("logout must revoke the session")
	}
}

func TestCreateUserHandler(t *testing.T) {
	h, _, _ := newTestHandler()

	c, rec := jsonRequest(http.MethodPost, "/api/v1/users",
		`{"employee_id":"EMP-2001","username":"dr.mensah","password":"a long password","role":"doctor","department":"oncology"}`)
	if err := h.CreateUser(c); err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	// The password hash never leaves the server.
	if strings.Contains(rec.Body.String(), "password") || strings.Contains(rec.Body.String(), "$2a$") {
		t.Error("response must not leak password material")
	}
}

func TestCreateUserHandler_Duplicate(t *testing.T) {
	h, _, _ := newTestHandler()
	h.svc.Create(context.Background(), validInput())

	c, _ := jsonRequest(http.MethodPost, "/api/v1/users",
		`{"employee_id":"EMP-1042","username":"other","password":"a long password","role":"nurse","department":"cardiology"}`)
	err := h.CreateUser(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}
