package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session is a server-side login session. The browser only ever holds a
// signed token carrying the session id; role, department and the CSRF token
// live in this row so a revocation takes effect on the next request.
type Session struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Username   string
	Role       string
	Department string
	CSRFToken  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time
}

// Active reports whether the session is neither revoked nor expired at now.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

var (
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session expired")
	ErrRevoked  = errors.New("session revoked")
)

// Store persists sessions.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	RotateCSRF(ctx context.Context, id uuid.UUID) (string, error)
	Revoke(ctx context.Context, id uuid.UUID) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
	Cleanup(ctx context.Context) error
}

// NewCSRFToken returns a fresh random token, hex-encoded.
func NewCSRFToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failure is unrecoverable
		panic(err)
	}
	return hex.EncodeToString(b)
}

// Principal is the authenticated caller attached to a request after the
// session middleware has validated the token and loaded the session row.
type Principal struct {
	UserID     uuid.UUID
	SessionID  uuid.UUID
	Username   string
	Role       string
	Department string
}

type contextKey string

// PrincipalKey carries the *Principal through a request context.
const PrincipalKey contextKey = "principal"

// WithPrincipal returns a context carrying the given principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// PrincipalFromContext returns the principal stored in ctx, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(PrincipalKey).(*Principal)
	return p
}
