package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MigrationSessions is the SQL DDL for the sessions table. It is safe to
// execute multiple times (uses IF NOT EXISTS). Callers can run this at
// application startup as an auto-migration step.
const MigrationSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    id          UUID PRIMARY KEY,
    user_id     UUID NOT NULL,
    username    TEXT NOT NULL,
    role        TEXT NOT NULL,
    department  TEXT NOT NULL DEFAULT '',
    csrf_token  TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    expires_at  TIMESTAMPTZ NOT NULL,
    revoked_at  TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions (user_id);
CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions (expires_at);
`

// pgRow represents a single row returned by QueryRow.
type pgRow interface {
	Scan(dest ...any) error
}

// pgConn is the minimal database interface required by PGStore. Both
// *pgxpool.Pool (via a thin adapter) and test mocks implement this.
type pgConn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgRow
	Exec(ctx context.Context, sql string, args ...any) error
}

// PGStore is a PostgreSQL-backed session store.
type PGStore struct {
	db pgConn
}

// NewPGStore creates a PG-backed store. The db parameter must satisfy the
// pgConn interface -- use NewPGStoreFromPool to wrap a *pgxpool.Pool, or pass
// a mock in tests.
func NewPGStore(db pgConn) *PGStore {
	return &PGStore{db: db}
}

// Create inserts a new session row.
func (s *PGStore) Create(ctx context.Context, sess *Session) error {
	const query = `INSERT INTO sessions (id, user_id, username, role, department, csrf_token, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if err := s.db.Exec(ctx, query,
		sess.ID, sess.UserID, sess.Username, sess.Role, sess.Department,
		sess.CSRFToken, sess.CreatedAt, sess.ExpiresAt,
	); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Get loads a session by id. Returns ErrNotFound when no row exists,
// ErrRevoked or ErrExpired when the row exists but is no longer usable.
func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	const query = `SELECT id, user_id, username, role, department, csrf_token, created_at, expires_at, revoked_at
FROM sessions WHERE id = $1`

	var sess Session
	err := s.db.QueryRow(ctx, query, id).Scan(
		&sess.ID, &sess.UserID, &sess.Username, &sess.Role, &sess.Department,
		&sess.CSRFToken, &sess.CreatedAt, &sess.ExpiresAt, &sess.RevokedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	if sess.RevokedAt != nil {
		return nil, ErrRevoked
	}
	if !time.Now().Before(sess.ExpiresAt) {
		return nil, ErrExpired
	}
	return &sess, nil
}

// RotateCSRF replaces the session's CSRF token and returns the new value.
// Only live sessions rotate; a revoked or expired row returns ErrNotFound.
func (s *PGStore) RotateCSRF(ctx context.Context, id uuid.UUID) (string, error) {
	token := NewCSRFToken()

	const query = `UPDATE sessions SET csrf_token = $2
WHERE id = $1 AND revoked_at IS NULL AND expires_at > now()
RETURNING id`

	var got uuid.UUID
	if err := s.db.QueryRow(ctx, query, id, token).Scan(&got); err != nil {
		if isNoRows(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("rotate csrf token: %w", err)
	}
	return token, nil
}

// Revoke marks a session revoked. Revoking an already-revoked session is a
// no-op.
func (s *PGStore) Revoke(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE sessions SET revoked_at = now()
WHERE id = $1 AND revoked_at IS NULL`

	if err := s.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RevokeAllForUser revokes every live session belonging to a user. Used when
// an account is deactivated.
func (s *PGStore) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	const query = `UPDATE sessions SET revoked_at = now()
WHERE user_id = $1 AND revoked_at IS NULL`

	if err := s.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("revoke user sessions: %w", err)
	}
	return nil
}

// Cleanup deletes expired and revoked rows.
func (s *PGStore) Cleanup(ctx context.Context) error {
	const query = `DELETE FROM sessions WHERE expires_at <= now() OR revoked_at IS NOT NULL`
	if err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("cleanup sessions: %w", err)
	}
	return nil
}

// isNoRows returns true when the error represents a "no rows" condition.
// It works with both pgx (pgx.ErrNoRows) and the mock used in tests.
func isNoRows(err error) bool {
	if err == pgx.ErrNoRows {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "no rows")
}

// pgxPoolWrapper wraps a *pgxpool.Pool so it satisfies the pgConn interface.
// The adapter is necessary because pgxpool.Pool.Exec returns
// (pgconn.CommandTag, error) whereas pgConn.Exec returns only error.
type pgxPoolWrapper struct {
	pool *pgxpool.Pool
}

func (w *pgxPoolWrapper) QueryRow(ctx context.Context, sql string, args ...any) pgRow {
	return w.pool.QueryRow(ctx, sql, args...)
}

func (w *pgxPoolWrapper) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := w.pool.Exec(ctx, sql, args...)
	return err
}

// NewPGStoreFromPool creates a PG-backed store directly from a *pgxpool.Pool.
// This is the recommended constructor for production use.
func NewPGStoreFromPool(pool *pgxpool.Pool) *PGStore {
	return &PGStore{db: &pgxPoolWrapper{pool: pool}}
}
