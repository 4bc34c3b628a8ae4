package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// mockRow returns canned scan behavior.
type mockRow struct {
	scan func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error { return r.scan(dest...) }

// mockConn records the SQL it sees and returns canned rows.
type mockConn struct {
	lastSQL  string
	lastArgs []any
	row      *mockRow
	execErr  error
}

func (m *mockConn) QueryRow(_ context.Context, sql string, args ...any) pgRow {
	m.lastSQL = sql
	m.lastArgs = args
	if m.row != nil {
		return m.row
	}
	return &mockRow{scan: func(...any) error { return errors.New("no rows in result set") }}
}

func (m *mockConn) Exec(_ context.Context, sql string, args ...any) error {
	m.lastSQL = sql
	m.lastArgs = args
	return m.execErr
}

func TestPGStore_Create(t *testing.T) {
	conn := &mockConn{}
	store := NewPGStore(conn)

	sess := &Session{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Username:  "nurse.okafor",
		Role:      "nurse",
		CSRFToken: NewCSRFToken(),
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(12 * time.Hour),
	}
	if err := store.Create(context.Background(), sess); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if !strings.Contains(conn.lastSQL, "INSERT INTO sessions") {
		t.Errorf("unexpected SQL: %s", conn.lastSQL)
	}
	if len(conn.lastArgs) != 8 {
		t.Errorf("expected 8 args, got %d", len(conn.lastArgs))
	}
	if conn.lastArgs[0] != sess.ID {
		t.Errorf("expected session id as first arg, got %v", conn.lastArgs[0])
	}
}

func TestPGStore_Get_NotFound(t *testing.T) {
	store := NewPGStore(&mockConn{})

	_, err := store.Get(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStore_Get_Revoked(t *testing.T) {
	revoked := time.Now().Add(-time.Minute)
	conn := &mockConn{row: &mockRow{scan: func(dest ...any) error {
		*(dest[0].(*uuid.UUID)) = uuid.New()
		*(dest[1].(*uuid.UUID)) = uuid.New()
		*(dest[2].(*string)) = "dr.house"
		*(dest[3].(*string)) = "doctor"
		*(dest[4].(*string)) = "cardiology"
		*(dest[5].(*string)) = "tok"
		*(dest[6].(*time.Time)) = time.Now().Add(-time.Hour)
		*(dest[7].(*time.Time)) = time.Now().Add(time.Hour)
		*(dest[8].(**time.Time)) = &revoked
		return nil
	}}}
	store := NewPGStore(conn)

	_, err := store.Get(context.Background(), uuid.New())
	if !errors.Is(err, ErrRevoked) {
		t.Errorf("expected ErrRevoked, got %v", err)
	}
}

func TestPGStore_Get_Expired(t *testing.T) {
	conn := &mockConn{row: &mockRow{scan: func(dest ...any) error {
		*(dest[0].(*uuid.UUID)) = uuid.New()
		*(dest[1].(*uuid.UUID)) = uuid.New()
		*(dest[2].(*string)) = "dr.house"
		*(dest[3].(*string)) = "doctor"
		*(dest[4].(*string)) = "cardiology"
		*(dest[5].(*string)) = "tok"
		*(dest[6].(*time.Time)) = time.Now().Add(-2 * time.Hour)
		*(dest[7].(*time.Time)) = time.Now().Add(-time.Hour)
		*(dest[8].(**time.Time)) = nil
		return nil
	}}}
	store := NewPGStore(conn)

	_, err := store.Get(context.Background(), uuid.New())
	if !errors.Is(err, ErrExpired) {
		t.Errorf("expected ErrExpired, got %v", err)
	}
}

func TestPGStore_RotateCSRF_Gone(t *testing.T) {
	store := NewPGStore(&mockConn{})

	_, err := store.RotateCSRF(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStore_Revoke_SQL(t *testing.T) {
	conn := &mockConn{}
	store := NewPGStore(conn)

	if err := store.Revoke(context.Background(), uuid.New()); err != nil {
		t.Fatalf("Revoke() error: %v", err)
	}
	if !strings.Contains(conn.lastSQL, "revoked_at IS NULL") {
		t.Errorf("revoke must only touch live sessions, got SQL: %s", conn.lastSQL)
	}
}
