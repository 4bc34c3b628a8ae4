package messaging

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mmh/hms/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const messageCols = `id, sender_id, sender_name, recipient_user_id, recipient_department,
	subject, body, urgent, patient_id, read_at, sent_at`

func (r *repoPG) Create(ctx context.Context, m *Message) error {
	m.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO messages (
			id, sender_id, sender_name, recipient_user_id, recipient_department,
			subject, body, urgent, patient_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		m.ID, m.SenderID, m.SenderName, m.RecipientUserID, nullable(m.RecipientDepartment),
		m.Subject, m.Body, m.Urgent, m.PatientID,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Message, error) {
	return scanMessage(r.conn(ctx).QueryRow(ctx,
		`SELECT `+messageCols+` FROM messages WHERE id = $1`, id))
}

func (r *repoPG) Inbox(ctx context.Context, userID uuid.UUID, department string, limit, offset int) ([]*Message, int, error) {
	const where = `WHERE recipient_user_id = $1 OR recipient_department = $2`

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM messages `+where, userID, department).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+messageCols+` FROM messages `+where+
			` ORDER BY sent_at DESC, id LIMIT $3 OFFSET $4`,
		userID, department, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var m Message
		var dept *string
		if err := rows.Scan(
			&m.ID, &m.SenderID, &m.SenderName, &m.RecipientUserID, &dept,
			&m.Subject, &m.Body, &m.Urgent, &m.PatientID, &m.ReadAt, &m.SentAt,
		); err != nil {
			return nil, 0, err
		}
		if dept != nil {
			m.RecipientDepartment = *dept
		}
		messages = append(messages, &m)
	}
	return messages, total, rows.Err()
}

func (r *repoPG) CountUnread(ctx context.Context, userID uuid.UUID, department string) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE (recipient_user_id = $1 OR recipient_department = $2) AND read_at IS NULL`,
		userID, department).Scan(&n)
	return n, err
}

func (r *repoPG) MarkRead(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE messages SET read_at = NOW() WHERE id = $1 AND read_at IS NULL`, id)
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	var dept *string
	err := row.Scan(
		&m.ID, &m.SenderID, &m.SenderName, &m.RecipientUserID, &dept,
		&m.Subject, &m.Body, &m.Urgent, &m.PatientID, &m.ReadAt, &m.SentAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if dept != nil {
		m.RecipientDepartment = *dept
	}
	return &m, nil
}
