package medication

import (
	"context"
	"errors"
	"fmt"

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

const medicationCols = `id, patient_id, name, dosage, frequency, status,
	started_at, scheduled_at, ordered_by, updated_by, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, m *Medication) error {
	m.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medications (id, patient_id, name, dosage, frequency, status, started_at, scheduled_at, ordered_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		m.ID, m.PatientID, m.Name, m.Dosage, m.Frequency, m.Status, m.StartedAt, m.ScheduledAt, m.OrderedBy,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return scanMedication(r.conn(ctx).QueryRow(ctx,
		`SELECT `+medicationCols+` FROM medications WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Medication, int, error) {
	where := `WHERE 1=1`
	args := []interface{}{}
	if f.PatientID != uuid.Nil {
		args = append(args, f.PatientID)
		where += fmt.Sprintf(` AND patient_id = $%d`, len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if f.Department != "" {
		args = append(args, f.Department)
		where += fmt.Sprintf(` AND patient_id IN (SELECT id FROM patients WHERE department = $%d)`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medications `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+medicationCols+` FROM medications `+where+
			fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var meds []*Medication
	for rows.Next() {
		var m Medication
		if err := rows.Scan(
			&m.ID, &m.PatientID, &m.Name, &m.Dosage, &m.Frequency, &m.Status,
			&m.StartedAt, &m.ScheduledAt, &m.OrderedBy, &m.UpdatedBy, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		meds = append(meds, &m)
	}
	return meds, total, rows.Err()
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string, updatedBy uuid.UUID) (*Medication, error) {
	m, err := scanMedication(r.conn(ctx).QueryRow(ctx, `
		UPDATE medications SET status=$2, updated_by=$3, updated_at=NOW()
		WHERE id = $1 AND status = $4
		RETURNING `+medicationCols,
		id, status, updatedBy, StatusScheduled,
	))
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var exists bool
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM medications WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrNotScheduled
}

func scanMedication(row pgx.Row) (*Medication, error) {
	var m Medication
	err := row.Scan(
		&m.ID, &m.PatientID, &m.Name, &m.Dosage, &m.Frequency, &m.Status,
		&m.StartedAt, &m.ScheduledAt, &m.OrderedBy, &m.UpdatedBy, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}
