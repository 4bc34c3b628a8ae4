package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

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

const patientCols = `id, full_name, date_of_birth, gender, phone, department, bed_number,
	critical, admitted_at, discharged_at, discharge_notes, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (
			id, full_name, date_of_birth, gender, phone, department, bed_number, critical, admitted_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.FullName, p.DateOfBirth, p.Gender, p.Phone, p.Department, p.BedNumber, p.Critical, p.AdmittedAt,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Patient, int, error) {
	where := `WHERE 1=1`
	args := []interface{}{}
	if f.Department != "" {
		args = append(args, f.Department)
		where += fmt.Sprintf(` AND department = $%d`, len(args))
	}
	if f.CriticalOnly {
		where += ` AND critical`
	}
	if f.AdmittedOnly {
		where += ` AND discharged_at IS NULL`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patients `+where+
			fmt.Sprintf(` ORDER BY admitted_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectPatients(rows, total)
}

func (r *repoPG) UpdateAdmitted(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET
			full_name=$2, date_of_birth=$3, gender=$4, phone=$5, department=$6,
			bed_number=$7, critical=$8, updated_at=NOW()
		WHERE id = $1 AND discharged_at IS NULL`,
		p.ID, p.FullName, p.DateOfBirth, p.Gender, p.Phone, p.Department, p.BedNumber, p.Critical,
	)
	if err != nil {
		return err
	}
	return r.openOrFail(ctx, p.ID, tag)
}

func (r *repoPG) AssignBed(ctx context.Context, id uuid.UUID, bed string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET bed_number=$2, updated_at=NOW()
		WHERE id = $1 AND discharged_at IS NULL`,
		id, bed,
	)
	if err != nil {
		return err
	}
	return r.openOrFail(ctx, id, tag)
}

func (r *repoPG) Discharge(ctx context.Context, id uuid.UUID, notes string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET discharged_at=NOW(), discharge_notes=$2, updated_at=NOW()
		WHERE id = $1 AND discharged_at IS NULL`,
		id, notes,
	)
	if err != nil {
		return err
	}
	return r.openOrFail(ctx, id, tag)
}

func (r *repoPG) DischargeAt(ctx context.Context, id uuid.UUID, at time.Time, notes string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET discharged_at=$2, discharge_notes=$3, updated_at=NOW()
		WHERE id = $1 AND discharged_at IS NULL`,
		id, at, notes,
	)
	if err != nil {
		return err
	}
	return r.openOrFail(ctx, id, tag)
}

func (r *repoPG) SetCritical(ctx context.Context, id uuid.UUID, critical bool) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET critical=$2, updated_at=NOW()
		WHERE id = $1 AND discharged_at IS NULL`,
		id, critical,
	)
	if err != nil {
		return err
	}
	return r.openOrFail(ctx, id, tag)
}

// openOrFail distinguishes "no such patient" from "record already closed"
// after a conditional update touched zero rows.
func (r *repoPG) openOrFail(ctx context.Context, id uuid.UUID, tag pgconn.CommandTag) error {
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM patients WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrDischarged
}

func (r *repoPG) CreateDeath(ctx context.Context, d *DeathRecord) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO deaths (id, patient_id, died_at, cause, recorded_by)
		VALUES ($1,$2,$3,$4,$5)`,
		d.ID, d.PatientID, d.DiedAt, d.Cause, d.RecordedBy,
	)
	return err
}

func (r *repoPG) GetDeathByPatient(ctx context.Context, patientID uuid.UUID) (*DeathRecord, error) {
	var d DeathRecord
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, patient_id, died_at, cause, recorded_by, created_at
		FROM deaths WHERE patient_id = $1`, patientID).
		Scan(&d.ID, &d.PatientID, &d.DiedAt, &d.Cause, &d.RecordedBy, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *repoPG) ListDeaths(ctx context.Context, department string, limit, offset int) ([]*DeathRecord, int, error) {
	from := `FROM deaths d`
	args := []interface{}{}
	if department != "" {
		args = append(args, department)
		from += ` JOIN patients p ON p.id = d.patient_id WHERE p.department = $1`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) `+from, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT d.id, d.patient_id, d.died_at, d.cause, d.recorded_by, d.created_at `+from+
			fmt.Sprintf(` ORDER BY d.died_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var deaths []*DeathRecord
	for rows.Next() {
		var d DeathRecord
		if err := rows.Scan(&d.ID, &d.PatientID, &d.DiedAt, &d.Cause, &d.RecordedBy, &d.CreatedAt); err != nil {
			return nil, 0, err
		}
		deaths = append(deaths, &d)
	}
	return deaths, total, rows.Err()
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.FullName, &p.DateOfBirth, &p.Gender, &p.Phone, &p.Department, &p.BedNumber,
		&p.Critical, &p.AdmittedAt, &p.DischargedAt, &p.DischargeNotes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func collectPatients(rows pgx.Rows, total int) ([]*Patient, int, error) {
	var patients []*Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(
			&p.ID, &p.FullName, &p.DateOfBirth, &p.Gender, &p.Phone, &p.Department, &p.BedNumber,
			&p.Critical, &p.AdmittedAt, &p.DischargedAt, &p.DischargeNotes, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		patients = append(patients, &p)
	}
	return patients, total, rows.Err()
}
