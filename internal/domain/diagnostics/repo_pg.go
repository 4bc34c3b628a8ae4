package diagnostics

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

const resultCols = `id, patient_id, category, test_type, request_status, result_value,
	image_id, requested_by, requested_at, fulfilled_by, fulfilled_at`

func (r *repoPG) Create(ctx context.Context, tr *TestResult) error {
	tr.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO test_results (id, patient_id, category, test_type, request_status, requested_by)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		tr.ID, tr.PatientID, tr.Category, tr.TestType, StatusRequested, tr.RequestedBy,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*TestResult, error) {
	return scanResult(r.conn(ctx).QueryRow(ctx,
		`SELECT `+resultCols+` FROM test_results WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*TestResult, int, error) {
	where := `WHERE 1=1`
	args := []interface{}{}
	if f.PatientID != uuid.Nil {
		args = append(args, f.PatientID)
		where += fmt.Sprintf(` AND patient_id = $%d`, len(args))
	}
	if f.TestType != "" {
		args = append(args, f.TestType)
		where += fmt.Sprintf(` AND test_type = $%d`, len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(` AND request_status = $%d`, len(args))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	if f.Department != "" {
		args = append(args, f.Department)
		where += fmt.Sprintf(` AND patient_id IN (SELECT id FROM patients WHERE department = $%d)`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM test_results `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	// id tiebreak keeps pages stable under concurrent inserts.
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+resultCols+` FROM test_results `+where+
			fmt.Sprintf(` ORDER BY requested_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []*TestResult
	for rows.Next() {
		var tr TestResult
		if err := scanInto(rows, &tr); err != nil {
			return nil, 0, err
		}
		results = append(results, &tr)
	}
	return results, total, rows.Err()
}

func (r *repoPG) Fulfill(ctx context.Context, id uuid.UUID, resultValue string, imageID *string, fulfilledBy uuid.UUID) (*TestResult, error) {
	// Status guard makes concurrent fulfillment safe: exactly one writer
	// sees a requested row.
	tr, err := scanResult(r.conn(ctx).QueryRow(ctx, `
		UPDATE test_results SET
			request_status=$2, result_value=$3, image_id=$4, fulfilled_by=$5, fulfilled_at=NOW()
		WHERE id = $1 AND request_status = $6
		RETURNING `+resultCols,
		id, StatusCompleted, resultValue, imageID, fulfilledBy, StatusRequested,
	))
	if err == nil {
		return tr, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var exists bool
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM test_results WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrAlreadyCompleted
}

func scanResult(row pgx.Row) (*TestResult, error) {
	var tr TestResult
	err := row.Scan(
		&tr.ID, &tr.PatientID, &tr.Category, &tr.TestType, &tr.Status, &tr.ResultValue,
		&tr.ImageID, &tr.RequestedBy, &tr.RequestedAt, &tr.FulfilledBy, &tr.FulfilledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tr, nil
}

func scanInto(rows pgx.Rows, tr *TestResult) error {
	return rows.Scan(
		&tr.ID, &tr.PatientID, &tr.Category, &tr.TestType, &tr.Status, &tr.ResultValue,
		&tr.ImageID, &tr.RequestedBy, &tr.RequestedAt, &tr.FulfilledBy, &tr.FulfilledAt,
	)
}
