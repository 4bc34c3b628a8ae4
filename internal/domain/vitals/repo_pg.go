package vitals

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

const readingCols = `id, patient_id, blood_pressure, systolic, diastolic,
	heart_rate, temperature_c, respiratory_rate, critical, recorded_by, recorded_at`

func (r *repoPG) Create(ctx context.Context, rd *Reading) error {
	rd.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO vitals_readings (
			id, patient_id, blood_pressure, systolic, diastolic,
			heart_rate, temperature_c, respiratory_rate, critical, recorded_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		rd.ID, rd.PatientID, rd.BloodPressure, rd.Systolic, rd.Diastolic,
		rd.HeartRate, rd.TemperatureC, rd.RespiratoryRate, rd.Critical, rd.RecordedBy,
	)
	return err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Reading, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM vitals_readings WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+readingCols+` FROM vitals_readings
		WHERE patient_id = $1 ORDER BY recorded_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var readings []*Reading
	for rows.Next() {
		rd, err := scanReadingRow(rows)
		if err != nil {
			return nil, 0, err
		}
		readings = append(readings, rd)
	}
	return readings, total, rows.Err()
}

func (r *repoPG) LatestByPatient(ctx context.Context, patientID uuid.UUID) (*Reading, error) {
	return scanReading(r.conn(ctx).QueryRow(ctx,
		`SELECT `+readingCols+` FROM vitals_readings
		WHERE patient_id = $1 ORDER BY recorded_at DESC LIMIT 1`, patientID))
}

func (r *repoPG) HasCritical(ctx context.Context, patientID uuid.UUID) (bool, error) {
	var has bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM vitals_readings WHERE patient_id = $1 AND critical)`,
		patientID).Scan(&has)
	return has, err
}

func scanReading(row pgx.Row) (*Reading, error) {
	var rd Reading
	err := row.Scan(
		&rd.ID, &rd.PatientID, &rd.BloodPressure, &rd.Systolic, &rd.Diastolic,
		&rd.HeartRate, &rd.TemperatureC, &rd.RespiratoryRate, &rd.Critical, &rd.RecordedBy, &rd.RecordedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rd, nil
}

func scanReadingRow(rows pgx.Rows) (*Reading, error) {
	var rd Reading
	if err := rows.Scan(
		&rd.ID, &rd.PatientID, &rd.BloodPressure, &rd.Systolic, &rd.Diastolic,
		&rd.HeartRate, &rd.TemperatureC, &rd.RespiratoryRate, &rd.Critical, &rd.RecordedBy, &rd.RecordedAt,
	); err != nil {
		return nil, err
	}
	return &rd, nil
}
