package vitals

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists vitals readings. Readings are append-only.
type Repository interface {
	Create(ctx context.Context, r *Reading) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Reading, int, error)
	LatestByPatient(ctx context.Context, patientID uuid.UUID) (*Reading, error)
	// HasCritical reports whether any reading for the patient carries the
	// critical flag. Feeds the derived Patient.critical cache.
	HasCritical(ctx context.Context, patientID uuid.UUID) (bool, error)
}
