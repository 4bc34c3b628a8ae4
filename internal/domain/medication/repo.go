package medication

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, m *Medication) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medication, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Medication, int, error)
	// UpdateStatus moves a scheduled dose to a terminal status in one
	// guarded update; a dose that is no longer scheduled yields
	// ErrNotScheduled.
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, updatedBy uuid.UUID) (*Medication, error)
}
