package diagnostics

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, tr *TestResult) error
	GetByID(ctx context.Context, id uuid.UUID) (*TestResult, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*TestResult, int, error)
	// Fulfill flips a still-requested result to completed in one guarded
	// update. Returns ErrAlreadyCompleted when a concurrent fulfiller won,
	// ErrNotFound when the id is unknown.
	Fulfill(ctx context.Context, id uuid.UUID, resultValue string, imageID *string, fulfilledBy uuid.UUID) (*TestResult, error)
}
