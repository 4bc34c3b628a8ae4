package identity

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmployeeID(ctx context.Context, employeeID string) (*User, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*User, int, error)
	Update(ctx context.Context, u *User) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
	ListDepartments(ctx context.Context) ([]*Department, error)
}
