package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmh/hms/internal/platform/auth"
	"github.com/mmh/hms/internal/platform/session"
)

const minPasswordLength = 8

type Service struct {
	repo     Repository
	sessions session.Store
}

func NewService(repo Repository, sessions session.Store) *Service {
	return &Service{repo: repo, sessions: sessions}
}

// CreateInput carries the provisioning form fields.
type CreateInput struct {
	EmployeeID string `json:"employee_id"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

// Create provisions a staff account. Admin only, enforced at the route.
func (s *Service) Create(ctx context.Context, in CreateInput) (*User, error) {
	if in.EmployeeID == "" || in.Username == "" {
		return nil, fmt.Errorf("%w: employee_id and username are required", ErrInvalid)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalid, minPasswordLength)
	}
	if _, err := auth.ParseRole(in.Role); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if in.Department == "" {
		return nil, fmt.Errorf("%w: department is required", ErrInvalid)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		EmployeeID:   in.EmployeeID,
		Username:     in.Username,
		PasswordHash: string(hash),
		Role:         in.Role,
		Department:   in.Department,
		Active:       true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateInput carries the editable account fields. Empty fields keep their
// current value.
type UpdateInput struct {
	Username   string `json:"username"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Username != "" {
		u.Username = in.Username
	}
	if in.Role != "" {
		if _, err := auth.ParseRole(in.Role); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		u.Role = in.Role
	}
	if in.Department != "" {
		u.Department = in.Department
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Deactivate disables an account and revokes its live sessions so the
// lockout takes effect on the user's next request.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	return s.sessions.RevokeAllForUser(ctx, id)
}

func (s *Service) Reactivate(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetActive(ctx, id, true)
}

// ResetPassword replaces the password and revokes live sessions.
func (s *Service) ResetPassword(ctx context.Context, id uuid.UUID, password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalid, minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.SetPasswordHash(ctx, id, string(hash)); err != nil {
		return err
	}
	return s.sessions.RevokeAllForUser(ctx, id)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*User, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

func (s *Service) ListDepartments(ctx context.Context) ([]*Department, error) {
	return s.repo.ListDepartments(ctx)
}

// Authenticate checks credentials and returns the account. A wrong employee
// id and a wrong password are indistinguishable to the caller; a disabled
// account is reported as such only after the password matched.
func (s *Service) Authenticate(ctx context.Context, employeeID, password string) (*User, error) {
	u, err := s.repo.GetByEmployeeID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Burn comparable time so a missing account is not observable.
			bcrypt.CompareHashAndPassword([]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.Active {
		return nil, ErrInactive
	}
	_ = s.repo.TouchLastLogin(ctx, u.ID)
	return u, nil
}
