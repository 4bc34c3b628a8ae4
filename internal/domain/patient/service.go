package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mmh/hms/internal/platform/db"
	"github.com/mmh/hms/internal/platform/session"
)

type Service struct {
	repo Repository
	pool *pgxpool.Pool
}

// NewService builds the patient lifecycle service. The pool is only used to
// open the transaction wrapping a death recording; tests pass nil and run
// without one.
func NewService(repo Repository, pool *pgxpool.Pool) *Service {
	return &Service{repo: repo, pool: pool}
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.InTx(ctx, s.pool, fn)
}

// AdmitInput carries the admission form fields.
type AdmitInput struct {
	FullName    string `json:"full_name"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender"`
	Phone       string `json:"phone"`
	Department  string `json:"department"`
	BedNumber   string `json:"bed_number"`
	Critical    *bool  `json:"critical"`
}

// Admit opens a new patient record in the admitting nurse's department.
func (s *Service) Admit(ctx context.Context, p *session.Principal, in AdmitInput) (*Patient, error) {
	if in.FullName == "" {
		return nil, fmt.Errorf("%w: full_name is required", ErrInvalid)
	}
	if !ValidGenders[in.Gender] {
		return nil, fmt.Errorf("%w: gender must be male, female or other", ErrInvalid)
	}
	if in.Department == "" {
		return nil, fmt.Errorf("%w: department is required", ErrInvalid)
	}
	if in.Department != p.Department {
		return nil, ErrWrongDepartment
	}

	dob, err := time.Parse("2006-01-02", in.DateOfBirth)
	if err != nil {
		return nil, fmt.Errorf("%w: date_of_birth must be YYYY-MM-DD", ErrInvalid)
	}
	if dob.After(time.Now()) {
		return nil, fmt.Errorf("%w: date_of_birth is in the future", ErrInvalid)
	}

	pt := &Patient{
		FullName:    in.FullName,
		DateOfBirth: dob,
		Gender:      in.Gender,
		Phone:       in.Phone,
		Department:  in.Department,
		AdmittedAt:  time.Now().UTC(),
	}
	if in.BedNumber != "" {
		pt.BedNumber = &in.BedNumber
	}
	if in.Critical != nil {
		pt.Critical = *in.Critical
	}

	if err := s.repo.Create(ctx, pt); err != nil {
		return nil, err
	}
	return pt, nil
}

// EditInput carries the editable demographic fields. Empty fields keep their
// current value.
type EditInput struct {
	FullName    string `json:"full_name"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender"`
	Phone       string `json:"phone"`
	BedNumber   string `json:"bed_number"`
	Critical    *bool  `json:"critical"`
}

// Edit updates an open record in the acting nurse's department.
func (s *Service) Edit(ctx context.Context, p *session.Principal, id uuid.UUID, in EditInput) (*Patient, error) {
	pt, err := s.authorize(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if in.FullName != "" {
		pt.FullName = in.FullName
	}
	if in.Gender != "" {
		if !ValidGenders[in.Gender] {
			return nil, fmt.Errorf("%w: gender must be male, female or other", ErrInvalid)
		}
		pt.Gender = in.Gender
	}
	if in.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", in.DateOfBirth)
		if err != nil {
			return nil, fmt.Errorf("%w: date_of_birth must be YYYY-MM-DD", ErrInvalid)
		}
		pt.DateOfBirth = dob
	}
	if in.Phone != "" {
		pt.Phone = in.Phone
	}
	if in.BedNumber != "" {
		pt.BedNumber = &in.BedNumber
	}
	if in.Critical != nil {
		pt.Critical = *in.Critical
	}

	if err := s.repo.UpdateAdmitted(ctx, pt); err != nil {
		return nil, err
	}
	return pt, nil
}

// Discharge closes an open record with the given notes.
func (s *Service) Discharge(ctx context.Context, p *session.Principal, id uuid.UUID, notes string) error {
	if notes == "" {
		return fmt.Errorf("%w: notes are required", ErrInvalid)
	}
	if _, err := s.authorize(ctx, p, id); err != nil {
		return err
	}
	return s.repo.Discharge(ctx, id, notes)
}

// AssignBed moves an admitted patient to another bed.
func (s *Service) AssignBed(ctx context.Context, p *session.Principal, id uuid.UUID, bed string) error {
	if bed == "" {
		return fmt.Errorf("%w: bed_number is required", ErrInvalid)
	}
	if _, err := s.authorize(ctx, p, id); err != nil {
		return err
	}
	return s.repo.AssignBed(ctx, id, bed)
}

// DeathInput carries the death recording form fields.
type DeathInput struct {
	DiedAt string `json:"died_at"`
	Cause  string `json:"cause"`
}

// RecordDeath writes the death record and closes the patient record in one
// transaction; neither write survives without the other.
func (s *Service) RecordDeath(ctx context.Context, p *session.Principal, id uuid.UUID, in DeathInput) (*DeathRecord, error) {
	if in.Cause == "" {
		return nil, fmt.Errorf("%w: cause is required", ErrInvalid)
	}
	diedAt, err := time.Parse("2006-01-02", in.DiedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: died_at must be YYYY-MM-DD", ErrInvalid)
	}

	pt, err := s.authorize(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetDeathByPatient(ctx, id); err == nil {
		return nil, ErrDeathRecorded
	}

	death := &DeathRecord{
		PatientID:  pt.ID,
		DiedAt:     diedAt,
		Cause:      in.Cause,
		RecordedBy: p.UserID,
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateDeath(ctx, death); err != nil {
			return err
		}
		return s.repo.DischargeAt(ctx, id, diedAt, "deceased: "+in.Cause)
	})
	if err != nil {
		return nil, err
	}
	return death, nil
}

// SetCritical flips the critical flag on an open record. Called by the
// vitals evaluator after classifying a new reading.
func (s *Service) SetCritical(ctx context.Context, id uuid.UUID, critical bool) error {
	return s.repo.SetCritical(ctx, id, critical)
}

// Get is the unscoped directory lookup used by the other clinical services,
// which apply their own department rules.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// GetFor returns one record for a reader. Ward staff never see another
// department's record.
func (s *Service) GetFor(ctx context.Context, p *session.Principal, id uuid.UUID) (*Patient, error) {
	pt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !crossDepartment(p.Role) && pt.Department != p.Department {
		return nil, ErrWrongDepartment
	}
	return pt, nil
}

// List returns records matching the filter. The department filter is forced
// to the reader's own department for ward staff; cross-ward roles may filter
// freely.
func (s *Service) List(ctx context.Context, p *session.Principal, f Filter, limit, offset int) ([]*Patient, int, error) {
	if !crossDepartment(p.Role) {
		f.Department = p.Department
	}
	return s.repo.List(ctx, f, limit, offset)
}

// ListDeaths is department-scoped the same way as List.
func (s *Service) ListDeaths(ctx context.Context, p *session.Principal, limit, offset int) ([]*DeathRecord, int, error) {
	department := ""
	if !crossDepartment(p.Role) {
		department = p.Department
	}
	return s.repo.ListDeaths(ctx, department, limit, offset)
}

// crossDepartment reports whether a role reads across wards. Fulfilment and
// dispensing staff work queues that span every department.
func crossDepartment(role string) bool {
	switch role {
	case "admin", "lab", "radiology", "pharmacist":
		return true
	}
	return false
}

// authorize loads the record and confirms it is open and within the acting
// user's department.
func (s *Service) authorize(ctx context.Context, p *session.Principal, id uuid.UUID) (*Patient, error) {
	pt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pt.Admitted() {
		return nil, ErrDischarged
	}
	if pt.Department != p.Department {
		return nil, ErrWrongDepartment
	}
	return pt, nil
}
