package medication

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmh/hms/internal/domain/patient"
	"github.com/mmh/hms/internal/platform/session"
)

type PatientDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type Service struct {
	repo     Repository
	patients PatientDirectory
}

func NewService(repo Repository, patients PatientDirectory) *Service {
	return &Service{repo: repo, patients: patients}
}

// PrescribeInput carries the prescription form fields.
type PrescribeInput struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
}

// Prescribe opens an ongoing prescription starting now.
func (s *Service) Prescribe(ctx context.Context, p *session.Principal, patientID uuid.UUID, in PrescribeInput) (*Medication, error) {
	if in.Name == "" || in.Dosage == "" || in.Frequency == "" {
		return nil, fmt.Errorf("%w: name, dosage and frequency are required", ErrInvalid)
	}
	if err := s.authorize(ctx, p, patientID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m := &Medication{
		PatientID: patientID,
		Name:      in.Name,
		Dosage:    in.Dosage,
		Frequency: in.Frequency,
		Status:    StatusOngoing,
		StartedAt: &now,
		OrderedBy: p.UserID,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ScheduleInput carries the dose scheduling form fields.
type ScheduleInput struct {
	Name        string `json:"name"`
	Dosage      string `json:"dosage"`
	ScheduledAt string `json:"scheduled_at"`
}

// Schedule books a single dose for later administration.
func (s *Service) Schedule(ctx context.Context, p *session.Principal, patientID uuid.UUID, in ScheduleInput) (*Medication, error) {
	if in.Name == "" || in.Dosage == "" {
		return nil, fmt.Errorf("%w: name and dosage are required", ErrInvalid)
	}
	at, err := time.Parse(time.RFC3339, in.ScheduledAt)
	if err != nil {
		return nil, fmt.Errorf("%w: scheduled_at must be RFC 3339", ErrInvalid)
	}
	if err := s.authorize(ctx, p, patientID); err != nil {
		return nil, err
	}

	m := &Medication{
		PatientID:   patientID,
		Name:        in.Name,
		Dosage:      in.Dosage,
		Status:      StatusScheduled,
		ScheduledAt: &at,
		OrderedBy:   p.UserID,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateStatus moves a scheduled dose to administered or missed. Scheduled
// is the only status a dose may leave; terminal statuses never change.
func (s *Service) UpdateStatus(ctx context.Context, p *session.Principal, id uuid.UUID, status string) (*Medication, error) {
	if !TerminalStatuses[status] {
		return nil, fmt.Errorf("%w: status must be administered or missed", ErrInvalid)
	}
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, p, m.PatientID); err != nil {
		return nil, err
	}
	return s.repo.UpdateStatus(ctx, id, status, p.UserID)
}

// ListForPatient returns a patient's medication orders, newest first.
func (s *Service) ListForPatient(ctx context.Context, p *session.Principal, patientID uuid.UUID, status string, limit, offset int) ([]*Medication, int, error) {
	if _, err := s.lookup(ctx, p, patientID); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, Filter{PatientID: patientID, Status: status}, limit, offset)
}

// List returns medication orders across patients. Pharmacists and admins see
// the schedule across wards; ward staff only their own ward's orders.
func (s *Service) List(ctx context.Context, p *session.Principal, f Filter, limit, offset int) ([]*Medication, int, error) {
	switch p.Role {
	case "admin", "pharmacist":
	default:
		f.Department = p.Department
	}
	return s.repo.List(ctx, f, limit, offset)
}

func (s *Service) authorize(ctx context.Context, p *session.Principal, patientID uuid.UUID) error {
	pt, err := s.lookup(ctx, p, patientID)
	if err != nil {
		return err
	}
	if !pt.Admitted() {
		return ErrDischarged
	}
	return nil
}

func (s *Service) lookup(ctx context.Context, p *session.Principal, patientID uuid.UUID) (*patient.Patient, error) {
	pt, err := s.patients.Get(ctx, patientID)
	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	// Pharmacists dispense across wards; admins see everything.
	switch p.Role {
	case "admin", "pharmacist":
		return pt, nil
	}
	if pt.Department != p.Department {
		return nil, ErrWrongDepartment
	}
	return pt, nil
}
