package vitals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmh/hms/internal/domain/patient"
	"github.com/mmh/hms/internal/platform/session"
)

// PatientDirectory is the slice of the patient service the evaluator needs:
// loading a record to scope it, and maintaining the derived critical flag.
type PatientDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	SetCritical(ctx context.Context, id uuid.UUID, critical bool) error
}

type Service struct {
	repo     Repository
	patients PatientDirectory
}

func NewService(repo Repository, patients PatientDirectory) *Service {
	return &Service{repo: repo, patients: patients}
}

// RecordInput carries the vitals form fields.
type RecordInput struct {
	BloodPressure   string  `json:"blood_pressure"`
	HeartRate       int     `json:"heart_rate"`
	TemperatureC    float64 `json:"temperature_c"`
	RespiratoryRate int     `json:"respiratory_rate"`
}

// Record appends a reading, classifies it, and refreshes the patient's
// derived critical flag. Classification happens here and only here; the
// client never supplies the flag.
func (s *Service) Record(ctx context.Context, p *session.Principal, patientID uuid.UUID, in RecordInput) (*Reading, error) {
	systolic, diastolic, err := ParseBloodPressure(in.BloodPressure)
	if err != nil {
		return nil, err
	}
	if in.HeartRate <= 0 {
		return nil, fmt.Errorf("%w: heart_rate must be positive", ErrInvalid)
	}
	if in.TemperatureC <= 0 {
		return nil, fmt.Errorf("%w: temperature_c must be positive", ErrInvalid)
	}
	if in.RespiratoryRate <= 0 {
		return nil, fmt.Errorf("%w: respiratory_rate must be positive", ErrInvalid)
	}

	pt, err := s.authorize(ctx, p, patientID)
	if err != nil {
		return nil, err
	}

	rd := &Reading{
		PatientID:       pt.ID,
		BloodPressure:   in.BloodPressure,
		Systolic:        systolic,
		Diastolic:       diastolic,
		HeartRate:       in.HeartRate,
		TemperatureC:    in.TemperatureC,
		RespiratoryRate: in.RespiratoryRate,
		Critical:        Classify(systolic, diastolic, in.HeartRate, in.TemperatureC, in.RespiratoryRate),
		RecordedBy:      p.UserID,
		RecordedAt:      time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, rd); err != nil {
		return nil, err
	}

	// The flag is a cache over "any critical reading exists", so a normal
	// reading never clears it while a prior critical one stands.
	crit := rd.Critical
	if !crit {
		crit, err = s.repo.HasCritical(ctx, patientID)
		if err != nil {
			return nil, err
		}
	}
	if pt.Critical != crit {
		if err := s.patients.SetCritical(ctx, patientID, crit); err != nil {
			return nil, err
		}
	}
	return rd, nil
}

// History lists a patient's readings, newest first. Any authenticated user
// may read within their department.
func (s *Service) History(ctx context.Context, p *session.Principal, patientID uuid.UUID, limit, offset int) ([]*Reading, int, error) {
	if _, err := s.lookup(ctx, p, patientID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// Latest returns the most recent reading for a patient.
func (s *Service) Latest(ctx context.Context, p *session.Principal, patientID uuid.UUID) (*Reading, error) {
	if _, err := s.lookup(ctx, p, patientID); err != nil {
		return nil, err
	}
	return s.repo.LatestByPatient(ctx, patientID)
}

// authorize gates a mutation: the record must be open and in the acting
// nurse's department.
func (s *Service) authorize(ctx context.Context, p *session.Principal, patientID uuid.UUID) (*patient.Patient, error) {
	pt, err := s.lookup(ctx, p, patientID)
	if err != nil {
		return nil, err
	}
	if !pt.Admitted() {
		return nil, ErrDischarged
	}
	return pt, nil
}

// lookup loads the patient and applies read scoping. Admins read across
// departments.
func (s *Service) lookup(ctx context.Context, p *session.Principal, patientID uuid.UUID) (*patient.Patient, error) {
	pt, err := s.patients.Get(ctx, patientID)
	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	if p.Role != "admin" && pt.Department != p.Department {
		return nil, ErrWrongDepartment
	}
	return pt, nil
}
