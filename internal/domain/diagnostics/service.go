package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/mmh/hms/internal/domain/patient"
	"github.com/mmh/hms/internal/platform/blobstore"
	"github.com/mmh/hms/internal/platform/session"
)

// PatientDirectory is the slice of the patient service the workflow needs.
type PatientDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type Service struct {
	repo     Repository
	patients PatientDirectory
	images   blobstore.ImageStore
}

func NewService(repo Repository, patients PatientDirectory, images blobstore.ImageStore) *Service {
	return &Service{repo: repo, patients: patients, images: images}
}

// RequestInput carries the test order form fields.
type RequestInput struct {
	Category string `json:"category"`
	TestType string `json:"test_type"`
}

// Request opens a test order for an admitted patient in the requester's
// department.
func (s *Service) Request(ctx context.Context, p *session.Principal, patientID uuid.UUID, in RequestInput) (*TestResult, error) {
	if in.Category != CategoryLaboratory && in.Category != CategoryRadiology {
		return nil, fmt.Errorf("%w: category must be laboratory or radiology", ErrInvalid)
	}
	if !ValidTestType(in.Category, in.TestType) {
		return nil, fmt.Errorf("%w: %q is not a %s test", ErrInvalid, in.TestType, in.Category)
	}

	pt, err := s.lookup(ctx, p, patientID)
	if err != nil {
		return nil, err
	}
	if !pt.Admitted() {
		return nil, ErrDischarged
	}

	tr := &TestResult{
		PatientID:   pt.ID,
		Category:    in.Category,
		TestType:    in.TestType,
		Status:      StatusRequested,
		RequestedBy: p.UserID,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, tr); err != nil {
		return nil, err
	}
	return tr, nil
}

// ImageUpload is an optional scan attached at fulfilment time.
type ImageUpload struct {
	FileName string
	Content  io.Reader
}

// FulfillInput carries the fulfilment form fields.
type FulfillInput struct {
	ResultValue string
	Image       *ImageUpload
}

// Fulfill completes a requested result. The status guard in the repository
// ensures only one of two concurrent fulfillers succeeds; the loser gets
// ErrAlreadyCompleted. An image is accepted for radiology results only and
// is validated before any state changes.
func (s *Service) Fulfill(ctx context.Context, p *session.Principal, resultID uuid.UUID, in FulfillInput) (*TestResult, error) {
	if in.ResultValue == "" {
		return nil, fmt.Errorf("%w: result_value is required", ErrInvalid)
	}

	tr, err := s.repo.GetByID(ctx, resultID)
	if err != nil {
		return nil, err
	}
	if !s.canFulfill(p, tr.Category) {
		return nil, ErrWrongCategory
	}
	if tr.Status == StatusCompleted {
		return nil, ErrAlreadyCompleted
	}

	var imageID *string
	if in.Image != nil {
		if tr.Category != CategoryRadiology {
			return nil, fmt.Errorf("%w: images are accepted for radiology results only", ErrInvalid)
		}
		meta, err := s.images.Save(ctx, blobstore.ImageMetadata{
			FileName:     in.Image.FileName,
			PatientID:    tr.PatientID.String(),
			TestResultID: tr.ID.String(),
			CreatedBy:    p.UserID.String(),
		}, in.Image.Content)
		if err != nil {
			return nil, err
		}
		imageID = &meta.ID
	}

	done, err := s.repo.Fulfill(ctx, resultID, in.ResultValue, imageID, p.UserID)
	if err != nil {
		// The order did not advance; drop the orphaned image.
		if imageID != nil {
			_ = s.images.Delete(ctx, *imageID)
		}
		return nil, err
	}
	return done, nil
}

// Get returns a single result, department-scoped for non-admin readers.
func (s *Service) Get(ctx context.Context, p *session.Principal, id uuid.UUID) (*TestResult, error) {
	tr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.lookup(ctx, p, tr.PatientID); err != nil {
		return nil, err
	}
	return tr, nil
}

// List returns results matching the filter. Lab, radiology and admin staff
// see the queue across departments; ward staff only their own ward's orders.
func (s *Service) List(ctx context.Context, p *session.Principal, f Filter, limit, offset int) ([]*TestResult, int, error) {
	switch p.Role {
	case "admin", "lab", "radiology":
	default:
		f.Department = p.Department
	}
	return s.repo.List(ctx, f, limit, offset)
}

// OpenImage streams a stored scan with its metadata, applying the same
// department rule as a read of the owning patient's record.
func (s *Service) OpenImage(ctx context.Context, p *session.Principal, imageID string) (io.ReadCloser, *blobstore.ImageMetadata, error) {
	rc, meta, err := s.images.Open(ctx, imageID)
	if err != nil {
		return nil, nil, err
	}
	patientID, perr := uuid.Parse(meta.PatientID)
	if perr != nil {
		rc.Close()
		return nil, nil, ErrNotFound
	}
	if _, err := s.lookup(ctx, p, patientID); err != nil {
		rc.Close()
		return nil, nil, err
	}
	return rc, meta, nil
}

// canFulfill maps fulfiller roles onto categories. Lab staff complete
// laboratory orders, radiology staff complete radiology orders, admins
// complete either.
func (s *Service) canFulfill(p *session.Principal, category string) bool {
	switch p.Role {
	case "admin":
		return true
	case "lab":
		return category == CategoryLaboratory
	case "radiology":
		return category == CategoryRadiology
	}
	return false
}

func (s *Service) lookup(ctx context.Context, p *session.Principal, patientID uuid.UUID) (*patient.Patient, error) {
	pt, err := s.patients.Get(ctx, patientID)
	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	// Fulfilment staff and admins work the whole queue; ward staff stay in
	// their department.
	switch p.Role {
	case "admin", "lab", "radiology":
		return pt, nil
	}
	if pt.Department != p.Department {
		return nil, ErrWrongDepartment
	}
	return pt, nil
}
