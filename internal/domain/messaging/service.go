package messaging

import (
	"context"
	"errors"
	"fmt"

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

// ComposeInput carries the message form fields. Routine traffic is
// department-addressed; a patient reference is optional.
type ComposeInput struct {
	RecipientDepartment string `json:"recipient_department"`
	Subject             string `json:"subject"`
	Body                string `json:"body"`
	Urgent              bool   `json:"urgent"`
	PatientID           string `json:"patient_id"`
}

// Compose sends a message to a department inbox.
func (s *Service) Compose(ctx context.Context, p *session.Principal, in ComposeInput) (*Message, error) {
	if in.RecipientDepartment == "" {
		return nil, fmt.Errorf("%w: recipient_department is required", ErrInvalid)
	}
	if in.Subject == "" || in.Body == "" {
		return nil, fmt.Errorf("%w: subject and body are required", ErrInvalid)
	}

	m := &Message{
		SenderID:            p.UserID,
		SenderName:          p.Username,
		RecipientDepartment: in.RecipientDepartment,
		Subject:             in.Subject,
		Body:                in.Body,
		Urgent:              in.Urgent,
	}
	if in.PatientID != "" {
		id, err := uuid.Parse(in.PatientID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid patient_id", ErrInvalid)
		}
		if _, err := s.patients.Get(ctx, id); err != nil {
			if errors.Is(err, patient.ErrNotFound) {
				return nil, ErrPatientNotFound
			}
			return nil, err
		}
		m.PatientID = &id
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// EscalateInput carries the critical-patient hand-off fields.
type EscalateInput struct {
	PatientID       string `json:"patient_id"`
	RecipientUserID string `json:"recipient_user_id"`
	Body            string `json:"body"`
}

// Escalate sends an urgent, patient-bound message straight to a doctor.
func (s *Service) Escalate(ctx context.Context, p *session.Principal, in EscalateInput) (*Message, error) {
	if in.Body == "" {
		return nil, fmt.Errorf("%w: body is required", ErrInvalid)
	}
	recipientID, err := uuid.Parse(in.RecipientUserID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid recipient_user_id", ErrInvalid)
	}
	patientID, err := uuid.Parse(in.PatientID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid patient_id", ErrInvalid)
	}

	pt, err := s.patients.Get(ctx, patientID)
	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	m := &Message{
		SenderID:        p.UserID,
		SenderName:      p.Username,
		RecipientUserID: &recipientID,
		Subject:         "URGENT: " + pt.FullName,
		Body:            in.Body,
		Urgent:          true,
		PatientID:       &pt.ID,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Inbox lists the caller's messages, newest first.
func (s *Service) Inbox(ctx context.Context, p *session.Principal, limit, offset int) ([]*Message, int, error) {
	return s.repo.Inbox(ctx, p.UserID, p.Department, limit, offset)
}

// UnreadCount powers the inbox badge.
func (s *Service) UnreadCount(ctx context.Context, p *session.Principal) (int, error) {
	return s.repo.CountUnread(ctx, p.UserID, p.Department)
}

// Open returns a message and marks it read. Only the recipient context may
// open it; re-opening is harmless.
func (s *Service) Open(ctx context.Context, p *session.Principal, id uuid.UUID) (*Message, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.addressedTo(p.UserID, p.Department) {
		return nil, ErrNotRecipient
	}
	if !m.Read() {
		if err := s.repo.MarkRead(ctx, id); err != nil {
			return nil, err
		}
	}
	return m, nil
}
