package medication

import (
	"time"

	"github.com/google/uuid"
)

// Medication statuses. Prescriptions start ongoing; nurse-scheduled doses
// start scheduled and move to administered or missed exactly once.
const (
	StatusOngoing      = "ongoing"
	StatusScheduled    = "scheduled"
	StatusAdministered = "administered"
	StatusMissed       = "missed"
)

// TerminalStatuses are the statuses a scheduled dose may move to.
var TerminalStatuses = map[string]bool{
	StatusAdministered: true,
	StatusMissed:       true,
}

// Medication is a prescription or a scheduled dose for a patient.
type Medication struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	PatientID   uuid.UUID  `json:"patient_id" db:"patient_id"`
	Name        string     `json:"name" db:"name"`
	Dosage      string     `json:"dosage" db:"dosage"`
	Frequency   string     `json:"frequency,omitempty" db:"frequency"`
	Status      string     `json:"status" db:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty" db:"scheduled_at"`
	OrderedBy   uuid.UUID  `json:"ordered_by" db:"ordered_by"`
	UpdatedBy   *uuid.UUID `json:"updated_by,omitempty" db:"updated_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Filter narrows medication listings. Department restricts to orders for
// patients of one ward; the service forces it for ward staff readers.
type Filter struct {
	PatientID  uuid.UUID
	Status     string
	Department string
}
