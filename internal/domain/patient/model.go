package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patients table. A patient record is created at
// admission and never hard-deleted; discharge and death close it out by
// setting discharged_at.
type Patient struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	FullName       string     `db:"full_name" json:"full_name"`
	DateOfBirth    time.Time  `db:"date_of_birth" json:"date_of_birth"`
	Gender         string     `db:"gender" json:"gender"`
	Phone          string     `db:"phone" json:"phone"`
	Department     string     `db:"department" json:"department"`
	BedNumber      *string    `db:"bed_number" json:"bed_number,omitempty"`
	Critical       bool       `db:"critical" json:"critical"`
	AdmittedAt     time.Time  `db:"admitted_at" json:"admitted_at"`
	DischargedAt   *time.Time `db:"discharged_at" json:"discharged_at,omitempty"`
	DischargeNotes *string    `db:"discharge_notes" json:"discharge_notes,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Admitted reports whether the record is still open.
func (p *Patient) Admitted() bool { return p.DischargedAt == nil }

// DeathRecord maps to the deaths table. Recording a death also closes the
// patient record; the two writes commit or roll back together.
type DeathRecord struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	DiedAt     time.Time `db:"died_at" json:"died_at"`
	Cause      string    `db:"cause" json:"cause"`
	RecordedBy uuid.UUID `db:"recorded_by" json:"recorded_by"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ValidGenders is the accepted set for the gender field.
var ValidGenders = map[string]bool{
	"male":   true,
	"female": true,
	"other":  true,
}

// Filter narrows patient listings.
type Filter struct {
	Department   string
	CriticalOnly bool
	AdmittedOnly bool
}
