package diagnostics

import (
	"time"

	"github.com/google/uuid"
)

// Status of a test result. Requested results move to completed exactly once;
// a completed result is terminal.
const (
	StatusRequested = "requested"
	StatusCompleted = "completed"
)

// Category groups test types by the fulfilling department.
const (
	CategoryLaboratory = "laboratory"
	CategoryRadiology  = "radiology"
)

// TestTypes enumerates the orderable tests per category.
var TestTypes = map[string][]string{
	CategoryLaboratory: {"blood test", "urine test"},
	CategoryRadiology:  {"x-ray", "ultrasound", "ct scan", "mri"},
}

// ValidTestType reports whether the type belongs to the category.
func ValidTestType(category, testType string) bool {
	for _, t := range TestTypes[category] {
		if t == testType {
			return true
		}
	}
	return false
}

// TestResult is a diagnostic order and, once fulfilled, its outcome.
type TestResult struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	PatientID   uuid.UUID  `json:"patient_id" db:"patient_id"`
	Category    string     `json:"category" db:"category"`
	TestType    string     `json:"test_type" db:"test_type"`
	Status      string     `json:"status" db:"request_status"`
	ResultValue *string    `json:"result_value,omitempty" db:"result_value"`
	ImageID     *string    `json:"image_id,omitempty" db:"image_id"`
	RequestedBy uuid.UUID  `json:"requested_by" db:"requested_by"`
	RequestedAt time.Time  `json:"requested_at" db:"requested_at"`
	FulfilledBy *uuid.UUID `json:"fulfilled_by,omitempty" db:"fulfilled_by"`
	FulfilledAt *time.Time `json:"fulfilled_at,omitempty" db:"fulfilled_at"`
}

// Filter narrows result listings. Department restricts to orders for
// patients of one ward; the service forces it for ward staff readers.
type Filter struct {
	PatientID  uuid.UUID
	TestType   string
	Status     string
	Category   string
	Department string
}
