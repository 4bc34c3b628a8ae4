package auditexport

import (
	"time"

	"github.com/google/uuid"
)

// Entry records that a user pulled an export (patient list, report CSV,
// and so on). The log is append-only; entries are never edited or removed.
type Entry struct {
	ID         uuid.UUID `json:"id" db:"id"`
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	Username   string    `json:"username" db:"username"`
	Role       string    `json:"role" db:"role"`
	Department string    `json:"department" db:"department"`
	ExportType string    `json:"export_type" db:"export_type"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
