package identity

import (
	"time"

	"github.com/google/uuid"
)

// User is a staff account. EmployeeID is the hospital-issued badge number
// used to log in; it never changes after provisioning.
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	EmployeeID   string     `json:"employee_id" db:"employee_id"`
	Username     string     `json:"username" db:"username"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         string     `json:"role" db:"role"`
	Department   string     `json:"department" db:"department"`
	Active       bool       `json:"active" db:"active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Department is reference data. Name doubles as the scoping label stored
// on users, patients, and messages.
type Department struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name string    `json:"name" db:"name"`
}

// Filter narrows user listings.
type Filter struct {
	Role       string
	Department string
	ActiveOnly bool
}
