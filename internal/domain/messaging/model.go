package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Message is a staff-to-staff note. Exactly one addressing mode is set:
// a department label for routine traffic, or a specific user for
// escalations.
type Message struct {
	ID                  uuid.UUID  `json:"id" db:"id"`
	SenderID            uuid.UUID  `json:"sender_id" db:"sender_id"`
	SenderName          string     `json:"sender_name" db:"sender_name"`
	RecipientUserID     *uuid.UUID `json:"recipient_user_id,omitempty" db:"recipient_user_id"`
	RecipientDepartment string     `json:"recipient_department,omitempty" db:"recipient_department"`
	Subject             string     `json:"subject" db:"subject"`
	Body                string     `json:"body" db:"body"`
	Urgent              bool       `json:"urgent" db:"urgent"`
	PatientID           *uuid.UUID `json:"patient_id,omitempty" db:"patient_id"`
	ReadAt              *time.Time `json:"read_at,omitempty" db:"read_at"`
	SentAt              time.Time  `json:"sent_at" db:"sent_at"`
}

// Read reports whether the message has been opened.
func (m *Message) Read() bool {
	return m.ReadAt != nil
}

// addressedTo reports whether the principal identified by user and
// department is a valid recipient context for the message.
func (m *Message) addressedTo(userID uuid.UUID, department string) bool {
	if m.RecipientUserID != nil {
		return *m.RecipientUserID == userID
	}
	return m.RecipientDepartment != "" && m.RecipientDepartment == department
}
