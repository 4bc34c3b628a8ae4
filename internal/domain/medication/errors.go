package medication

import "errors"

var (
	ErrInvalid         = errors.New("invalid medication input")
	ErrNotFound        = errors.New("medication not found")
	ErrPatientNotFound = errors.New("patient not found")
	ErrDischarged      = errors.New("patient record is closed")
	ErrWrongDepartment = errors.New("patient is outside your department")
	ErrNotScheduled    = errors.New("medication is not in scheduled status")
)
