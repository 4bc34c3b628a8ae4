package vitals

import "errors"

var (
	ErrInvalid         = errors.New("invalid vitals input")
	ErrNotFound        = errors.New("reading not found")
	ErrPatientNotFound = errors.New("patient not found")
	ErrDischarged      = errors.New("patient record is closed")
	ErrWrongDepartment = errors.New("patient is outside your department")
)
