package diagnostics

import "errors"

var (
	ErrInvalid          = errors.New("invalid test request")
	ErrNotFound         = errors.New("test result not found")
	ErrPatientNotFound  = errors.New("patient not found")
	ErrDischarged       = errors.New("patient record is closed")
	ErrWrongDepartment  = errors.New("patient is outside your department")
	ErrWrongCategory    = errors.New("result is outside your fulfilment category")
	ErrAlreadyCompleted = errors.New("test result already completed")
)
