package patient

import "errors"

var (
	ErrNotFound        = errors.New("patient not found")
	ErrInvalid         = errors.New("invalid input")
	ErrDischarged      = errors.New("patient already discharged")
	ErrWrongDepartment = errors.New("patient belongs to another department")
	ErrDeathRecorded   = errors.New("death already recorded for patient")
)
