package identity

import "errors"

var (
	ErrInvalid            = errors.New("invalid user input")
	ErrNotFound           = errors.New("user not found")
	ErrDuplicateEmployee  = errors.New("employee id already registered")
	ErrInvalidCredentials = errors.New("invalid employee id or password")
	ErrInactive           = errors.New("account is deactivated")
)
