package messaging

import "errors"

var (
	ErrInvalid         = errors.New("invalid message input")
	ErrNotFound        = errors.New("message not found")
	ErrPatientNotFound = errors.New("patient not found")
	ErrNotRecipient    = errors.New("only the recipient may read this message")
)
