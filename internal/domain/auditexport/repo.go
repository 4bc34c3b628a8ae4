package auditexport

import (
	"context"
	"errors"
)

var ErrInvalid = errors.New("invalid export log input")

type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, limit, offset int) ([]*Entry, int, error)
}
