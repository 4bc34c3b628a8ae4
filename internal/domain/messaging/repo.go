package messaging

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*Message, error)
	// Inbox lists messages addressed to the user directly or to their
	// department, newest first.
	Inbox(ctx context.Context, userID uuid.UUID, department string, limit, offset int) ([]*Message, int, error)
	CountUnread(ctx context.Context, userID uuid.UUID, department string) (int, error)
	// MarkRead is idempotent; re-reading an already-read message is a no-op.
	MarkRead(ctx context.Context, id uuid.UUID) error
}
