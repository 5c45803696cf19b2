package notification

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	// ListByRecipient returns newest first along with the total count.
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]*Notification, int, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error)
	// MarkRead fails with apperr.NotFound unless id belongs to recipientID.
	MarkRead(ctx context.Context, recipientID, id uuid.UUID) error
}
