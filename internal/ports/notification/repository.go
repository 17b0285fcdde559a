package notification

import (
	"context"
	"time"

	"postsync/internal/core/notification"

	"github.com/gofrs/uuid"
)

type NotificationRepository interface {
	ListForOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*notification.Notification, error)
	FindForOwner(ctx context.Context, ownerID, id uuid.UUID) (*notification.Notification, error)
	MarkRead(ctx context.Context, ownerID, id uuid.UUID, at time.Time) (bool, error)
	FindUndelivered(ctx context.Context, limit int) ([]*notification.Notification, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Notifier pushes a notification to an outside channel.
type Notifier interface {
	Deliver(ctx context.Context, n *notification.Notification) error
}

type NotificationDTO struct {
	ID        string     `json:"id"`
	PostID    string     `json:"postId"`
	Kind      string     `json:"kind"`
	Message   string     `json:"message"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func ToDTOs(items []*notification.Notification) []*NotificationDTO {
	out := make([]*NotificationDTO, 0, len(items))
	for _, n := range items {
		out = append(out, &NotificationDTO{
			ID:        n.ID.String(),
			PostID:    n.PostID.String(),
			Kind:      string(n.Kind),
			Message:   n.Message,
			ReadAt:    n.ReadAt,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}
