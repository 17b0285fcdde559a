package notification

import (
	"time"

	"github.com/gofrs/uuid"
)

type Kind string

const (
	KindPublished Kind = "post_published"
	KindFailed    Kind = "post_failed"
)

// Notification is addressed to a post owner on a terminal transition.
// (post_id, cycle, kind) is unique so a repeated transition cannot notify twice.
type Notification struct {
	ID          uuid.UUID  `gorm:"primaryKey;type:char(36)"`
	OwnerID     uuid.UUID  `gorm:"type:char(36);not null;index:idx_notifications_owner"`
	PostID      uuid.UUID  `gorm:"type:char(36);not null;uniqueIndex:ux_notifications_post_kind,priority:1"`
	Cycle       int        `gorm:"not null;default:0;uniqueIndex:ux_notifications_post_kind,priority:2"`
	Kind        Kind       `gorm:"type:varchar(32);not null;uniqueIndex:ux_notifications_post_kind,priority:3"`
	Message     string     `gorm:"type:text;not null"`
	ReadAt      *time.Time
	DeliveredAt *time.Time `gorm:"index"`
	CreatedAt   time.Time  `gorm:"autoCreateTime;index:idx_notifications_owner"`
}

func (Notification) TableName() string { return "notifications" }

// Published builds the success summary for a post.
func Published(ownerID, postID uuid.UUID, cycle int, url *string) *Notification {
	msg := "Your LinkedIn post was published."
	if url != nil && *url != "" {
		msg = "Your LinkedIn post was published: " + *url
	}
	return &Notification{
		ID:      uuid.Must(uuid.NewV4()),
		OwnerID: ownerID,
		PostID:  postID,
		Cycle:   cycle,
		Kind:    KindPublished,
		Message: msg,
	}
}

// Failed builds the failure summary for a post.
func Failed(ownerID, postID uuid.UUID, cycle int, reason string) *Notification {
	return &Notification{
		ID:      uuid.Must(uuid.NewV4()),
		OwnerID: ownerID,
		PostID:  postID,
		Cycle:   cycle,
		Kind:    KindFailed,
		Message: "Your LinkedIn post could not be published: " + reason,
	}
}
