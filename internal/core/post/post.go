package post

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/gofrs/uuid"
)

// Post is a LinkedIn post owned by exactly one account.
type Post struct {
	ID              uuid.UUID  `gorm:"primaryKey;type:char(36)"`
	OwnerID         uuid.UUID  `gorm:"type:char(36);not null;index:idx_posts_owner_schedule,priority:1;uniqueIndex:ux_posts_owner_tracking,priority:1"`
	Content         string     `gorm:"type:text;not null"`
	TrackingID      *string    `gorm:"type:varchar(64);uniqueIndex:ux_posts_owner_tracking,priority:2;index:idx_posts_tracking"`
	ImageURL        *string    `gorm:"type:varchar(2048)"`
	ScheduleTime    *time.Time `gorm:"index:idx_posts_owner_schedule,priority:2;index:idx_posts_status_schedule,priority:2"`
	Status          Status     `gorm:"type:varchar(16);not null;index:idx_posts_status_schedule,priority:1;check:chk_posts_status,status IN ('pending','posting','posted','failed')"`
	ExternalPostID  *string    `gorm:"type:varchar(255)"`
	ExternalPostURL *string    `gorm:"type:varchar(2048)"`
	PostedAt        *time.Time
	LastError       *string `gorm:"type:text"`
	RetryCount      int     `gorm:"not null;default:0"`
	// Cycle counts retries internally; RetryCount is reset on retry but
	// notification dedup must still tell cycles apart.
	Cycle     int `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Post) TableName() string { return "posts" }

// Deletable reports whether the owner may remove the post in its current state.
func (p *Post) Deletable() bool {
	return p.Status == StatusPending || p.Status == StatusFailed
}

// NewTrackingID returns a short content-embeddable key such as "ps-9f86d081".
func NewTrackingID() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "ps-" + uuid.Must(uuid.NewV4()).String()[:8]
	}
	return "ps-" + hex.EncodeToString(b[:])
}

// NextStamp returns a mutation timestamp that never goes backwards relative
// to the stored updated_at.
func NextStamp(now, previous time.Time) time.Time {
	if !now.After(previous) {
		return previous.Add(time.Microsecond)
	}
	return now
}
