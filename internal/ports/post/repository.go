package post

import (
	"context"
	"time"

	"postsync/internal/core/notification"
	"postsync/internal/core/post"

	"github.com/gofrs/uuid"
)

// PostRepository is the port to the posts table. Every method that takes an
// owner applies it as a SQL predicate.
type PostRepository interface {
	Create(ctx context.Context, p *post.Post) error
	FindByID(ctx context.Context, id uuid.UUID) (*post.Post, error)
	FindForOwner(ctx context.Context, ownerID, id uuid.UUID) (*post.Post, error)
	// FindByTrackingID returns every row carrying the tracking id, limited
	// to ownerID when it is non-nil.
	FindByTrackingID(ctx context.Context, trackingID string, ownerID *uuid.UUID) ([]*post.Post, error)
	ListForOwner(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]*post.Post, error)
	UpdatePending(ctx context.Context, ownerID, id uuid.UUID, patch PendingPatch, stamp time.Time) (bool, error)
	DeleteForOwner(ctx context.Context, ownerID, id uuid.UUID, from []post.Status) (bool, error)
	// Transition applies t as one compare-and-set; applied is false when the
	// row was no longer in any of t.From.
	Transition(ctx context.Context, t Transition) (applied bool, err error)
	Reset(ctx context.Context, ownerID, id uuid.UUID, schedule, stamp time.Time) (bool, error)
	FindFalsePending(ctx context.Context, now time.Time, limit int) ([]*post.Post, error)
	FindStuck(ctx context.Context, cutoff time.Time, limit int) ([]*post.Post, error)
	CountPosted(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

type ListFilter struct {
	Status *post.Status
}

// PendingPatch holds the fields a client may edit while a post is pending.
type PendingPatch struct {
	Content      *string
	ImageURL     *string
	ScheduleTime *time.Time
	ClearImage   bool
	ClearTime    bool
}

// Transition is a conditional status write plus its side effects. The
// published counter bump and the notification insert only happen when the
// status write itself applied.
type Transition struct {
	PostID          uuid.UUID
	OwnerID         uuid.UUID
	Cycle           int
	From            []post.Status
	To              post.Status
	Stamp           time.Time
	ExternalPostID  *string
	ExternalPostURL *string
	PostedAt        *time.Time
	LastError       *string

	IncrementPublished bool
	BumpRetry          bool
	Notification       *notification.Notification
}

// PostDTO is the JSON shape returned to the dashboard.
type PostDTO struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"userId"`
	Content         string     `json:"content"`
	TrackingID      *string    `json:"trackingId,omitempty"`
	ImageURL        *string    `json:"imageUrl,omitempty"`
	ScheduleTime    *time.Time `json:"scheduleTime"`
	Status          string     `json:"status"`
	ExternalPostID  *string    `json:"linkedinPostId,omitempty"`
	ExternalPostURL *string    `json:"linkedinUrl,omitempty"`
	PostedAt        *time.Time `json:"postedAt,omitempty"`
	LastError       *string    `json:"lastError,omitempty"`
	RetryCount      int        `json:"retryCount"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func ToDTO(p *post.Post) *PostDTO {
	return &PostDTO{
		ID:              p.ID.String(),
		OwnerID:         p.OwnerID.String(),
		Content:         p.Content,
		TrackingID:      p.TrackingID,
		ImageURL:        p.ImageURL,
		ScheduleTime:    p.ScheduleTime,
		Status:          string(p.Status),
		ExternalPostID:  p.ExternalPostID,
		ExternalPostURL: p.ExternalPostURL,
		PostedAt:        p.PostedAt,
		LastError:       p.LastError,
		RetryCount:      p.RetryCount,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func ToDTOs(posts []*post.Post) []*PostDTO {
	out := make([]*PostDTO, 0, len(posts))
	for _, p := range posts {
		out = append(out, ToDTO(p))
	}
	return out
}
