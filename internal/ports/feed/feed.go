package feed

import (
	"context"
	"time"
)

type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event is a re-fetch signal for one owner's posts. Consumers must not rely
// on it carrying the full row.
type Event struct {
	Type    EventType `json:"type"`
	OwnerID string    `json:"ownerId"`
	PostID  string    `json:"postId"`
	Status  string    `json:"status,omitempty"`
	At      time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscriber streams events for one owner until ctx ends or the returned
// cancel func is called.
type Subscriber interface {
	Subscribe(ctx context.Context, ownerID string) (<-chan Event, func(), error)
}

// Nop is used when no Redis is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// History returns an owner's latest events so a fresh subscriber can catch up.
type History interface {
	Recent(ctx context.Context, ownerID string, limit int64) ([]Event, error)
}
