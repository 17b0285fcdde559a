package bridge

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	TypeSchedulePosts  MessageType = "SCHEDULE_POSTS"
	TypeScheduleResult MessageType = "SCHEDULE_RESULT"
	TypePostNow        MessageType = "POST_NOW"
	TypePostResult     MessageType = "POST_RESULT"
)

// Envelope is one message on a Channel. Payload holds the type-specific body.
type Envelope struct {
	Type          MessageType     `json:"type"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

type ScheduledPost struct {
	ID           string    `json:"id"`
	Content      string    `json:"content"`
	ImageURL     *string   `json:"imageUrl,omitempty"`
	ScheduleTime time.Time `json:"scheduleTime"`
}

type SchedulePosts struct {
	Posts []ScheduledPost `json:"posts"`
}

type PostNow struct {
	ID       string  `json:"id"`
	Content  string  `json:"content"`
	ImageURL *string `json:"imageUrl,omitempty"`
}

// ScheduleResult is what the extension answered, or a local failure when
// TimedOut or Unavailable is set.
type ScheduleResult struct {
	Success     bool   `json:"success"`
	QueueLength *int   `json:"queueLength,omitempty"`
	Error       string `json:"error,omitempty"`
	TimedOut    bool   `json:"timedOut,omitempty"`
	Unavailable bool   `json:"unavailable,omitempty"`
}

type PostResult struct {
	PostID      string  `json:"postId"`
	Success     bool    `json:"success"`
	LinkedinURL *string `json:"linkedinUrl,omitempty"`
	Error       string  `json:"error,omitempty"`
	TimedOut    bool    `json:"timedOut,omitempty"`
	Unavailable bool    `json:"unavailable,omitempty"`
}

// Advisory is shown when the extension did not answer in time. It does not
// claim the post failed.
const Advisory = "The extension may be unresponsive. The post stays scheduled and its status will update once the extension reports back."
