package outcome

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"

	"postsync/internal/core/post"
)

const DefaultFailureReason = "Unknown error"

// Report is what the publishing extension says happened to a post. It is
// one of Posting, Posted or Failed.
type Report interface {
	Status() post.Status
	isReport()
}

// Posting marks a publish attempt as in progress. URL and ExternalID are
// stored when present; the sweeper settles a stale post that has a URL as
// posted.
type Posting struct {
	URL        *string
	ExternalID *string
}

// Posted carries the outcome of a successful publish. URL and ExternalID
// may be nil when the extension could not read them back.
type Posted struct {
	PostedAt   time.Time
	URL        *string
	ExternalID *string
}

type Failed struct {
	Reason string
}

func (Posting) Status() post.Status { return post.StatusPosting }
func (Posted) Status() post.Status  { return post.StatusPosted }
func (Failed) Status() post.Status  { return post.StatusFailed }

func (Posting) isReport() {}
func (Posted) isReport()  {}
func (Failed) isReport()  {}

// Target locates the post a report is about. PostID wins over TrackingID
// when both are present.
type Target struct {
	PostID       *uuid.UUID
	TrackingID   string
	ClaimedOwner *uuid.UUID
}

type Request struct {
	Target Target
	Report Report
}

// Payload is the JSON body posted by the extension. Fields it cannot supply
// are absent, never zero.
type Payload struct {
	PostID         *string    `json:"postId,omitempty"`
	TrackingID     *string    `json:"trackingId,omitempty"`
	UserID         *string    `json:"userId,omitempty"`
	Status         string     `json:"status"`
	PostedAt       *time.Time `json:"postedAt,omitempty"`
	LinkedinURL    *string    `json:"linkedinUrl,omitempty"`
	LinkedinPostID *string    `json:"linkedinPostId,omitempty"`
	LastError      *string    `json:"lastError,omitempty"`
}

// Decode turns a payload into a typed request. receivedAt fills in a
// missing publish time.
func (p Payload) Decode(receivedAt time.Time) (Request, error) {
	var req Request

	if id := trimmed(p.PostID); id != nil {
		parsed, err := uuid.FromString(*id)
		if err != nil {
			return req, fmt.Errorf("%w: postId is not a valid id", post.ErrValidation)
		}
		req.Target.PostID = &parsed
	}
	if tid := trimmed(p.TrackingID); tid != nil {
		req.Target.TrackingID = *tid
	}
	if req.Target.PostID == nil && req.Target.TrackingID == "" {
		return req, fmt.Errorf("%w: postId or trackingId is required", post.ErrValidation)
	}
	if uid := trimmed(p.UserID); uid != nil {
		parsed, err := uuid.FromString(*uid)
		if err != nil {
			return req, fmt.Errorf("%w: userId is not a valid id", post.ErrValidation)
		}
		req.Target.ClaimedOwner = &parsed
	}

	switch post.Status(p.Status) {
	case post.StatusPosting:
		req.Report = Posting{
			URL:        trimmed(p.LinkedinURL),
			ExternalID: trimmed(p.LinkedinPostID),
		}
	case post.StatusPosted:
		at := receivedAt.UTC()
		if p.PostedAt != nil && !p.PostedAt.IsZero() {
			at = p.PostedAt.UTC()
		}
		req.Report = Posted{
			PostedAt:   at,
			URL:        trimmed(p.LinkedinURL),
			ExternalID: trimmed(p.LinkedinPostID),
		}
	case post.StatusFailed:
		reason := DefaultFailureReason
		if e := trimmed(p.LastError); e != nil {
			reason = *e
		}
		req.Report = Failed{Reason: reason}
	case post.StatusPending:
		return req, fmt.Errorf("%w: pending cannot be reported", post.ErrValidation)
	default:
		return req, fmt.Errorf("%w: unknown status %q", post.ErrValidation, p.Status)
	}
	return req, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
