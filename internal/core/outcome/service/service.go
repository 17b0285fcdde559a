package outcomeapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"postsync/internal/core/notification"
	"postsync/internal/core/outcome"
	postEntity "postsync/internal/core/post"
	"postsync/internal/metrics"
	feedPort "postsync/internal/ports/feed"
	postPort "postsync/internal/ports/post"
)

// maxAttempts bounds how often a report is re-evaluated when the row moved
// underneath it between read and conditional write.
const maxAttempts = 3

type Result struct {
	Post    *postPort.PostDTO `json:"post"`
	Applied bool              `json:"applied"`
}

// OutcomeService applies status reports from the publishing extension.
type OutcomeService struct {
	PostRepository postPort.PostRepository
	Feed           feedPort.Publisher
	Logger         *zap.Logger
	now            func() time.Time
}

func NewOutcomeService(postRepo postPort.PostRepository, feed feedPort.Publisher, logger *zap.Logger, now func() time.Time) *OutcomeService {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if feed == nil {
		feed = feedPort.Nop{}
	}
	return &OutcomeService{PostRepository: postRepo, Feed: feed, Logger: logger, now: now}
}

// ReportOutcome locates the post, checks the claimed owner and applies the
// reported status as a compare-and-set. A repeat of the stored status is
// accepted with Applied=false and no side effects, except that a repeated
// posting report may fill in a missing URL.
func (s *OutcomeService) ReportOutcome(ctx context.Context, req outcome.Request) (*Result, error) {
	to := req.Report.Status()
	res, err := s.report(ctx, req)
	switch {
	case err == nil && res.Applied:
		metrics.SyncOutcomes.WithLabelValues(string(to), metrics.ResultApplied).Inc()
	case err == nil:
		metrics.SyncOutcomes.WithLabelValues(string(to), metrics.ResultNoop).Inc()
	case errors.Is(err, postEntity.ErrTransientStore):
		metrics.SyncOutcomes.WithLabelValues(string(to), metrics.ResultError).Inc()
	default:
		metrics.SyncOutcomes.WithLabelValues(string(to), metrics.ResultRejected).Inc()
	}
	return res, err
}

func (s *OutcomeService) report(ctx context.Context, req outcome.Request) (*Result, error) {
	p, err := s.locate(ctx, req.Target)
	if err != nil {
		return nil, err
	}
	if err := postEntity.Authorize(req.Target.ClaimedOwner, p); err != nil {
		s.Logger.Warn("⛔ Outcome rejected: owner mismatch", zap.String("postID", p.ID.String()))
		return nil, err
	}

	to := req.Report.Status()
	for attempt := 0; attempt < maxAttempts; attempt++ {
		decision, err := postEntity.Decide(postEntity.ActorExtension, p.Status, to)
		if err != nil {
			return nil, err
		}
		t := s.transitionFor(p, req.Report)
		if decision == postEntity.DecisionNoop {
			if !attachesURL(p, req.Report) {
				s.Logger.Info("↩️ Outcome already recorded", zap.String("postID", p.ID.String()), zap.String("status", string(to)))
				return &Result{Post: postPort.ToDTO(p), Applied: false}, nil
			}
			// posting again, now with the URL the first report lacked
			t.From = []postEntity.Status{postEntity.StatusPosting}
		}

		applied, err := s.PostRepository.Transition(ctx, t)
		if err != nil {
			s.Logger.Error("❌ Failed to apply outcome", zap.String("postID", p.ID.String()), zap.Error(err))
			return nil, err
		}

		fresh, err := s.PostRepository.FindByID(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if applied {
			s.Logger.Info("✅ Outcome applied",
				zap.String("postID", p.ID.String()),
				zap.String("from", string(p.Status)),
				zap.String("to", string(to)))
			s.publish(ctx, fresh)
			return &Result{Post: postPort.ToDTO(fresh), Applied: true}, nil
		}
		p = fresh
	}
	return nil, fmt.Errorf("%w: post %s kept changing while applying outcome", postEntity.ErrTransientStore, p.ID)
}

// locate finds the post by id, falling back to the tracking id. A tracking
// id lookup is limited to the claimed owner when there is one.
func (s *OutcomeService) locate(ctx context.Context, t outcome.Target) (*postEntity.Post, error) {
	if t.PostID != nil {
		p, err := s.PostRepository.FindByID(ctx, *t.PostID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, postEntity.ErrNotFound) || t.TrackingID == "" {
			return nil, err
		}
	}

	posts, err := s.PostRepository.FindByTrackingID(ctx, t.TrackingID, t.ClaimedOwner)
	if err != nil {
		return nil, err
	}
	switch len(posts) {
	case 0:
		return nil, fmt.Errorf("%w: no post matches the given identifiers", postEntity.ErrNotFound)
	case 1:
		return posts[0], nil
	default:
		return nil, fmt.Errorf("%w: trackingId matches more than one post, send userId", postEntity.ErrValidation)
	}
}

func (s *OutcomeService) transitionFor(p *postEntity.Post, r outcome.Report) postPort.Transition {
	t := postPort.Transition{
		PostID:  p.ID,
		OwnerID: p.OwnerID,
		Cycle:   p.Cycle,
		From:    postEntity.Sources(postEntity.ActorExtension, r.Status()),
		To:      r.Status(),
		Stamp:   postEntity.NextStamp(s.now(), p.UpdatedAt),
	}
	switch r := r.(type) {
	case outcome.Posting:
		t.ExternalPostURL = r.URL
		t.ExternalPostID = r.ExternalID
	case outcome.Posted:
		postedAt := r.PostedAt
		t.PostedAt = &postedAt
		t.ExternalPostURL = r.URL
		t.ExternalPostID = r.ExternalID
		t.IncrementPublished = true
		t.Notification = notification.Published(p.OwnerID, p.ID, p.Cycle, r.URL)
	case outcome.Failed:
		reason := r.Reason
		t.LastError = &reason
		t.BumpRetry = true
		t.Notification = notification.Failed(p.OwnerID, p.ID, p.Cycle, reason)
	}
	return t
}

// attachesURL reports whether a repeated posting report carries a URL the
// stored row does not have yet.
func attachesURL(p *postEntity.Post, r outcome.Report) bool {
	posting, ok := r.(outcome.Posting)
	return ok && p.Status == postEntity.StatusPosting && p.ExternalPostURL == nil && posting.URL != nil
}

func (s *OutcomeService) publish(ctx context.Context, p *postEntity.Post) {
	ev := feedPort.Event{
		Type:    feedPort.EventUpdated,
		OwnerID: p.OwnerID.String(),
		PostID:  p.ID.String(),
		Status:  string(p.Status),
		At:      s.now(),
	}
	if err := s.Feed.Publish(ctx, ev); err != nil {
		s.Logger.Warn("⚠️ Could not publish change event", zap.String("postID", ev.PostID), zap.Error(err))
	}
}
