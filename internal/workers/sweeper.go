package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"postsync/internal/core/notification"
	postEntity "postsync/internal/core/post"
	"postsync/internal/metrics"
	feedPort "postsync/internal/ports/feed"
	postPort "postsync/internal/ports/post"
)

const StaleMessage = "Post was not published within the expected timeframe"

const (
	passFalsePending = "false_pending"
	passStuck        = "stuck"
)

// SweepReport summarises one sweep.
type SweepReport struct {
	Posted int
	Failed int
	Errors int
}

// Sweeper force-resolves posts whose terminal callback never arrived. Each
// row goes through the same compare-and-set as an extension report, so a
// post that is already terminal is left alone.
type Sweeper struct {
	PostRepo   postPort.PostRepository
	Feed       feedPort.Publisher
	StaleAfter time.Duration
	BatchSize  int
	Logger     *zap.Logger
	Now        func() time.Time
}

func NewSweeper(postRepo postPort.PostRepository, feed feedPort.Publisher, staleAfter time.Duration, batchSize int, logger *zap.Logger) *Sweeper {
	if feed == nil {
		feed = feedPort.Nop{}
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Sweeper{
		PostRepo:   postRepo,
		Feed:       feed,
		StaleAfter: staleAfter,
		BatchSize:  batchSize,
		Logger:     logger,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps on every tick of cronExpr until ctx is done.
func (w *Sweeper) Run(ctx context.Context, cronExpr string) error {
	if !gronx.IsValid(cronExpr) {
		return fmt.Errorf("invalid sweep cron expression: %s", cronExpr)
	}
	w.Logger.Info("🧹 Sweeper started", zap.String("cron", cronExpr))

	for {
		next, err := gronx.NextTickAfter(cronExpr, time.Now(), false)
		if err != nil {
			w.Logger.Error("❌ Could not compute next sweep", zap.Error(err))
			next = time.Now().Add(30 * time.Second)
		}

		select {
		case <-ctx.Done():
			w.Logger.Info("🛑 Sweeper stopped")
			return nil
		case <-time.After(time.Until(next)):
		}

		report := w.SweepOnce(ctx)
		w.Logger.Info("✅ Sweep finished",
			zap.Int("posted", report.Posted),
			zap.Int("failed", report.Failed),
			zap.Int("errors", report.Errors))
	}
}

// SweepOnce runs both passes. A failing row is logged and skipped.
func (w *Sweeper) SweepOnce(ctx context.Context) SweepReport {
	var report SweepReport
	now := w.Now()

	falsePending, err := w.PostRepo.FindFalsePending(ctx, now, w.BatchSize)
	if err != nil {
		w.fail(passFalsePending, "", err)
		report.Errors++
	}
	for _, p := range falsePending {
		applied, err := w.resolvePosted(ctx, p, now)
		switch {
		case err != nil:
			w.fail(passFalsePending, p.ID.String(), err)
			report.Errors++
		case applied:
			report.Posted++
		}
	}

	stuck, err := w.PostRepo.FindStuck(ctx, now.Add(-w.StaleAfter), w.BatchSize)
	if err != nil {
		w.fail(passStuck, "", err)
		report.Errors++
	}
	for _, p := range stuck {
		applied, err := w.resolveFailed(ctx, p, now)
		switch {
		case err != nil:
			w.fail(passStuck, p.ID.String(), err)
			report.Errors++
		case applied:
			report.Failed++
		}
	}
	return report
}

func (w *Sweeper) resolvePosted(ctx context.Context, p *postEntity.Post, now time.Time) (bool, error) {
	postedAt := p.PostedAt
	if postedAt == nil {
		postedAt = p.ScheduleTime
	}
	applied, err := w.PostRepo.Transition(ctx, postPort.Transition{
		PostID:             p.ID,
		OwnerID:            p.OwnerID,
		Cycle:              p.Cycle,
		From:               postEntity.Sources(postEntity.ActorSweeper, postEntity.StatusPosted),
		To:                 postEntity.StatusPosted,
		Stamp:              postEntity.NextStamp(now, p.UpdatedAt),
		PostedAt:           postedAt,
		IncrementPublished: true,
		Notification:       notification.Published(p.OwnerID, p.ID, p.Cycle, p.ExternalPostURL),
	})
	if err != nil || !applied {
		return applied, err
	}
	metrics.SweepResolutions.WithLabelValues(passFalsePending).Inc()
	w.Logger.Info("📬 Resolved false-pending post", zap.String("postID", p.ID.String()))
	w.publish(ctx, p, postEntity.StatusPosted)
	return true, nil
}

func (w *Sweeper) resolveFailed(ctx context.Context, p *postEntity.Post, now time.Time) (bool, error) {
	reason := StaleMessage
	applied, err := w.PostRepo.Transition(ctx, postPort.Transition{
		PostID:       p.ID,
		OwnerID:      p.OwnerID,
		Cycle:        p.Cycle,
		From:         postEntity.Sources(postEntity.ActorSweeper, postEntity.StatusFailed),
		To:           postEntity.StatusFailed,
		Stamp:        postEntity.NextStamp(now, p.UpdatedAt),
		LastError:    &reason,
		BumpRetry:    true,
		Notification: notification.Failed(p.OwnerID, p.ID, p.Cycle, reason),
	})
	if err != nil || !applied {
		return applied, err
	}
	metrics.SweepResolutions.WithLabelValues(passStuck).Inc()
	w.Logger.Info("⏰ Resolved stuck post", zap.String("postID", p.ID.String()), zap.String("previous", string(p.Status)))
	w.publish(ctx, p, postEntity.StatusFailed)
	return true, nil
}

func (w *Sweeper) fail(pass, postID string, err error) {
	metrics.SweepErrors.WithLabelValues(pass).Inc()
	w.Logger.Error("❌ Sweep error", zap.String("pass", pass), zap.String("postID", postID), zap.Error(err))
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("pass", pass)
		if postID != "" {
			scope.SetTag("postID", postID)
		}
		sentry.CaptureException(err)
	})
}

func (w *Sweeper) publish(ctx context.Context, p *postEntity.Post, status postEntity.Status) {
	ev := feedPort.Event{
		Type:    feedPort.EventUpdated,
		OwnerID: p.OwnerID.String(),
		PostID:  p.ID.String(),
		Status:  string(status),
		At:      w.Now(),
	}
	if err := w.Feed.Publish(ctx, ev); err != nil {
		w.Logger.Warn("⚠️ Could not publish change event", zap.String("postID", ev.PostID), zap.Error(err))
	}
}
