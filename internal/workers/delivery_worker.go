package workers

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"

	"postsync/internal/core/notification"
	"postsync/internal/metrics"
	notificationPort "postsync/internal/ports/notification"
)

// DeliveryWorker mirrors undelivered notifications to an outside channel
// and stamps them delivered. A failed delivery stays queued for the next poll.
type DeliveryWorker struct {
	NotificationRepo notificationPort.NotificationRepository
	Notifier         notificationPort.Notifier
	BatchSize        int
	Interval         time.Duration
	Logger           *zap.Logger
}

func NewDeliveryWorker(
	notificationRepo notificationPort.NotificationRepository,
	notifier notificationPort.Notifier,
	batchSize int,
	logger *zap.Logger,
) *DeliveryWorker {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &DeliveryWorker{
		NotificationRepo: notificationRepo,
		Notifier:         notifier,
		BatchSize:        batchSize,
		Interval:         time.Second,
		Logger:           logger,
	}
}

func (w *DeliveryWorker) Run(ctx context.Context) {
	w.Logger.Info("🚀 DeliveryWorker started")
	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("🛑 Delivery worker stopped")
			return
		case <-time.After(w.Interval):
		}
		w.DeliverOnce(ctx)
	}
}

// DeliverOnce drains one batch and returns how many were delivered.
func (w *DeliveryWorker) DeliverOnce(ctx context.Context) int {
	pending, err := w.NotificationRepo.FindUndelivered(ctx, w.BatchSize)
	if err != nil {
		w.Logger.Error("❌ Error fetching undelivered notifications", zap.Error(err))
		return 0
	}

	delivered := 0
	for _, n := range pending {
		if w.deliver(ctx, n) {
			delivered++
		}
	}
	return delivered
}

func (w *DeliveryWorker) deliver(ctx context.Context, n *notification.Notification) bool {
	if n == nil || n.ID == uuid.Nil {
		w.Logger.Error("❌ Invalid notification record", zap.Any("record", n))
		return false
	}

	if err := w.Notifier.Deliver(ctx, n); err != nil {
		metrics.NotificationDeliveries.WithLabelValues(metrics.ResultError).Inc()
		w.Logger.Warn("⚠️ Could not deliver notification", zap.String("notificationID", n.ID.String()), zap.Error(err))
		return false
	}
	if err := w.NotificationRepo.MarkDelivered(ctx, n.ID, time.Now()); err != nil {
		w.Logger.Warn("⚠️ Could not mark notification delivered", zap.String("notificationID", n.ID.String()), zap.Error(err))
		return false
	}
	metrics.NotificationDeliveries.WithLabelValues(metrics.ResultOK).Inc()
	w.Logger.Info("✅ Notification delivered", zap.String("notificationID", n.ID.String()), zap.String("kind", string(n.Kind)))
	return true
}
