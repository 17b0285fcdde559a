package slack

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"postsync/internal/core/notification"
)

// Notifier mirrors notifications into a Slack channel through an incoming
// webhook.
type Notifier struct {
	webhookURL string
	logger     *zap.Logger
}

func NewNotifier(webhookURL string, logger *zap.Logger) *Notifier {
	return &Notifier{webhookURL: webhookURL, logger: logger}
}

func (n *Notifier) Deliver(ctx context.Context, item *notification.Notification) error {
	emoji := ":white_check_mark:"
	if item.Kind == notification.KindFailed {
		emoji = ":x:"
	}
	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf("%s %s", emoji, item.Message),
		Blocks: &slack.Blocks{BlockSet: []slack.Block{
			slack.NewSectionBlock(
				slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("%s *%s*\n%s", emoji, item.Kind, item.Message), false, false),
				nil, nil,
			),
			slack.NewContextBlock("",
				slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("post `%s` · owner `%s`", item.PostID, item.OwnerID), false, false),
			),
		}},
	}
	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	return nil
}

// LogNotifier only logs; it keeps the delivery queue draining when no
// webhook is configured.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Deliver(_ context.Context, item *notification.Notification) error {
	n.Logger.Info("🔔 Notification", zap.String("ownerID", item.OwnerID.String()), zap.String("kind", string(item.Kind)), zap.String("message", item.Message))
	return nil
}
