package content

import "context"

// Generator drafts post text for a topic.
type Generator interface {
	DraftText(ctx context.Context, topic string) (string, error)
}
