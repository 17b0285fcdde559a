package bridge

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Hub keeps the connected extension of each owner. A newer connection for
// the same owner replaces the older one.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{clients: make(map[string]*Client), logger: logger}
}

// Attach wraps ch in a Client for ownerID and returns it. The client is
// dropped from the hub when its channel closes.
func (h *Hub) Attach(ownerID string, ch Channel) *Client {
	c := NewClient(ch, h.logger.With(zap.String("ownerID", ownerID)))

	h.mu.Lock()
	old := h.clients[ownerID]
	h.clients[ownerID] = c
	h.mu.Unlock()

	if old != nil {
		h.logger.Info("🔁 Replacing extension connection", zap.String("ownerID", ownerID))
		go old.Close()
	}

	go func() {
		<-c.Done()
		h.mu.Lock()
		if h.clients[ownerID] == c {
			delete(h.clients, ownerID)
		}
		h.mu.Unlock()
	}()
	return c
}

func (h *Hub) Connected(ownerID string) bool {
	return h.get(ownerID) != nil
}

func (h *Hub) get(ownerID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[ownerID]
}

// SchedulePosts forwards to the owner's extension. No connected extension
// is reported the same way as one that did not answer.
func (h *Hub) SchedulePosts(ctx context.Context, ownerID string, posts []ScheduledPost) ScheduleResult {
	c := h.get(ownerID)
	if c == nil {
		return ScheduleResult{Unavailable: true, Error: "extension unavailable"}
	}
	return c.SchedulePosts(ctx, posts)
}

func (h *Hub) PostNow(ctx context.Context, ownerID string, p PostNow) PostResult {
	c := h.get(ownerID)
	if c == nil {
		return PostResult{PostID: p.ID, Unavailable: true, Error: "extension unavailable"}
	}
	return c.PostNow(ctx, p)
}

// Close disconnects every extension.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}
