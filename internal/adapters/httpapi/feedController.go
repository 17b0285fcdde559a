package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	feedPort "postsync/internal/ports/feed"
)

const replayLimit = 20

// FeedController streams an owner's post change events over a websocket.
// Clients treat every event as a signal to re-fetch.
type FeedController struct {
	feed    feedPort.Subscriber
	history feedPort.History
	logger  *zap.Logger
}

func NewFeedController(feed feedPort.Subscriber, history feedPort.History, logger *zap.Logger) *FeedController {
	return &FeedController{feed: feed, history: history, logger: logger}
}

func (ctl *FeedController) Stream(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if ctl.feed == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "change feed is not configured", "code": "unavailable"})
		return
	}

	events, cancel, err := ctl.feed.Subscribe(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	defer cancel()

	conn, err := acceptWebsocket(c)
	if err != nil {
		ctl.logger.Warn("⚠️ Feed upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	ctx := conn.CloseRead(c.Request.Context())

	if ctl.history != nil {
		recent, err := ctl.history.Recent(ctx, userID, replayLimit)
		if err != nil {
			ctl.logger.Warn("⚠️ Could not load recent feed events", zap.Error(err))
		}
		for _, ev := range recent {
			if err := wsjson.Write(ctx, conn, ev); err != nil {
				return
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "feed closed")
				return
			}
			if err := wsjson.Write(ctx, conn, ev); err != nil {
				ctl.logger.Debug("Feed client went away", zap.String("ownerID", userID), zap.Error(err))
				return
			}
		}
	}
}
