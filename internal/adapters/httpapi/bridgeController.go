package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"postsync/internal/bridge"
)

// BridgeController accepts the extension's websocket and registers it as
// the owner's bridge endpoint.
type BridgeController struct {
	bridge BridgeUseCase
	logger *zap.Logger
}

func NewBridgeController(b BridgeUseCase, logger *zap.Logger) *BridgeController {
	return &BridgeController{bridge: b, logger: logger}
}

func (ctl *BridgeController) Connect(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	conn, err := acceptWebsocket(c)
	if err != nil {
		ctl.logger.Warn("⚠️ Bridge upgrade failed", zap.Error(err))
		return
	}

	client := ctl.bridge.Attach(userID, bridge.NewWSChannel(conn))
	ctl.logger.Info("🔌 Extension connected", zap.String("ownerID", userID))

	select {
	case <-client.Done():
	case <-c.Request.Context().Done():
		client.Close()
	}
	ctl.logger.Info("🔌 Extension disconnected", zap.String("ownerID", userID))
}

// acceptWebsocket upgrades the request on gin's underlying writer. nhooyr
// flushes the header on a gin writer before hijacking, which gin then refuses
// as an already written response.
func acceptWebsocket(c *gin.Context) (*websocket.Conn, error) {
	var w http.ResponseWriter = c.Writer
	if u, ok := w.(interface{ Unwrap() http.ResponseWriter }); ok {
		w = u.Unwrap()
	}
	// bearer token auth, no cookies: extension and dashboard origins vary
	return websocket.Accept(w, c.Request, &websocket.AcceptOptions{InsecureSkipVerify: true})
}
