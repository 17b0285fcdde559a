package httpapi

import (
	"errors"
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"postsync/internal/adapters/httpapi/middleware"
	"postsync/internal/config"
	accountEntity "postsync/internal/core/account"
	postEntity "postsync/internal/core/post"
)

// writeError maps domain error kinds onto HTTP statuses. Forbidden never
// carries row details.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, postEntity.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation_error"})
	case errors.Is(err, postEntity.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "code": "forbidden"})
	case errors.Is(err, postEntity.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "code": "not_found"})
	case errors.Is(err, postEntity.ErrPrecondition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "precondition_failed"})
	case errors.Is(err, accountEntity.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials", "code": "unauthorized"})
	case errors.Is(err, accountEntity.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "conflict"})
	default:
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
		if config.Logger != nil {
			config.Logger.Error("❌ Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "temporary failure, retry the request", "code": "transient_store_error"})
	}
}

func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context", "code": "unauthorized"})
	}
	return userID, ok
}
