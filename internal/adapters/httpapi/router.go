package httpapi

import (
	"context"
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"postsync/internal/adapters/httpapi/middleware"
	"postsync/internal/bridge"
	"postsync/internal/core/outcome"
	outcomeapp "postsync/internal/core/outcome/service"
	postapp "postsync/internal/core/post/service"
	accountPort "postsync/internal/ports/account"
	feedPort "postsync/internal/ports/feed"
	notificationPort "postsync/internal/ports/notification"
	postPort "postsync/internal/ports/post"
)

type AccountUseCase interface {
	Login(ctx context.Context, email, password string) (*accountPort.LoginResponse, error)
	Register(ctx context.Context, email, password string) (*accountPort.AccountDTO, error)
	Get(ctx context.Context, accountID string) (*accountPort.AccountDTO, error)
	ConnectLinkedIn(ctx context.Context, accountID, profileURL string) (*accountPort.AccountDTO, error)
	RecountPublished(ctx context.Context, accountID string) (*accountPort.AccountDTO, error)
	Authenticate(token string) (string, error)
}

type PostUseCase interface {
	CreatePending(ctx context.Context, ownerID string, in postapp.CreateInput) (*postPort.PostDTO, error)
	ListForOwner(ctx context.Context, ownerID, status string) ([]*postPort.PostDTO, error)
	GetForOwner(ctx context.Context, ownerID, postID string) (*postPort.PostDTO, error)
	UpdatePending(ctx context.Context, ownerID, postID string, in postapp.UpdateInput) (*postPort.PostDTO, error)
	DeleteIfDeletable(ctx context.Context, ownerID, postID string) error
	Retry(ctx context.Context, ownerID, postID string) (*postPort.PostDTO, error)
	DraftContent(ctx context.Context, topic string) (string, error)
}

type OutcomeUseCase interface {
	ReportOutcome(ctx context.Context, req outcome.Request) (*outcomeapp.Result, error)
}

type NotificationUseCase interface {
	ListForOwner(ctx context.Context, ownerID string) ([]*notificationPort.NotificationDTO, error)
	MarkRead(ctx context.Context, ownerID, notificationID string) error
}

// BridgeUseCase hands intents to an owner's connected extension.
type BridgeUseCase interface {
	Attach(ownerID string, ch bridge.Channel) *bridge.Client
	SchedulePosts(ctx context.Context, ownerID string, posts []bridge.ScheduledPost) bridge.ScheduleResult
	PostNow(ctx context.Context, ownerID string, p bridge.PostNow) bridge.PostResult
}

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Accounts      AccountUseCase
	Posts         PostUseCase
	Outcomes      OutcomeUseCase
	Notifications NotificationUseCase
	Bridge        BridgeUseCase
	Feed          feedPort.Subscriber // nil without Redis
	FeedHistory   feedPort.History    // nil without Redis
	Health        map[string]HealthCheck

	ExtensionKey  string
	SyncRateLimit float64
	EnableSentry  bool
	Logger        *zap.Logger
}

// SetupRoutes only wires routes; every use case is injected.
func SetupRoutes(d Deps) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery())
	if gin.Mode() != gin.TestMode {
		r.Use(gin.Logger())
	}
	if d.EnableSentry {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}

	schema, err := compileSyncSchema()
	if err != nil {
		return nil, err
	}

	ac := NewAccountController(d.Accounts)
	pc := NewPostController(d.Posts, d.Bridge)
	sc := NewSyncController(d.Outcomes, schema, d.Logger)
	nc := NewNotificationController(d.Notifications)
	fc := NewFeedController(d.Feed, d.FeedHistory, d.Logger)
	bc := NewBridgeController(d.Bridge, d.Logger)

	auth := middleware.JWTAuthMiddleware(d.Accounts)

	r.GET("/health", healthHandler(d.Health))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")

	// registration and login without the JWT middleware
	v1.POST("/accounts/register", ac.Register)
	v1.POST("/accounts/login", ac.Login)

	account := v1.Group("/account", auth)
	account.GET("", ac.Get)
	account.PUT("/linkedin", ac.ConnectLinkedIn)
	account.POST("/recount", ac.RecountPublished)

	posts := v1.Group("/posts", auth)
	posts.GET("", pc.List)
	posts.POST("", pc.Create)
	posts.POST("/draft", pc.Draft)
	posts.POST("/schedule", pc.Schedule)
	posts.GET("/:id", pc.Get)
	posts.PATCH("/:id", pc.Update)
	posts.DELETE("/:id", pc.Delete)
	posts.POST("/:id/retry", pc.Retry)
	posts.POST("/:id/publish", pc.Publish)

	syncGroup := v1.Group("/sync",
		middleware.RateLimitMiddleware(d.SyncRateLimit),
		middleware.ExtensionKeyMiddleware(d.ExtensionKey),
		middleware.OptionalJWTMiddleware(d.Accounts),
	)
	syncGroup.POST("/outcome", sc.ReportOutcome)

	v1.GET("/notifications", auth, nc.List)
	v1.POST("/notifications/:id/read", auth, nc.MarkRead)

	v1.GET("/feed", auth, fc.Stream)
	v1.GET("/bridge", auth, bc.Connect)

	return r, nil
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		result := gin.H{}
		for name, check := range checks {
			if err := check(c.Request.Context()); err != nil {
				status = http.StatusServiceUnavailable
				result[name] = err.Error()
				continue
			}
			result[name] = "ok"
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": result})
	}
}
