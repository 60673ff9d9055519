package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sst-backend/internal/documents"
	"sst-backend/internal/notifications"
	"sst-backend/internal/requests"
	"sst-backend/internal/services/health"
	"sst-backend/internal/shared/config"
	"sst-backend/internal/shared/metrics"
	"sst-backend/internal/shared/server/middleware"
	"sst-backend/internal/shared/server/respond"
	"sst-backend/internal/users"
)

// RouterDeps carries the feature handlers mounted under /api/v1. Nil handlers
// are skipped.
type RouterDeps struct {
	Config              config.Config
	Health              *health.Service
	DocumentHandler     *documents.Handler
	RequestHandler      *requests.Handler
	NotificationHandler *notifications.Handler
	UserHandler         *users.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		status := map[string]bool{"ok": true}
		if deps.Health != nil {
			status = deps.Health.Status(c.Request.Context())
		}
		code := http.StatusOK
		if !status["ok"] {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})

	authed := api.Group("", middleware.Auth())
	registerMeRoutes(authed, deps.Config.ApproverRole)
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(authed)
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(authed)
	}
	if deps.RequestHandler != nil {
		deps.RequestHandler.RegisterRoutes(authed)
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.RegisterRoutes(authed)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
