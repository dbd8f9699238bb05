package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parkpal/internal/handler"
	"parkpal/internal/middleware"
	"parkpal/internal/notify"
	"parkpal/internal/service"
	"parkpal/internal/timer"
)

// Deps collects everything the HTTP surface needs. The composition root in
// cmd/server builds it once.
type Deps struct {
	AuthService    *service.AuthService
	SessionService *service.SessionService
	Timers         *timer.Manager
	Adapter        *notify.Adapter
	Inbox          *notify.Inbox
	Gate           *notify.Gate
	CORSOrigins    []string
}

func New(deps Deps) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(deps.CORSOrigins))

	authHandler := handler.NewAuthHandler(deps.AuthService)
	sessionHandler := handler.NewSessionHandler(deps.SessionService)
	timerHandler := handler.NewTimerHandler(deps.Timers)
	appHandler := handler.NewAppHandler(deps.Adapter, deps.Timers, deps.Inbox, deps.Gate)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		authed := api.Group("")
		authed.Use(middleware.Auth(deps.AuthService))
		{
			authed.POST("/sessions", sessionHandler.Create)
			authed.GET("/sessions", sessionHandler.List)
			authed.POST("/sessions/sync", sessionHandler.Sync)
			authed.GET("/sessions/:id", sessionHandler.Get)
			authed.PATCH("/sessions/:id", sessionHandler.Update)
			authed.DELETE("/sessions/:id", sessionHandler.Delete)
			authed.POST("/sessions/:id/extend", sessionHandler.Extend)
			authed.POST("/sessions/:id/stop", sessionHandler.StopTimer)

			authed.GET("/timers", timerHandler.List)
			authed.GET("/timers/:id", timerHandler.Get)

			authed.GET("/app/visibility", appHandler.GetVisibility)
			authed.POST("/app/visibility", appHandler.SetVisibility)

			authed.GET("/alerts/inbox", appHandler.Inbox)
			authed.GET("/alerts/permission", appHandler.Permission)
			authed.POST("/alerts/permission", appHandler.RequestPermission)
		}
	}

	return engine
}
