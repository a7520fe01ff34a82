package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"scooter/internal/handler"
	"scooter/internal/middleware"
	internalRedis "scooter/internal/redis"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RentalHandler  *handler.RentalHandler
	PageHandler    *handler.PageHandler
	SessionHandler *handler.SessionHandler
	RedisClient    *redis.Client
	LockStore      internalRedis.LockStoreInterface
	NewRelicApp    *newrelic.Application
	AllowedOrigins []string
	SecureCookies  bool
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware(deps.AllowedOrigins))

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes.
	v1 := router.Group("/v1")
	v1.Use(middleware.BrowserSessionMiddleware(deps.SecureCookies))
	{
		// Scooter routes.
		scooters := v1.Group("/scooters/:scooter_id")
		{
			scooters.GET("", deps.RentalHandler.GetScooter)
			scooters.GET("/active", deps.RentalHandler.GetActive)
			scooters.GET("/inactive", deps.RentalHandler.GetInactive)

			submit := scooters.Group("",
				middleware.IdempotencyMiddleware(deps.RedisClient),
				middleware.SubmitGuardMiddleware(deps.LockStore),
			)
			submit.POST("/unlock", deps.RentalHandler.Unlock)
			submit.POST("/lock", deps.RentalHandler.Lock)
		}

		// Page routes.
		v1.GET("/abort/:reason/:rental_id/:user_id", deps.PageHandler.GetAbort)
		v1.GET("/errors/:error_type", deps.PageHandler.GetError)

		// Session routes.
		session := v1.Group("/session")
		{
			session.GET("/events", deps.SessionHandler.Events)
			session.GET("/history", deps.SessionHandler.History)
		}
	}

	return router
}
