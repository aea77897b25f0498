// Package router wires the HTTP surface: middleware, health and metrics
// endpoints, and the versioned location API.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/washpoint/washpoint-backend/config"
	"github.com/washpoint/washpoint-backend/handlers"
	"github.com/washpoint/washpoint-backend/internal/live"
	"github.com/washpoint/washpoint-backend/middleware"
)

// Dependencies holds everything needed to set up routes.
type Dependencies struct {
	Config              *config.Config
	HealthHandler       *handlers.HealthHandler
	LocationHandler     *handlers.LocationHandler
	SubscriptionHandler *handlers.SubscriptionHandler
	LiveHandler         *live.Handler
	Logger              *zap.SugaredLogger
}

// SetupRouter configures and returns the main Gin engine with all routes defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))

	// Health and metrics (no auth)
	r.GET("/health", deps.HealthHandler.DetailedHealth)
	r.GET("/health/liveness", deps.HealthHandler.LivenessCheck)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		authMiddleware := middleware.AuthMiddleware(&deps.Config.Server)
		authRoutes := v1.Group("")
		authRoutes.Use(authMiddleware)
		{
			// Professional self-service: the caller always acts on their own record.
			locationRoutes := authRoutes.Group("/location")
			{
				locationRoutes.PUT("", deps.LocationHandler.UpdateLocation)
				locationRoutes.PUT("/status", deps.LocationHandler.UpdateStatus)
				locationRoutes.PUT("/tracking", deps.LocationHandler.SetTracking)
				locationRoutes.PUT("/settings", deps.LocationHandler.UpdateSettings)
			}

			// Reads and subscriptions against other professionals' records.
			locationsRoutes := authRoutes.Group("/locations")
			{
				locationsRoutes.GET("/nearby", deps.LocationHandler.FindNearby)
				locationsRoutes.GET("/:id", deps.LocationHandler.GetLocation)
				locationsRoutes.GET("/:id/history", deps.LocationHandler.GetHistory)
				locationsRoutes.POST("/:id/subscribe", deps.SubscriptionHandler.Subscribe)
				locationsRoutes.DELETE("/:id/subscribe", deps.SubscriptionHandler.Unsubscribe)
				locationsRoutes.GET("/:id/live", deps.LiveHandler.HandleLiveFeed)
			}
		}
	}

	return r
}
