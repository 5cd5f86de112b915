package api

import (
	"net/http"

	appDelivery "jobtrack-backend/internal/application/delivery"
	"jobtrack-backend/internal/auth/delivery"
	authUsecasePkg "jobtrack-backend/internal/auth/usecase"
	syncDelivery "jobtrack-backend/internal/sync/delivery"
	"jobtrack-backend/pkg/sse"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, authUsecase authUsecasePkg.AuthUsecase, appHandler *appDelivery.ApplicationHandler, syncHandler *syncDelivery.SyncHandler, sseManager *sse.Manager) {
	authHandler := delivery.NewAuthHandler(authUsecase)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// SSE endpoint for sync and reprocess progress
		api.GET("/events", delivery.AuthMiddleware(authUsecase), syncHandler.SyncStream)

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", delivery.AuthMiddleware(authUsecase), authHandler.Me)
			auth.POST("/change-password", delivery.AuthMiddleware(authUsecase), authHandler.ChangePassword)
			auth.GET("/google", delivery.AuthMiddleware(authUsecase), authHandler.GmailConnect)
			auth.POST("/google/connect", delivery.AuthMiddleware(authUsecase), authHandler.GmailConnect)
			auth.GET("/google/callback", authHandler.GmailCallback)
			auth.GET("/google/status", delivery.AuthMiddleware(authUsecase), authHandler.GmailStatus)
			auth.DELETE("/google", delivery.AuthMiddleware(authUsecase), authHandler.GmailDisconnect)
		}

		// Sync routes (protected)
		sync := api.Group("")
		sync.Use(delivery.AuthMiddleware(authUsecase))
		{
			sync.POST("/sync-emails", syncHandler.StartSync)
			sync.GET("/sync-status", syncHandler.SyncStatus)
			sync.GET("/sync-stream", syncHandler.SyncStream)
			sync.POST("/watch", syncHandler.RegisterWatch)
			// Alias kept for older clients
			sync.GET("/stats", appHandler.GetStats)
		}

		// Reprocess routes (protected)
		reprocess := api.Group("/reprocess")
		reprocess.Use(delivery.AuthMiddleware(authUsecase))
		{
			reprocess.POST("/start", syncHandler.StartReprocess)
			reprocess.GET("/status", syncHandler.ReprocessStatus)
		}

		// Classification cache routes (protected)
		cache := api.Group("/cache")
		cache.Use(delivery.AuthMiddleware(authUsecase))
		{
			cache.GET("/stats", syncHandler.CacheStats)
			cache.POST("/reset", syncHandler.ResetCache)
		}

		// Application routes (protected)
		apps := api.Group("/applications")
		apps.Use(delivery.AuthMiddleware(authUsecase))
		{
			apps.GET("", appHandler.ListApplications)
			apps.GET("/stats", appHandler.GetStats)
			apps.GET("/:id", appHandler.GetApplication)
			apps.PUT("/:id", appHandler.UpdateApplication)
			apps.PATCH("/:id", appHandler.UpdateApplication)
			apps.DELETE("/:id", appHandler.DeleteApplication)
			apps.POST("/:id/schedule", appHandler.ScheduleApplication)
			apps.POST("/:id/respond", appHandler.RespondApplication)
			apps.POST("/:id/reprocess", syncHandler.ReprocessOne)
		}

		// Company routes (protected)
		companies := api.Group("/companies")
		companies.Use(delivery.AuthMiddleware(authUsecase))
		{
			companies.GET("", appHandler.ListCompanies)
			companies.POST("", appHandler.SaveCompany)
		}

		// Analytics routes (protected)
		analytics := api.Group("/analytics")
		analytics.Use(delivery.AuthMiddleware(authUsecase))
		{
			analytics.GET("/funnel", appHandler.GetFunnel)
			analytics.GET("/response-rate", appHandler.GetResponseRate)
			analytics.GET("/time-to-event", appHandler.GetTimeToEvent)
			analytics.GET("/prediction", appHandler.GetPrediction)
		}
	}
}
