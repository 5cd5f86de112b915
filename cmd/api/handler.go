package api

import (
	"log"

	appDelivery "jobtrack-backend/internal/application/delivery"
	appUsecasePkg "jobtrack-backend/internal/application/usecase"
	authUsecasePkg "jobtrack-backend/internal/auth/usecase"
	syncDelivery "jobtrack-backend/internal/sync/delivery"
	syncUsecasePkg "jobtrack-backend/internal/sync/usecase"
	"jobtrack-backend/pkg/config"
	"jobtrack-backend/pkg/sse"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase authUsecasePkg.AuthUsecase
	appHandler  *appDelivery.ApplicationHandler
	syncHandler *syncDelivery.SyncHandler
	sseManager  *sse.Manager
	config      *config.Config
}

func NewHandler(
	authUc authUsecasePkg.AuthUsecase,
	appUc appUsecasePkg.ApplicationUsecase,
	analyticsUc appUsecasePkg.AnalyticsUsecase,
	syncUc syncUsecasePkg.SyncUsecase,
	reprocessUc syncUsecasePkg.ReprocessUsecase,
	classification *syncUsecasePkg.ClassificationService,
	sseManager *sse.Manager,
	cfg *config.Config,
) *Handler {
	return &Handler{
		authUsecase: authUc,
		appHandler:  appDelivery.NewApplicationHandler(appUc, analyticsUc),
		syncHandler: syncDelivery.NewSyncHandler(syncUc, reprocessUc, classification, sseManager),
		sseManager:  sseManager,
		config:      cfg,
	}
}

func (h *Handler) Start(addr string) error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.authUsecase, h.appHandler, h.syncHandler, h.sseManager)

	log.Printf("[API] Listening on %s", addr)
	return r.Run(addr)
}
