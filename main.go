package main

import (
	"context"
	"log"
	"strings"

	api "jobtrack-backend/cmd/api"
	appdomain "jobtrack-backend/internal/application/domain"
	appRepo "jobtrack-backend/internal/application/repository"
	appUsecase "jobtrack-backend/internal/application/usecase"
	authdomain "jobtrack-backend/internal/auth/domain"
	authRepo "jobtrack-backend/internal/auth/repository"
	authUsecase "jobtrack-backend/internal/auth/usecase"
	"jobtrack-backend/internal/notification"
	syncdomain "jobtrack-backend/internal/sync/domain"
	syncRepo "jobtrack-backend/internal/sync/repository"
	syncUsecase "jobtrack-backend/internal/sync/usecase"
	"jobtrack-backend/pkg/ai"
	"jobtrack-backend/pkg/cache"
	"jobtrack-backend/pkg/config"
	"jobtrack-backend/pkg/database"
	"jobtrack-backend/pkg/gmail"
	"jobtrack-backend/pkg/sse"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&authdomain.User{},
		&authdomain.OAuthState{},
		&appdomain.Application{},
		&appdomain.EmailLog{},
		&appdomain.Company{},
		&syncdomain.SyncState{},
		&syncdomain.ClassificationCache{},
		&syncdomain.ReprocessState{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	oauthStateRepo := authRepo.NewOAuthStateRepository(db)
	applicationRepo := appRepo.NewApplicationRepository(db)
	emailLogRepo := appRepo.NewEmailLogRepository(db)
	companyRepo := appRepo.NewCompanyRepository(db)
	syncStateRepo := syncRepo.NewSyncStateRepository(db)
	cacheRepo := syncRepo.NewClassificationCacheRepository(db)
	reprocessStateRepo := syncRepo.NewReprocessStateRepository(db)

	// Initialize SSE Manager
	sseManager := sse.NewManager()

	// Initialize Gmail service
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)
	messageSource := syncUsecase.NewGmailSource(gmailService, cfg)

	// Classification stack: Redis in front of the durable cache, model with
	// heuristic degradation behind it.
	redisCache := cache.NewClassification(cfg.RedisURL)
	heuristic := ai.NewHeuristicClassifier()
	var model ai.Classifier = heuristic
	if cfg.OpenAIAPIKey != "" {
		model = ai.NewOpenAIClassifier(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	} else {
		log.Printf("[WARN] OPENAI_API_KEY not set, classification runs on heuristics only")
	}
	classification := syncUsecase.NewClassificationService(cacheRepo, redisCache, model, heuristic, companyRepo)

	// Initialize use cases
	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepo, oauthStateRepo, cfg)
	applicationUsecaseInstance := appUsecase.NewApplicationUsecase(applicationRepo, companyRepo)
	analyticsUsecaseInstance := appUsecase.NewAnalyticsUsecase(applicationRepo)
	syncUsecaseInstance := syncUsecase.NewSyncUsecase(cfg, userRepo, messageSource, classification, applicationRepo, emailLogRepo, syncStateRepo, sseManager)
	reprocessUsecaseInstance := syncUsecase.NewReprocessUsecase(cfg, applicationRepo, classification, reprocessStateRepo, sseManager)

	// Initialize Notification Service (Pub/Sub), only when a project is
	// configured.
	if cfg.GoogleProjectID != "" {
		topicName := cfg.GooglePubSubTopic
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}

		notifService, err := notification.NewService(cfg.GoogleProjectID, topicName, cfg.GoogleCredentials, sseManager, userRepo, syncUsecaseInstance)
		if err != nil {
			log.Printf("[ERROR] Failed to initialize notification service: %v", err)
		} else {
			go notifService.Start(context.Background())
		}
	} else {
		log.Printf("[WARN] GOOGLE_PROJECT_ID not configured, push notifications disabled")
	}

	// Initialize HTTP handler
	handler := api.NewHandler(
		authUsecaseInstance,
		applicationUsecaseInstance,
		analyticsUsecaseInstance,
		syncUsecaseInstance,
		reprocessUsecaseInstance,
		classification,
		sseManager,
		cfg,
	)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
