package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	JWTSecret string
	JWTExpiry time.Duration

	DatabaseURL string
	RedisURL    string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	GoogleProjectID    string
	GooglePubSubTopic  string
	GoogleCredentials  string

	OpenAIAPIKey string
	OpenAIModel  string

	// Gmail sync tuning
	GmailSyncPageSize        int
	GmailFullSyncMaxPerQuery int
	GmailFullSyncDaysBack    int
	GmailHistoryMaxResults   int

	// Classification fan-out
	ClassifyWorkers int

	// Watchdog: a run exceeding this is forced to error state
	SyncMaxDuration time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	expiry := 168 * time.Hour // 7 days
	if exp := os.Getenv("JWT_EXPIRY"); exp != "" {
		if parsed, err := time.ParseDuration(exp); err == nil {
			expiry = parsed
		}
	}

	syncMax := 30 * time.Minute
	if d := os.Getenv("SYNC_MAX_DURATION"); d != "" {
		if parsed, err := time.ParseDuration(d); err == nil {
			syncMax = parsed
		}
	}

	return &Config{
		Port:      getEnv("PORT", "8080"),
		JWTSecret: getEnv("JWT_SECRET", "change-me-in-production"),
		JWTExpiry: expiry,

		DatabaseURL: getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=jobtrack port=5432 sslmode=disable"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:8080/api/auth/google/callback"),
		GoogleProjectID:    getEnv("GOOGLE_PROJECT_ID", ""),
		GooglePubSubTopic:  getEnv("GOOGLE_PUBSUB_TOPIC", "gmail-updates"),
		GoogleCredentials:  getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		GmailSyncPageSize:        getEnvInt("GMAIL_SYNC_PAGE_SIZE", 100),
		GmailFullSyncMaxPerQuery: getEnvInt("GMAIL_FULL_SYNC_MAX_PER_QUERY", 2000),
		GmailFullSyncDaysBack:    getEnvInt("GMAIL_FULL_SYNC_DAYS_BACK", 90),
		GmailHistoryMaxResults:   getEnvInt("GMAIL_HISTORY_MAX_RESULTS", 100),

		ClassifyWorkers: getEnvInt("CLASSIFY_WORKERS", 4),

		SyncMaxDuration: syncMax,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
