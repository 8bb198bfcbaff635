package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	LogLevel          string
	JWTSecret         string
	JWTAccessExpiry   time.Duration
	AdminEmail        string
	AdminPasswordHash string

	// Document store
	StoreBackend        string // "memory", "firestore" or "mongo"
	GoogleProjectID     string
	FirebaseCredentials string
	MongoURI            string
	MongoDatabase       string

	// Trigger transport: "store" uses the backend's own change feed,
	// "pubsub" relays created-document events through Cloud Pub/Sub.
	TriggerSource string
	PubSubTopic   string

	// Delivery log database
	DatabaseDriver string // "postgres" or "sqlite"
	DatabaseURL    string

	PresenceGracePeriod       time.Duration
	PresenceHeartbeatInterval time.Duration

	TokenCacheTTL       time.Duration
	NotifyRatePerMinute int
	NotifyWorkers       int
	LocalTokensEnabled  bool
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		JWTSecret:         getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTAccessExpiry:   getDuration("JWT_ACCESS_EXPIRY", 12*time.Hour),
		AdminEmail:        getEnv("ADMIN_EMAIL", ""),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),

		StoreBackend:        getEnv("STORE_BACKEND", "memory"),
		GoogleProjectID:     getEnv("GOOGLE_PROJECT_ID", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),
		MongoURI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:       getEnv("MONGO_DATABASE", "admin_dashboard"),

		TriggerSource: getEnv("TRIGGER_SOURCE", "store"),
		PubSubTopic:   getEnv("PUBSUB_TOPIC", "document-created"),

		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:    getEnv("DATABASE_URL", "deliveries.db"),

		PresenceGracePeriod:       getDuration("PRESENCE_GRACE_PERIOD", 30*time.Second),
		PresenceHeartbeatInterval: getDuration("PRESENCE_HEARTBEAT_INTERVAL", 5*time.Minute),

		TokenCacheTTL:       getDuration("TOKEN_CACHE_TTL", 10*time.Minute),
		NotifyRatePerMinute: getInt("NOTIFY_RATE_PER_MINUTE", 120),
		NotifyWorkers:       getInt("NOTIFY_WORKERS", 3),
		LocalTokensEnabled:  getEnv("LOCAL_TOKENS", "false") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
