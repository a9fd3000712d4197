// Package config loads service configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"foodshare_backend/internal/platform/db"
)

// EnvKeyJWTSecret is the variable holding the HS256 signing secret.
const EnvKeyJWTSecret = "JWT_SECRET"

const (
	StoreSQL   = "sql"
	StoreMongo = "mongo"
)

// Config holds all service configuration.
type Config struct {
	AppEnv     string
	Port       string
	CORSOrigin string

	// StoreDriver selects the persistence engine: "sql" (GORM) or "mongo".
	StoreDriver   string
	DB            db.Config
	RunMigrations bool
	MongoURI      string
	MongoDB       string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret     string
	JWTExpiration time.Duration

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	NatsURL string

	AssistantEnabled bool
	GeminiAPIKey     string
	GeminiModel      string
	AITimeout        time.Duration
	VisionEnabled    bool

	AllowSelfClaim  bool
	ListingCacheTTL time.Duration
	ListingTTL      time.Duration

	RateLimit  int
	RateWindow time.Duration
}

// Load builds Config from the environment with defaults suitable for local development.
func Load() *Config {
	return &Config{
		AppEnv:     getEnv("APP_ENV", "production"),
		Port:       getEnv("PORT", "5000"),
		CORSOrigin: getEnv("CORS_ORIGIN", "*"),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreSQL)),
		DB: db.Config{
			Driver:         getEnv("DB_DRIVER", db.DriverPostgres),
			User:           os.Getenv("DB_USER"),
			Password:       os.Getenv("DB_PASSWORD"),
			Name:           getEnv("DB_NAME", "foodshare"),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			Path:           getEnv("DB_PATH", "foodshare.db"),
			ConnectTimeout: getEnvDuration("DB_CONNECT_TIMEOUT", 60*time.Second),
		},
		RunMigrations: getEnvBool("RUN_MIGRATIONS", true),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:       getEnv("MONGO_DB", "foodshare"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret:     os.Getenv(EnvKeyJWTSecret),
		JWTExpiration: getEnvDuration("JWT_EXPIRE", time.Hour),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "food-waste-images"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		NatsURL: os.Getenv("NATS_URL"),

		AssistantEnabled: getEnvBool("ASSISTANT_ENABLED", true),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AITimeout:        getEnvDuration("AI_TIMEOUT", 30*time.Second),
		VisionEnabled:    getEnvBool("VISION_ENABLED", false),

		AllowSelfClaim:  getEnvBool("LISTING_ALLOW_SELF_CLAIM", false),
		ListingCacheTTL: getEnvDuration("LISTING_CACHE_TTL", 5*time.Minute),
		ListingTTL:      getEnvDuration("LISTING_TTL", 72*time.Hour),

		RateLimit:  getEnvInt("RATE_LIMIT", 100),
		RateWindow: getEnvDuration("RATE_WINDOW", 15*time.Minute),
	}
}

// IsDevelopment reports whether verbose error details may be exposed.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

// getEnvDuration accepts Go durations ("90m") and the "1h"/"7d" style used by JWT_EXPIRE.
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if strings.HasSuffix(v, "d") {
		if days, err := strconv.Atoi(strings.TrimSuffix(v, "d")); err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
		return def
	}
	if parsed, err := time.ParseDuration(v); err == nil {
		return parsed
	}
	return def
}
