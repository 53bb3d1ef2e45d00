package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout"`

	// MongoDB configuration
	MongoURL     string        `json:"mongo_url"`
	MongoDB      string        `json:"mongo_db"`
	MongoTimeout time.Duration `json:"mongo_timeout"`

	// Redis configuration
	RedisURL    string        `json:"redis_url"`
	RedisPrefix string        `json:"redis_prefix"`
	CacheTTL    time.Duration `json:"cache_ttl"`

	// Scrape configuration
	UserAgent      string        `json:"user_agent"`
	FetchTimeout   time.Duration `json:"fetch_timeout"`
	WalkTimeout    time.Duration `json:"walk_timeout"`
	MaxRetries     int           `json:"max_retries"`
	RetryDelay     time.Duration `json:"retry_delay"`
	MaxConcurrency int           `json:"max_concurrency"`
	BrowserSettle  time.Duration `json:"browser_settle"`

	// Archive (S3-compatible raw page snapshots, disabled when endpoint empty)
	ArchiveEndpoint  string `json:"archive_endpoint"`
	ArchiveAccessKey string `json:"archive_access_key"`
	ArchiveSecretKey string `json:"archive_secret_key"`
	ArchiveBucket    string `json:"archive_bucket"`
	ArchiveRegion    string `json:"archive_region"`

	// Logging
	LogLevel string `json:"log_level"`

	// Security
	APIKey      string `json:"api_key"`
	AdminAPIKey string `json:"admin_api_key"`
}

// Load loads configuration from environment variables and validates it
func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		// Server configuration
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),

		// MongoDB configuration
		MongoURL:     getEnv("MONGO_URL", "mongodb://localhost:27017"),
		MongoDB:      getEnv("MONGO_DB", "zvistka"),
		MongoTimeout: getEnvAsDuration("MONGO_TIMEOUT", 10*time.Second),

		// Redis configuration
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisPrefix: getEnv("REDIS_PREFIX", "zvistka:"),
		CacheTTL:    getEnvAsDuration("CACHE_TTL", time.Hour),

		// Scrape configuration
		UserAgent: getEnv("USER_AGENT",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		FetchTimeout:   getEnvAsDuration("FETCH_TIMEOUT", 30*time.Second),
		WalkTimeout:    getEnvAsDuration("WALK_TIMEOUT", 3*time.Minute),
		MaxRetries:     getEnvAsInt("MAX_RETRIES", 2),
		RetryDelay:     getEnvAsDuration("RETRY_DELAY", time.Second),
		MaxConcurrency: getEnvAsInt("MAX_CONCURRENCY", 5),
		BrowserSettle:  getEnvAsDuration("BROWSER_SETTLE", 2*time.Second),

		// Archive
		ArchiveEndpoint:  getEnv("ARCHIVE_ENDPOINT", ""),
		ArchiveAccessKey: getEnv("ARCHIVE_ACCESS_KEY", ""),
		ArchiveSecretKey: getEnv("ARCHIVE_SECRET_ACCESS_KEY", ""),
		ArchiveBucket:    getEnv("ARCHIVE_BUCKET", "zvistka-raw"),
		ArchiveRegion:    getEnv("ARCHIVE_REGION", "auto"),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Security
		APIKey:      getEnv("API_KEY", ""),
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.MaxConcurrency < 1 {
		c.MaxConcurrency = 1
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return nil
}

// ArchiveEnabled reports whether raw page archiving is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveEndpoint != "" && c.ArchiveAccessKey != ""
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}
