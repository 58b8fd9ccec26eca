package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port          string
	AppEnv        string // development, production, test
	LogLevel      string
	ClientURL     string
	ShutdownGrace time.Duration
	RateLimitMax  int
	RateLimitWin  time.Duration
	UploadLimitMB int

	// Database configuration
	DBType            string // mysql, mariadb, postgres, sqlite, sqlite-nocgo, sqlserver
	DBHost            string
	DBPort            string
	DBDatabase        string
	DBUser            string
	DBPassword        string
	DBConnectionLimit int

	// Object storage configuration
	StorageDriver    string // s3, memory
	StorageBucket    string
	StorageHost      string
	StorageRegion    string
	StorageEndpoint  string
	StoragePathStyle bool
	StorageAccessKey string
	StorageSecretKey string

	// Token configuration
	JWTSecret       string
	UserTokenExpiry time.Duration

	// Notification retention
	MaxNotificationsBeforeCleanup int
	NotificationRetentionDays     int

	// Mail configuration
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPassword  string
	SendEmailFrom string
}

// Load loads configuration from environment variables. When ENV_FILE names a file it is
// read first; variables already present in the environment win.
func Load() (*Config, error) {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	appEnv := getEnv("APP_ENV", "development")
	defaultRateLimit := 1000
	if appEnv == "production" {
		defaultRateLimit = 100
	}

	cfg := &Config{
		Port:          getEnv("PORT", "3000"),
		AppEnv:        appEnv,
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		ClientURL:     getEnv("CLIENT_URL", "http://localhost:5173"),
		ShutdownGrace: getEnvAsDuration("SHUTDOWN_GRACE", 10*time.Second),
		RateLimitMax:  getEnvAsInt("RATE_LIMIT_MAX", defaultRateLimit),
		RateLimitWin:  getEnvAsDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		UploadLimitMB: getEnvAsInt("UPLOAD_LIMIT_MB", 100),

		DBType:            getEnv("DB_TYPE", "mysql"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "3306"),
		DBDatabase:        getEnv("DB_DATABASE", ""),
		DBUser:            getEnv("DB_USER", ""),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBConnectionLimit: getEnvAsInt("DB_CONNECTION_LIMIT", 5),

		StorageDriver:    getEnv("STORAGE_DRIVER", "s3"),
		StorageBucket:    getEnv("STORAGE_BUCKET", ""),
		StorageHost:      getEnv("STORAGE_HOST", "storage.googleapis.com"),
		StorageRegion:    getEnv("STORAGE_REGION", "auto"),
		StorageEndpoint:  getEnv("STORAGE_ENDPOINT", ""),
		StoragePathStyle: getEnvAsBool("STORAGE_PATH_STYLE", false),
		StorageAccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
		StorageSecretKey: getEnv("STORAGE_SECRET_KEY", ""),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		UserTokenExpiry: getEnvAsDuration("USER_TOKEN_EXPIRY", 24*time.Hour),

		MaxNotificationsBeforeCleanup: getEnvAsInt("MAX_NOTIFICATIONS_BEFORE_CLEANUP", 1000),
		NotificationRetentionDays:     getEnvAsInt("NOTIFICATION_RETENTION_DAYS", 30),

		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:      getEnv("SMTP_USER", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SendEmailFrom: getEnv("SEND_EMAIL_FROM", "no-reply@localhost"),
	}

	// Validate required fields
	if cfg.DBDatabase == "" {
		return nil, fmt.Errorf("DB_DATABASE is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.StorageDriver == "s3" && cfg.StorageBucket == "" {
		return nil, fmt.Errorf("STORAGE_BUCKET is required")
	}
	if cfg.MaxNotificationsBeforeCleanup <= 0 {
		return nil, fmt.Errorf("MAX_NOTIFICATIONS_BEFORE_CLEANUP must be positive")
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// RetentionWindow is the age after which notifications become eligible for the sweep.
func (c *Config) RetentionWindow() time.Duration {
	return time.Duration(c.NotificationRetentionDays) * 24 * time.Hour
}

// UploadLimitBytes is the largest accepted request body and file.
func (c *Config) UploadLimitBytes() int {
	return c.UploadLimitMB * 1024 * 1024
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("15m") and the day suffix used by token
// expiries ("1d").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}
	if days, ok := strings.CutSuffix(valueStr, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return defaultValue
		}
		return time.Duration(n) * 24 * time.Hour
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
