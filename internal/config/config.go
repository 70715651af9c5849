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
	Server   ServerConfig
	Database DatabaseConfig
	Identity IdentityConfig
	Billing  BillingConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Logging  LoggingConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	PublicAppURL    string
	AllowedOrigins  []string
	Environment     string
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver          string
	URL             string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// For SQLite
	Path string
}

// IdentityConfig contains identity provider configuration
type IdentityConfig struct {
	// Mode is "remote" (ask the provider for the user behind each token)
	// or "jwt" (verify the access token locally).
	Mode       string
	URL        string
	ServiceKey string
	JWTSecret  string
	JWKSURL    string
	Timeout    time.Duration
}

// BillingConfig contains payment provider configuration
type BillingConfig struct {
	SecretKey     string
	WebhookSecret string
	PriceID       string
	// StatusSource is "stripe" (live lookup) or "local" (webhook mirror)
	StatusSource        string
	StatusCacheTTL      time.Duration
	LegacyCheckEnabled  bool
	ReconcileEnabled    bool
	ReconcileSchedule   string
	WebhookMaxBodyBytes int64
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// StorageConfig contains object storage configuration for order photos
type StorageConfig struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string
	Format     string // json or console
	OutputPath string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	publicURL := getEnv("PUBLIC_APP_URL", getEnv("NEXT_PUBLIC_APP_URL", "http://localhost:5173"))

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("PORT", getEnvAsInt("SERVER_PORT", 3000)),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			PublicAppURL:    publicURL,
			AllowedOrigins:  getEnvAsList("ALLOWED_ORIGINS", []string{publicURL}),
			Environment:     getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "postgres"),
			URL:             getEnv("DATABASE_URL", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "postgres"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			Path:            getEnv("DB_PATH", "./fieldservice.db"),
		},
		Identity: IdentityConfig{
			Mode:       getEnv("IDENTITY_MODE", "remote"),
			URL:        strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
			ServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
			JWTSecret:  getEnv("SUPABASE_JWT_SECRET", ""),
			JWKSURL:    getEnv("SUPABASE_JWKS_URL", ""),
			Timeout:    getEnvAsDuration("IDENTITY_TIMEOUT", 5*time.Second),
		},
		Billing: BillingConfig{
			SecretKey:           getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:       getEnv("STRIPE_WEBHOOK_SECRET", ""),
			PriceID:             getEnv("STRIPE_PRICE_ID", ""),
			StatusSource:        getEnv("BILLING_STATUS_SOURCE", "stripe"),
			StatusCacheTTL:      getEnvAsDuration("BILLING_STATUS_CACHE_TTL", time.Minute),
			LegacyCheckEnabled:  getEnvAsBool("BILLING_LEGACY_CHECK_ENABLED", false),
			ReconcileEnabled:    getEnvAsBool("BILLING_RECONCILE_ENABLED", true),
			ReconcileSchedule:   getEnv("BILLING_RECONCILE_SCHEDULE", "@every 6h"),
			WebhookMaxBodyBytes: int64(getEnvAsInt("BILLING_WEBHOOK_MAX_BODY_BYTES", 65536)),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Enabled:         getEnvAsBool("PHOTO_STORAGE_ENABLED", false),
			Bucket:          getEnv("PHOTO_BUCKET", ""),
			Region:          getEnv("PHOTO_REGION", "us-east-1"),
			Endpoint:        getEnv("PHOTO_ENDPOINT", ""),
			AccessKeyID:     getEnv("PHOTO_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("PHOTO_SECRET_ACCESS_KEY", ""),
			PublicBaseURL:   strings.TrimRight(getEnv("PHOTO_PUBLIC_BASE_URL", ""), "/"),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT", "stdout"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	switch c.Identity.Mode {
	case "remote":
		if c.Identity.URL == "" {
			return fmt.Errorf("SUPABASE_URL must be set when IDENTITY_MODE=remote")
		}
	case "jwt":
		if c.Identity.JWTSecret == "" && c.Identity.JWKSURL == "" {
			return fmt.Errorf("SUPABASE_JWT_SECRET or SUPABASE_JWKS_URL must be set when IDENTITY_MODE=jwt")
		}
	default:
		return fmt.Errorf("unsupported identity mode: %s", c.Identity.Mode)
	}

	if c.Billing.StatusSource != "stripe" && c.Billing.StatusSource != "local" {
		return fmt.Errorf("unsupported billing status source: %s", c.Billing.StatusSource)
	}

	if c.IsProduction() {
		if c.Billing.SecretKey == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY must be set in production")
		}
		if c.Billing.WebhookSecret == "" {
			return fmt.Errorf("STRIPE_WEBHOOK_SECRET must be set in production")
		}
		if c.Billing.PriceID == "" {
			return fmt.Errorf("STRIPE_PRICE_ID must be set in production")
		}
	}

	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("PHOTO_BUCKET must be set when photo storage is enabled")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

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
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
