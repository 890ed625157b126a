package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env
	AppEnv  string

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret string
	JwtTTL    time.Duration

	// Server
	ApiPort           string
	ServiceApiPort    string
	CORSAllowedOrigin string

	// Payments
	StripeSecretKey string
	PaymentCurrency string

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string
	EmailLogFile    string // LOG_EMAILS: also append every message to this file
	MockServices    bool   // MOCK_SERVICES: keep outgoing mail in Redis instead of SMTP

	// AWS S3
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	ImageMaxDimension  int
	ImageMaxSizeMB     int
}

// IsProduction reports whether the service runs with production logging.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		RunMode: runMode,
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists || value == "" {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	cfg.MongoURI, err = mongoURIFromEnv(getEnv)
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "bibliophile")
	cfg.JwtSecret, err = getRequiredEnv("ACCESS_TOKEN_SECRET")
	if err != nil {
		return nil, err
	}

	cfg.AppEnv = getEnv("APP_ENV", "development")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.ApiPort = getEnv("PORT", "5000")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.CORSAllowedOrigin = getEnv("CORS_ALLOWED_ORIGIN", "*")
	cfg.StripeSecretKey = getEnv("STRIPE_SECRET_KEY", "")
	cfg.PaymentCurrency = getEnv("PAYMENT_CURRENCY", "usd")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@bibliophile.example.com")
	cfg.EmailLogFile = getEnv("LOG_EMAILS", "")
	cfg.MockServices = getEnv("MOCK_SERVICES", "") == "true"
	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "us-east-1")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")

	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	jwtTTLHours, err := strconv.ParseInt(getEnv("ACCESS_TOKEN_TTL_HOURS", "24"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ACCESS_TOKEN_TTL_HOURS: %w", err)
	}
	if jwtTTLHours <= 0 {
		return nil, fmt.Errorf("invalid ACCESS_TOKEN_TTL_HOURS: must be positive, got %d", jwtTTLHours)
	}
	cfg.JwtTTL = time.Duration(jwtTTLHours) * time.Hour

	cfg.SmtpPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	cfg.ImageMaxDimension, err = strconv.Atoi(getEnv("IMAGE_MAX_DIMENSION", "1200"))
	if err != nil {
		return nil, fmt.Errorf("invalid IMAGE_MAX_DIMENSION: %w", err)
	}

	cfg.ImageMaxSizeMB, err = strconv.Atoi(getEnv("IMAGE_MAX_SIZE_MB", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid IMAGE_MAX_SIZE_MB: %w", err)
	}

	return cfg, nil
}

// mongoURIFromEnv prefers MONGO_URI and otherwise assembles an Atlas SRV URI
// from DB_USER, DB_PASSWORD and DB_CLUSTER.
func mongoURIFromEnv(getEnv func(key, defaultValue string) string) (string, error) {
	if uri := getEnv("MONGO_URI", ""); uri != "" {
		return uri, nil
	}
	user := getEnv("DB_USER", "")
	password := getEnv("DB_PASSWORD", "")
	cluster := getEnv("DB_CLUSTER", "")
	if user == "" || password == "" || cluster == "" {
		return "", fmt.Errorf("missing required environment variable: MONGO_URI (or DB_USER, DB_PASSWORD and DB_CLUSTER)")
	}
	return fmt.Sprintf("mongodb+srv://%s:%s@%s/?retryWrites=true&w=majority",
		url.QueryEscape(user), url.QueryEscape(password), cluster), nil
}
