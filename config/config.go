package config

import (
	"crypto/rand"
	"encoding/base64"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// MinSessionSecretLength is the minimum required length for session secret in production
	MinSessionSecretLength = 32
	// DefaultCourtTimezone is the location used for business-day arithmetic
	DefaultCourtTimezone = "America/Bogota"
)

type Config struct {
	ServerPort  string
	Environment string
	// Database
	DBDriver         string // sqlite, libsql, postgres
	DBPath           string
	DatabaseURL      string
	TursoDatabaseURL string
	TursoAuthToken   string
	// Sealed document storage
	UploadDir         string
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string
	// Email (Resend)
	ResendAPIKey  string
	EmailFrom     string
	EmailFromName string
	EmailTestMode bool // When true, emails are logged to console instead of sent
	// Court calendar
	CourtTimezone string
	CourtHolidays []time.Time
	// Jobs
	NotificationDrainInterval time.Duration
	DeadlineSweepCron         string
	// Other
	AllowedOrigins []string
	AppURL         string
	SessionSecret  string
}

func Load() *Config {
	// Load .env file (ignore error if not present - use system env vars)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	environment := getEnv("ENVIRONMENT", "development")
	sessionSecret := getEnv("SESSION_SECRET", "")

	// Validate session secret - this will fatal in production if invalid
	ValidateSessionSecret(sessionSecret, environment)

	// In development, generate a secure secret if none provided
	if sessionSecret == "" && environment != "production" {
		sessionSecret = GenerateSecureSecret()
		log.Println("[INFO] Generated temporary session secret for development. Set SESSION_SECRET env var for persistence.")
	}

	return &Config{
		ServerPort:                getEnv("SERVER_PORT", "8080"),
		Environment:               environment,
		DBDriver:                  strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBPath:                    getEnv("DB_PATH", "db/app.db"),
		DatabaseURL:               getEnv("DATABASE_URL", ""),
		TursoDatabaseURL:          getEnv("TURSO_DATABASE_URL", ""),
		TursoAuthToken:            getEnv("TURSO_AUTH_TOKEN", ""),
		UploadDir:                 getEnv("UPLOAD_DIR", "storage/sealed"),
		R2AccountID:               getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:             getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey:         getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:              getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:               getEnv("R2_PUBLIC_URL", ""),
		ResendAPIKey:              getEnv("RESEND_API_KEY", ""),
		EmailFrom:                 getEnv("EMAIL_FROM", "notificaciones@courtflow.local"),
		EmailFromName:             getEnv("EMAIL_FROM_NAME", "Court Flow"),
		EmailTestMode:             getEnvBool("EMAIL_TEST_MODE", true), // Default true for safety
		CourtTimezone:             getEnv("COURT_TIMEZONE", DefaultCourtTimezone),
		CourtHolidays:             parseDates(getEnv("COURT_HOLIDAYS", "")),
		NotificationDrainInterval: getEnvDuration("NOTIFICATION_DRAIN_INTERVAL", time.Minute),
		DeadlineSweepCron:         getEnv("DEADLINE_SWEEP_CRON", "0 1 * * *"),
		AllowedOrigins:            strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		AppURL:                    getEnv("APP_URL", "http://localhost:8080"),
		SessionSecret:             sessionSecret,
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Printf("Using default value for %s: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept common boolean representations
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("[WARNING] Invalid duration for %s (%q), using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

// parseDates parses a comma-separated list of YYYY-MM-DD dates.
// Malformed entries are logged and skipped.
func parseDates(raw string) []time.Time {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var dates []time.Time
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := time.Parse("2006-01-02", part)
		if err != nil {
			log.Printf("[WARNING] Ignoring invalid holiday %q: %v", part, err)
			continue
		}
		dates = append(dates, d)
	}
	return dates
}

// ValidateSessionSecret validates the session secret meets security requirements
// In production, it must be at least 32 bytes and not a known insecure default
func ValidateSessionSecret(secret string, environment string) error {
	// Known insecure defaults that must be rejected
	insecureDefaults := []string{
		"dev-secret-change-in-production",
		"change-me",
		"secret",
		"development",
		"test",
		"",
	}

	for _, insecure := range insecureDefaults {
		if strings.EqualFold(secret, insecure) {
			if environment == "production" {
				log.Fatal("[CRITICAL] SESSION_SECRET is set to an insecure default value. Generate a secure random secret with: openssl rand -base64 32")
			}
			log.Printf("[WARNING] SESSION_SECRET is set to an insecure default value. This is acceptable only in development.")
			return nil
		}
	}

	if environment == "production" {
		if len(secret) < MinSessionSecretLength {
			log.Fatalf("[CRITICAL] SESSION_SECRET must be at least %d characters in production (current: %d). Generate with: openssl rand -base64 32", MinSessionSecretLength, len(secret))
		}
	}

	return nil
}

// GenerateSecureSecret generates a cryptographically secure random secret
// This is used only for development when no secret is provided
func GenerateSecureSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		log.Printf("[WARNING] Failed to generate secure secret: %v", err)
		return ""
	}
	return base64.StdEncoding.EncodeToString(bytes)
}
