package app

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// ErrMissingSecret is returned when no token signing secret is configured.
// The service refuses to start rather than invent one, since a restarted
// process with a fresh secret would silently invalidate every issued token.
var ErrMissingSecret = errors.New("app: TOKEN_SECRET is required (at least 32 bytes)")

type Config struct {
	TokenSecret string // Required: HS256 signing secret, at least 32 bytes

	Issuer     string        // Optional: issuer claim for tokens (default: cardfile)
	AccessTTL  time.Duration // Optional: access-token lifetime (default: 15m)
	RefreshTTL time.Duration // Optional: refresh-token lifetime (default: 168h)
	ConfirmTTL time.Duration // Optional: confirmation-token lifetime (default: 168h)

	BaseURL      string // Optional: public origin used in confirmation links (default: http://localhost:<port>)
	DatabaseFile string // Optional: path to SQLite database file (default: ./cardfile.db)
	PepperFile   string // Optional: path to file containing pepper for password hashing (default: ./pepper)
	AvatarDir    string // Optional: directory for uploaded avatars (default: ./avatars)

	SMTPHost     string // Optional: SMTP relay host; empty means log-only mail
	SMTPPort     int    // Optional: SMTP relay port (default: 587)
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string // Optional: From address (default: no-reply@cardfile.local)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	cfg := Config{
		TokenSecret: os.Getenv("TOKEN_SECRET"),

		Issuer:     getEnvOrDefault("TOKEN_ISSUER", "cardfile"),
		AccessTTL:  getEnvDurationOrDefault("ACCESS_TOKEN_TTL", 0),
		RefreshTTL: getEnvDurationOrDefault("REFRESH_TOKEN_TTL", 0),
		ConfirmTTL: getEnvDurationOrDefault("CONFIRM_TOKEN_TTL", 0),

		BaseURL:      os.Getenv("BASE_URL"),
		DatabaseFile: getEnvOrDefault("DATABASE_FILE", "cardfile.db"),
		PepperFile:   getEnvOrDefault("PEPPER_FILE", "pepper"),
		AvatarDir:    getEnvOrDefault("AVATAR_DIR", "avatars"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     getEnvOrDefault("SMTP_FROM", "no-reply@cardfile.local"),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
