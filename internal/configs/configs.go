/*
Package configs is responsible for loading and parsing the application's configuration settings.

Values come from operating system environment variables, optionally seeded from a local
.env file: the running environment, port, CORS allowed origins, token signing secret,
bootstrap administrator, optional S3 avatar storage, and external avatar lookup endpoints.
*/
package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultJWTSecret is used when JWT_SECRET is unset. It is only safe for local development.
const DefaultJWTSecret = "fallback-secret-for-dev-only-change-in-production"

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string
	JWTSecret      string
	LoginRate      float64
	LoginBurst     int

	// Bootstrap Administrator
	AdminUsername string
	AdminEmail    string
	AdminPassword string

	// S3 Avatar Storage Settings (optional)
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PublicURL       string

	// External Avatar Lookup
	RobloxUsersURL      string
	RobloxThumbnailsURL string

	// Error Reporting
	SentryDSN string
}

// IsDevelopment reports whether the server runs with development defaults.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// UsesInsecureSecret reports whether tokens are signed with the built-in default secret.
func (c *AppConfig) UsesInsecureSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}

// StorageEnabled reports whether every S3 setting needed for avatar uploads is present.
func (c *AppConfig) StorageEnabled() bool {
	return c.S3BucketName != "" && c.S3Endpoint != "" &&
		c.S3AccessKeyID != "" && c.S3SecretAccessKey != "" && c.S3PublicURL != ""
}

// LoadConfig reads and parses the application configuration from environment variables.
// A .env file in the working directory, when present, is loaded first without overriding
// variables that are already set.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := &AppConfig{}

	// --- General Server Settings ---
	cfg.Environment = envOrDefault("ENVIRONMENT", "development")

	port, err := strconv.Atoi(envOrDefault("PORT", "3000"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	// --- Security Settings ---
	cfg.AllowedOrigins = []string{}
	for _, origin := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	// A missing secret never blocks startup; main reports it loudly outside development.
	cfg.JWTSecret = envOrDefault("JWT_SECRET", DefaultJWTSecret)

	cfg.LoginRate, err = strconv.ParseFloat(envOrDefault("LOGIN_RATE", "0.5"), 64)
	if err != nil || cfg.LoginRate <= 0 {
		return nil, fmt.Errorf("invalid LOGIN_RATE environment variable: %q", os.Getenv("LOGIN_RATE"))
	}

	cfg.LoginBurst, err = strconv.Atoi(envOrDefault("LOGIN_BURST", "10"))
	if err != nil || cfg.LoginBurst <= 0 {
		return nil, fmt.Errorf("invalid LOGIN_BURST environment variable: %q", os.Getenv("LOGIN_BURST"))
	}

	// --- Bootstrap Administrator ---
	cfg.AdminUsername = envOrDefault("ADMIN_USERNAME", "Admin")
	cfg.AdminEmail = envOrDefault("ADMIN_EMAIL", "admin@chatyni.local")
	cfg.AdminPassword = os.Getenv("ADMIN_PASSWORD")

	// --- S3 Avatar Storage Settings ---
	cfg.S3BucketName = os.Getenv("S3_BUCKET_NAME")
	cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.S3AccessKeyID = os.Getenv("S3_ACCESS_KEY_ID")
	cfg.S3SecretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")
	cfg.S3PublicURL = strings.TrimRight(os.Getenv("S3_PUBLIC_URL"), "/")

	// --- External Avatar Lookup ---
	cfg.RobloxUsersURL = envOrDefault("ROBLOX_USERS_URL", "https://users.roblox.com")
	cfg.RobloxThumbnailsURL = envOrDefault("ROBLOX_THUMBNAILS_URL", "https://thumbnails.roblox.com")

	// --- Error Reporting ---
	cfg.SentryDSN = os.Getenv("SENTRY_DSN")

	return cfg, nil
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}
