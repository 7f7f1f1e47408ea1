// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for databases (always absolute)
	Port     int
	DevMode  bool // Bypass authentication with a fixed dev principal
	LogLevel string

	// Session / OAuth
	SessionSecret      string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Upstream API credentials
	CMCAPIKey       string // CoinMarketCap
	GoldAPIKey      string // metals quote API (USDXAU/USDTHB)
	GoldAPIEndpoint string

	// Off-site backups (optional - disabled when not configured)
	Backup *BackupConfig
}

// BackupConfig holds Cloudflare R2 backup settings.
// All fields must be set for backups to be enabled.
type BackupConfig struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	KeepCount       int // Number of remote backups to retain
}

// Enabled reports whether backup credentials are fully configured.
func (b *BackupConfig) Enabled() bool {
	return b != nil &&
		b.AccountID != "" &&
		b.AccessKeyID != "" &&
		b.SecretAccessKey != "" &&
		b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FOLIO_DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 3000),
		DevMode:  getEnvAsBool("DEVMODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		SessionSecret:      getEnv("SESSION_SECRET", ""),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:3000/auth/google/callback"),

		CMCAPIKey:       getEnv("CMC_API_KEY", ""),
		GoldAPIKey:      getEnv("GOLD_API_KEY", ""),
		GoldAPIEndpoint: getEnv("GOLD_API_ENDPOINT", "https://api.metalpriceapi.com/v1/live"),

		Backup: &BackupConfig{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("R2_BUCKET", ""),
			KeepCount:       getEnvAsInt("R2_BACKUP_KEEP", 14),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	// Google credentials are only required when auth is actually enforced.
	if !c.DevMode {
		if c.GoogleClientID == "" || c.GoogleClientSecret == "" {
			return fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required unless DEVMODE=true")
		}
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required unless DEVMODE=true")
		}
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
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
