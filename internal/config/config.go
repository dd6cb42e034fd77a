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
	DataDir            string // Base directory for databases, token cache and config files (always absolute)
	Port               int
	DevMode            bool
	LogLevel           string
	LogPretty          bool
	ConsumerKey        string // E*TRADE OAuth consumer key
	ConsumerSecret     string // E*TRADE OAuth consumer secret
	Sandbox            bool   // Use the E*TRADE sandbox environment
	RequestDelayMs     int    // Minimum delay between broker API requests
	AnalysisConfigPath string // Path to the analysis YAML (buckets, exposure mappings)
	PortfolioSchedule  string // Cron schedule for the portfolio sync job
	TransactionsSched  string // Cron schedule for the transaction sync job
	BackfillDays       int    // Days of history pulled into an empty transaction ledger
	BackupSchedule     string // Cron schedule for the S3 backup job
	BackupS3Bucket     string // Empty disables backups
	BackupS3Prefix     string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Resolve the data directory to an absolute path and make sure it exists.
	dataDir := getEnv("ETRADE_DATA_DIR", "")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".etrade-report")
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:            absDataDir,
		Port:               getEnvAsInt("PORT", 8080),
		DevMode:            getEnvAsBool("DEV_MODE", false),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogPretty:          getEnvAsBool("LOG_PRETTY", false),
		ConsumerKey:        getEnv("ETRADE_CONSUMER_KEY", ""),
		ConsumerSecret:     getEnv("ETRADE_CONSUMER_SECRET", ""),
		Sandbox:            getEnvAsBool("ETRADE_SANDBOX", false),
		RequestDelayMs:     getEnvAsInt("ETRADE_REQUEST_DELAY_MS", 500),
		AnalysisConfigPath: getEnv("ANALYSIS_CONFIG", filepath.Join(absDataDir, "analysis.yaml")),
		PortfolioSchedule:  getEnv("PORTFOLIO_SYNC_SCHEDULE", "@every 15m"),
		TransactionsSched:  getEnv("TRANSACTIONS_SYNC_SCHEDULE", "@every 1h"),
		BackfillDays:       getEnvAsInt("TRANSACTIONS_BACKFILL_DAYS", 90),
		BackupSchedule:     getEnv("BACKUP_SCHEDULE", "0 30 2 * * *"),
		BackupS3Bucket:     getEnv("BACKUP_S3_BUCKET", ""),
		BackupS3Prefix:     getEnv("BACKUP_S3_PREFIX", "etrade-report"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.ConsumerKey == "" || c.ConsumerSecret == "" {
		return fmt.Errorf("ETRADE_CONSUMER_KEY and ETRADE_CONSUMER_SECRET are required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
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
