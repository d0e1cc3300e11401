package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Sheets    SheetsConfig
	Webhook   WebhookConfig
	Scheduler SchedulerConfig
	Engine    EngineConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// SheetsConfig configures the optional spreadsheet export of forecast
// tables. Export is disabled when the spreadsheet ID is empty.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// WebhookConfig configures batch-completion notifications. Notifications
// are disabled when the URL is empty.
type WebhookConfig struct {
	URL       string
	AuthToken string
}

// SchedulerConfig holds the cron schedule for periodic re-forecasting and
// the shared configuration the refresh applies to every project.
type SchedulerConfig struct {
	Enabled      bool
	CronSchedule string
	ModelType    string
	FluidType    string
}

// EngineConfig carries the request defaults applied when a caller omits
// them. The engine itself takes everything explicitly; defaults live here,
// at the application boundary.
type EngineConfig struct {
	ForecastMonths       int
	EconomicLimit        float64
	MonteCarloIterations int
	BatchWorkers         int
	WellTimeout          time.Duration
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are acceptable when configuration comes from
		// the environment directly.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB", "petroflow"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("EXPORT_SPREADSHEET_ID"),
		},
		Webhook: WebhookConfig{
			URL:       os.Getenv("BATCH_WEBHOOK_URL"),
			AuthToken: os.Getenv("BATCH_WEBHOOK_TOKEN"),
		},
		Scheduler: SchedulerConfig{
			Enabled:      getenvBool("REFRESH_ENABLED", false),
			CronSchedule: getenvWithDefault("REFRESH_CRON", "0 2 * * *"),
			ModelType:    getenvWithDefault("REFRESH_MODEL_TYPE", "hyperbolic"),
			FluidType:    getenvWithDefault("REFRESH_FLUID_TYPE", "oil"),
		},
		Engine: EngineConfig{
			ForecastMonths:       getenvInt("DCA_FORECAST_MONTHS", 360),
			EconomicLimit:        getenvFloat("DCA_ECONOMIC_LIMIT", 5.0),
			MonteCarloIterations: getenvInt("DCA_MC_ITERATIONS", 5000),
			BatchWorkers:         getenvInt("DCA_BATCH_WORKERS", 4),
			WellTimeout:          time.Duration(getenvInt("DCA_WELL_TIMEOUT_SECONDS", 60)) * time.Second,
		},
	}

	if cfg.Engine.ForecastMonths <= 0 {
		return nil, fmt.Errorf("DCA_FORECAST_MONTHS must be positive")
	}
	if cfg.Engine.BatchWorkers <= 0 {
		return nil, fmt.Errorf("DCA_BATCH_WORKERS must be positive")
	}

	return cfg, nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
