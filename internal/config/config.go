package config

import (
	"os"
	"strconv"

	"cohortprep/domain/series"
	"cohortprep/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Admin    AdminConfig
	Ingest   IngestConfig
	Pipeline PipelineConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// AdminConfig holds the health/debug router settings
type AdminConfig struct {
	Port    string
	Enabled bool
}

// IngestConfig holds ingestion defaults
type IngestConfig struct {
	// DataDir is where uploaded files and exported panels are written
	DataDir string
	// Resolution is the default time grid resolution
	Resolution series.Resolution
	// MaxGapRatio flags variables with more missing data than this
	MaxGapRatio float64
	// MaxUploadBytes caps multipart upload size
	MaxUploadBytes int64
}

// PipelineConfig holds pipeline execution settings
type PipelineConfig struct {
	// Workers bounds concurrent per-variable profiling
	Workers int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL:     os.Getenv("DATABASE_URL"),
			SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
		},
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "debug"),
		},
		Admin: AdminConfig{
			Port:    getEnvOrDefault("ADMIN_PORT", "6060"),
			Enabled: getEnvBoolOrDefault("ADMIN_ENABLED", true),
		},
		Ingest: IngestConfig{
			DataDir:        getEnvOrDefault("DATA_DIR", "./data"),
			Resolution:     series.Resolution(getEnvOrDefault("GRID_RESOLUTION", string(series.ResolutionDay))),
			MaxGapRatio:    getEnvFloatOrDefault("MAX_GAP_RATIO", 0.5),
			MaxUploadBytes: int64(getEnvIntOrDefault("MAX_UPLOAD_MB", 64)) << 20,
		},
		Pipeline: PipelineConfig{
			Workers: getEnvIntOrDefault("PIPELINE_WORKERS", 4),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
	if !config.Ingest.Resolution.IsValid() {
		return errors.ConfigInvalid("GRID_RESOLUTION must be hour, day, week or month")
	}
	if config.Ingest.MaxGapRatio < 0 || config.Ingest.MaxGapRatio > 1 {
		return errors.ConfigInvalid("MAX_GAP_RATIO must be in [0, 1]")
	}
	if config.Pipeline.Workers <= 0 {
		return errors.ConfigInvalid("PIPELINE_WORKERS must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
