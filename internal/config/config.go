package config

import (
	"fmt"
	"os"

	"skontokit/internal/logger"
	"skontokit/internal/money"
)

type Config struct {
	// Skonto Configuration
	SkontoMaxFullAmount string
	SkontoCurrency      string

	// OpenAI Configuration
	OpenAIAPIKey string
	OpenAIModel  string

	// Google Cloud Configuration
	GoogleCloudProject         string
	GoogleCloudLocation        string
	DocumentAIProcessorID      string
	DocumentAIProcessorVersion string
	GoogleServiceAccountKey    string

	// Google Sheets Configuration
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		SkontoMaxFullAmount:        getEnv("SKONTO_MAX_FULL_AMOUNT", "99999.99"),
		SkontoCurrency:             getEnv("SKONTO_DEFAULT_CURRENCY", "EUR"),
		OpenAIAPIKey:               getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:                getEnv("OPENAI_MODEL", ""),
		GoogleCloudProject:         getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:        getEnv("GOOGLE_CLOUD_LOCATION", "eu"),
		DocumentAIProcessorID:      getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		DocumentAIProcessorVersion: getEnv("DOCUMENT_AI_PROCESSOR_VERSION", ""),
		GoogleServiceAccountKey:    getEnv("GOOGLE_SERVICE_ACCOUNT_KEY", ""),
		GoogleSheetURL:             getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:       getEnv("GOOGLE_SHEET_WORKSHEET", "Skonto_Decisions"),
		LogLevel:                   getEnv("LOG_LEVEL", "info"),
		LogFormat:                  getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:              getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:                  getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validate checks the values every command needs. Cloud credentials are
// checked lazily by the services that use them, so purely local commands
// (calculate, amount) work without any Google or OpenAI setup.
func (c *Config) validate() error {
	if _, err := money.Parse(c.SkontoMaxFullAmount, c.SkontoCurrency); err != nil {
		return fmt.Errorf("SKONTO_MAX_FULL_AMOUNT is not a valid amount: %w", err)
	}
	return nil
}

// MaxFullAmount returns the configured payable-amount ceiling as money.
func (c *Config) MaxFullAmount() (money.Money, error) {
	return money.Parse(c.SkontoMaxFullAmount, c.SkontoCurrency)
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
