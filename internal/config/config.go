package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/septivank/meter-resolution-console/internal/anomaly"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	LogLevel    string
	LogFile     string
	API         APIConfig
	Session     SessionConfig
	Database    DatabaseConfig
	RabbitMQ    RabbitMQConfig
	Metrics     MetricsConfig
	Correction  CorrectionConfig
	Anomaly     AnomalyConfig
	FollowUp    FollowUpConfig
}

// APIConfig holds remote billing API settings
type APIConfig struct {
	BaseURL string
	// Timeout of zero leaves requests bounded only by their context.
	Timeout time.Duration
}

// SessionConfig holds the local session mirror settings
type SessionConfig struct {
	StorePath string
}

// DatabaseConfig holds the resolution journal connection. An empty URL disables the journal.
type DatabaseConfig struct {
	URL string
}

// RabbitMQConfig holds event fan-out settings. An empty URL disables publishing.
type RabbitMQConfig struct {
	URL            string
	EventsExchange string
	// WatchQueue names a shared watch queue. Empty gives each watcher its own.
	WatchQueue   string
	WatchBinding string
}

// MetricsConfig holds the optional prometheus listener
type MetricsConfig struct {
	Addr string
}

// CorrectionConfig holds the correction path policy
type CorrectionConfig struct {
	DecreasePolicy string
}

// AnomalyConfig holds deviation hint settings
type AnomalyConfig struct {
	SpikeThreshold float64
}

// FollowUpConfig is the template used to pre-populate follow-up inspection tasks
type FollowUpConfig struct {
	Title         string `toml:"title"`
	Description   string `toml:"description"`
	Priority      string `toml:"priority"`
	DueInDays     int    `toml:"due_in_days"`
	SurveyKeyword string `toml:"survey_keyword"`
}

type fileOverlay struct {
	FollowUp   *FollowUpConfig `toml:"followup"`
	Correction *struct {
		DecreasePolicy string `toml:"decrease_policy"`
	} `toml:"correction"`
}

// DefaultFollowUp returns the built-in follow-up task template
func DefaultFollowUp() FollowUpConfig {
	return FollowUpConfig{
		Title:         "Meter Inspection Required",
		Description:   "This connection was billed on average consumption because its latest reading was flagged as abnormal. Inspect the meter, confirm the actual reading and report any fault or tampering.",
		Priority:      "MEDIUM",
		DueInDays:     7,
		SurveyKeyword: "survey",
	}
}

// Load loads configuration from environment variables and the optional TOML overlay
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "meter-resolution-console"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     getEnv("LOG_FILE", ""),
		API: APIConfig{
			BaseURL: strings.TrimRight(getEnv("API_BASE_URL", ""), "/"),
			Timeout: time.Duration(getEnvAsInt("API_TIMEOUT_SECONDS", 0)) * time.Second,
		},
		Session: SessionConfig{
			StorePath: getEnv("SESSION_STORE_PATH", defaultSessionStorePath()),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:            getEnv("RABBITMQ_URL", ""),
			EventsExchange: getEnv("RABBITMQ_EVENTS_EXCHANGE", "water-billing.console.events.exchange"),
			WatchQueue:     getEnv("RABBITMQ_WATCH_QUEUE", ""),
			WatchBinding:   getEnv("RABBITMQ_WATCH_BINDING", "#"),
		},
		Metrics: MetricsConfig{
			Addr: getEnv("METRICS_ADDR", ""),
		},
		Correction: CorrectionConfig{
			DecreasePolicy: strings.ToLower(getEnv("CORRECTION_DECREASE_POLICY", anomaly.PolicyAllow)),
		},
		Anomaly: AnomalyConfig{
			SpikeThreshold: getEnvAsFloat("ANOMALY_SPIKE_THRESHOLD", 3.0),
		},
		FollowUp: DefaultFollowUp(),
	}

	if path := getEnv("CONSOLE_CONFIG_FILE", ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	// Validate required fields
	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is required but not set in environment variables")
	}
	if !anomaly.ValidPolicy(cfg.Correction.DecreasePolicy) {
		return nil, fmt.Errorf("CORRECTION_DECREASE_POLICY must be one of allow, warn, reject (got %q)", cfg.Correction.DecreasePolicy)
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var overlay fileOverlay
	if err := toml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if f := overlay.FollowUp; f != nil {
		if f.Title != "" {
			c.FollowUp.Title = f.Title
		}
		if f.Description != "" {
			c.FollowUp.Description = f.Description
		}
		if f.Priority != "" {
			c.FollowUp.Priority = f.Priority
		}
		if f.DueInDays > 0 {
			c.FollowUp.DueInDays = f.DueInDays
		}
		if f.SurveyKeyword != "" {
			c.FollowUp.SurveyKeyword = f.SurveyKeyword
		}
	}
	// The environment wins over the file for the policy.
	if overlay.Correction != nil && overlay.Correction.DecreasePolicy != "" && os.Getenv("CORRECTION_DECREASE_POLICY") == "" {
		c.Correction.DecreasePolicy = strings.ToLower(overlay.Correction.DecreasePolicy)
	}
	return nil
}

func defaultSessionStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".meter-console", "session.db")
	}
	return filepath.Join(home, ".meter-console", "session.db")
}

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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
