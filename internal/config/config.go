// Package config provides configuration utilities for the application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/finsift/finsift/internal/common"
	"github.com/spf13/viper"
)

// AIConfig holds the AI extraction tier settings.
type AIConfig struct {
	Provider      string
	Model         string
	APIKey        string
	MinInterval   time.Duration
	Temperature   float64
	MaxTokens     int
	MinConfidence int
	RetryAttempts int
	RetryBase     time.Duration
	RetryMax      time.Duration
}

// BreakerConfig holds the circuit breaker thresholds.
type BreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
}

// DedupConfig holds the duplicate detector tolerance windows.
type DedupConfig struct {
	AmountTolerance float64
	DateWindowDays  int
}

// QueueConfig holds the attachment fetch queue settings.
type QueueConfig struct {
	MaxConcurrent   int
	MaxRetries      int
	BackoffSchedule []time.Duration
	PollInterval    time.Duration
}

// Config is the full application configuration, loaded once at startup.
type Config struct {
	DatabasePath      string
	OptimizationLevel string
	RuleConfidence    int
	OCRLanguages      []string
	AI                AIConfig
	Breaker           BreakerConfig
	Dedup             DedupConfig
	Queue             QueueConfig
}

// setDefaults registers every tunable with its default value. The pipeline's
// thresholds are deliberate defaults, not derived values; changing any of
// them changes observable behavior.
func setDefaults() {
	viper.SetDefault("database.path", defaultDatabasePath())

	viper.SetDefault("ai.provider", "openai")
	viper.SetDefault("ai.model", "")
	viper.SetDefault("ai.min_interval", 2*time.Second)
	viper.SetDefault("ai.temperature", 0.1)
	viper.SetDefault("ai.max_tokens", 2000)
	viper.SetDefault("ai.min_confidence", 70)
	viper.SetDefault("ai.retry_attempts", 3)
	viper.SetDefault("ai.retry_base_delay", 5*time.Second)
	viper.SetDefault("ai.retry_max_delay", 30*time.Second)

	viper.SetDefault("rules.confidence", 62)

	viper.SetDefault("breaker.failure_threshold", 5)
	viper.SetDefault("breaker.success_threshold", 2)
	viper.SetDefault("breaker.open_timeout", 60*time.Second)

	viper.SetDefault("dedup.amount_tolerance", 0.02)
	viper.SetDefault("dedup.date_window_days", 3)

	viper.SetDefault("threads.optimization_level", "medium")

	viper.SetDefault("queue.max_concurrent", 2)
	viper.SetDefault("queue.max_retries", 3)
	viper.SetDefault("queue.backoff_schedule", []string{"30s", "120s", "300s"})
	viper.SetDefault("queue.poll_interval", 500*time.Millisecond)

	viper.SetDefault("ocr.languages", []string{"eng", "spa"})
}

// Load builds the application configuration from viper, which the CLI layer
// has already pointed at the config file and FINSIFT_* environment variables.
func Load() (*Config, error) {
	setDefaults()

	cfg := &Config{
		DatabasePath:      ExpandPath(viper.GetString("database.path")),
		OptimizationLevel: viper.GetString("threads.optimization_level"),
		RuleConfidence:    viper.GetInt("rules.confidence"),
		OCRLanguages:      viper.GetStringSlice("ocr.languages"),
		AI: AIConfig{
			Provider:      viper.GetString("ai.provider"),
			Model:         viper.GetString("ai.model"),
			APIKey:        viper.GetString("ai.api_key"),
			MinInterval:   viper.GetDuration("ai.min_interval"),
			Temperature:   viper.GetFloat64("ai.temperature"),
			MaxTokens:     viper.GetInt("ai.max_tokens"),
			MinConfidence: viper.GetInt("ai.min_confidence"),
			RetryAttempts: viper.GetInt("ai.retry_attempts"),
			RetryBase:     viper.GetDuration("ai.retry_base_delay"),
			RetryMax:      viper.GetDuration("ai.retry_max_delay"),
		},
		Breaker: BreakerConfig{
			FailureThreshold: viper.GetInt("breaker.failure_threshold"),
			SuccessThreshold: viper.GetInt("breaker.success_threshold"),
			OpenTimeout:      viper.GetDuration("breaker.open_timeout"),
		},
		Dedup: DedupConfig{
			AmountTolerance: viper.GetFloat64("dedup.amount_tolerance"),
			DateWindowDays:  viper.GetInt("dedup.date_window_days"),
		},
		Queue: QueueConfig{
			MaxConcurrent:   viper.GetInt("queue.max_concurrent"),
			MaxRetries:      viper.GetInt("queue.max_retries"),
			BackoffSchedule: backoffSchedule(),
			PollInterval:    viper.GetDuration("queue.poll_interval"),
		},
	}

	// The API key may also come from the provider's conventional variable.
	if cfg.AI.APIKey == "" {
		switch cfg.AI.Provider {
		case "anthropic":
			cfg.AI.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		default:
			cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func backoffSchedule() []time.Duration {
	raw := viper.GetStringSlice("queue.backoff_schedule")
	if len(raw) == 0 {
		return nil
	}
	schedule := make([]time.Duration, 0, len(raw))
	for _, entry := range raw {
		d, err := time.ParseDuration(entry)
		if err != nil {
			return nil
		}
		schedule = append(schedule, d)
	}
	return schedule
}

// Validate checks the configuration for values that would break the pipeline.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("%w: database path cannot be empty", common.ErrInvalidConfig)
	}
	switch c.OptimizationLevel {
	case "high", "medium", "low":
	default:
		return fmt.Errorf("%w: optimization level %q (want high, medium or low)", common.ErrInvalidConfig, c.OptimizationLevel)
	}
	if c.AI.MinConfidence < 0 || c.AI.MinConfidence > 100 {
		return fmt.Errorf("%w: ai.min_confidence must be between 0 and 100", common.ErrInvalidConfig)
	}
	if c.RuleConfidence < 0 || c.RuleConfidence > 100 {
		return fmt.Errorf("%w: rules.confidence must be between 0 and 100", common.ErrInvalidConfig)
	}
	if c.Dedup.AmountTolerance <= 0 || c.Dedup.AmountTolerance >= 1 {
		return fmt.Errorf("%w: dedup.amount_tolerance must be a fraction between 0 and 1", common.ErrInvalidConfig)
	}
	if c.Dedup.DateWindowDays <= 0 {
		return fmt.Errorf("%w: dedup.date_window_days must be positive", common.ErrInvalidConfig)
	}
	if c.Queue.MaxConcurrent <= 0 {
		return fmt.Errorf("%w: queue.max_concurrent must be positive", common.ErrInvalidConfig)
	}
	return nil
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "finsift.db"
	}
	return filepath.Join(home, ".local", "share", "finsift", "finsift.db")
}
