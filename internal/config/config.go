// Package config defines process configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) initializer to build a Config with defaults.
// - Load layers .env, an optional YAML file and EDUSYNTH_* env vars on top.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Supported collaborator providers.
const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderGoogleAI = "googleai"
)

// Retry backoff kinds.
const (
	BackoffNone        = "none"
	BackoffConstant    = "constant"
	BackoffExponential = "exponential"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat is auto (tint on a terminal), text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=auto text json"`

	// Provider selects the collaborator backend.
	Provider string `koanf:"provider" validate:"oneof=openai deepseek googleai"`

	// Model is the generation model; empty picks the provider default.
	Model string `koanf:"model"`

	// JudgeModel is used on the judge path; empty falls back to Model.
	JudgeModel string `koanf:"judge_model"`

	APIKey  string `koanf:"api_key"`
	APIBase string `koanf:"api_base" validate:"omitempty,url"`

	Temperature      float64 `koanf:"temperature" validate:"gte=0,lte=2"`
	JudgeTemperature float64 `koanf:"judge_temperature" validate:"gte=0,lte=2"`
	MaxTokens        int     `koanf:"max_tokens" validate:"gte=0"`

	// Language is the tag stamped on generated records.
	Language string `koanf:"language" validate:"required"`

	OutputDir  string `koanf:"output_dir" validate:"required"`
	ResultsDir string `koanf:"results_dir" validate:"required"`

	// Evaluator names the judge in the results path; empty uses the judge model.
	Evaluator string `koanf:"evaluator"`

	// RequestDelay is the courtesy pause after every collaborator attempt.
	RequestDelay time.Duration `koanf:"request_delay" validate:"gte=0"`

	// RetryMaxAttempts bounds attempts per work unit.
	RetryMaxAttempts int `koanf:"retry_max_attempts" validate:"gte=1"`

	// RetryBackoff is none, constant or exponential; RetryBaseDelay feeds it.
	RetryBackoff   string        `koanf:"retry_backoff" validate:"oneof=none constant exponential"`
	RetryBaseDelay time.Duration `koanf:"retry_base_delay" validate:"gte=0"`

	// MetricsFile receives a Prometheus textfile dump at the end of a run.
	MetricsFile string `koanf:"metrics_file"`

	// MetricsNamespace and MetricsSubsystem prefix every metric name.
	MetricsNamespace string `koanf:"metrics_namespace" validate:"required"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// LatencyBuckets overrides the collaborator latency histogram buckets,
	// in seconds and strictly increasing.
	LatencyBuckets []float64 `koanf:"collaborator_latency_buckets" validate:"omitempty,dive,gt=0"`
}

// New creates a Config with defaults. Context is accepted first to satisfy the
// project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "auto",
		Provider:         ProviderOpenAI,
		Temperature:      0.7,
		JudgeTemperature: 0,
		MaxTokens:        4096,
		Language:         "ar",
		OutputDir:        "./data",
		ResultsDir:       "./results",
		RequestDelay:     time.Second,
		RetryMaxAttempts: 10,
		RetryBackoff:     BackoffNone,
		RetryBaseDelay:   2 * time.Second,
		MetricsNamespace: "edusynth",
		MetricsSubsystem: "batch",
	}
}

// GenerationModel returns the configured model or the provider default.
func (c *Config) GenerationModel() string {
	if c.Model != "" {
		return c.Model
	}
	return defaultModel(c.Provider)
}

// EvaluationModel returns the judge model, falling back to GenerationModel.
func (c *Config) EvaluationModel() string {
	if c.JudgeModel != "" {
		return c.JudgeModel
	}
	return c.GenerationModel()
}

// EvaluatorName is the path segment the judge results are filed under.
func (c *Config) EvaluatorName() string {
	if c.Evaluator != "" {
		return c.Evaluator
	}
	return c.EvaluationModel()
}

// CheckCredential fails with ErrMissingCredential when no API key resolved.
// Commands that never reach the collaborator skip it.
func (c *Config) CheckCredential() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: set EDUSYNTH_API_KEY or %s", ErrMissingCredential, legacyKeyVar(c.Provider))
	}
	return nil
}

func defaultModel(provider string) string {
	switch provider {
	case ProviderDeepSeek:
		return "deepseek-chat"
	case ProviderGoogleAI:
		return "gemini-1.5-pro"
	default:
		return "gpt-4o"
	}
}
