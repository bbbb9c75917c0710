package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "EDUSYNTH_"
	envConfigPath = "EDUSYNTH_CONFIG"
	envDotenvPath = "EDUSYNTH_DOTENV"
	defaultDotenv = ".env"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if EDUSYNTH_CONFIG is set
//  3. conventional provider variables (OPENAI_API_KEY, DEEPSEEK_API_BASE, OUTPUT_DIR, ...)
//  4. env (prefix EDUSYNTH_)
//
// A .env file in the working directory (or EDUSYNTH_DOTENV) is loaded into the
// process environment first; it never overrides variables already set.
func Load(ctx context.Context) (*Config, error) {
	if err := loadDotenv(); err != nil {
		return nil, err
	}

	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(envConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// EDUSYNTH_API_KEY -> api_key. Keys stay flat to match the koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(envPrefix))
		return s
	})
	prefixed := koanf.New(".")
	if err := prefixed.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := applyLegacyEnv(k, prefixed, base.Provider); err != nil {
		return nil, err
	}
	if err := k.Merge(prefixed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints and wraps failures in ErrInvalidConfig.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !increasing(cfg.LatencyBuckets) {
		return fmt.Errorf("%w: collaborator_latency_buckets must be strictly increasing", ErrInvalidConfig)
	}
	return nil
}

func increasing(buckets []float64) bool {
	for i := 1; i < len(buckets); i++ {
		if buckets[i] <= buckets[i-1] {
			return false
		}
	}
	return true
}

func loadDotenv() error {
	path := os.Getenv(envDotenvPath)
	explicit := path != ""
	if !explicit {
		path = defaultDotenv
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: dotenv %s: %v", ErrLoadConfig, path, err)
	}
	return nil
}

// applyLegacyEnv fills keys the file did not set from the provider's
// conventional variables. Prefixed variables are merged afterwards and win.
func applyLegacyEnv(k, prefixed *koanf.Koanf, defaultProvider string) error {
	provider := defaultProvider
	if k.Exists("provider") {
		provider = k.String("provider")
	}
	if prefixed.Exists("provider") {
		provider = prefixed.String("provider")
	}

	fallbacks := map[string]string{
		"api_key":    legacyKeyVar(provider),
		"api_base":   legacyBaseVar(provider),
		"output_dir": "OUTPUT_DIR",
	}
	for key, name := range fallbacks {
		if name == "" || k.Exists(key) {
			continue
		}
		if v := os.Getenv(name); v != "" {
			if err := k.Set(key, v); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrLoadConfig, name, err)
			}
		}
	}
	return nil
}

func legacyKeyVar(provider string) string {
	switch provider {
	case ProviderDeepSeek:
		return "DEEPSEEK_API_KEY"
	case ProviderGoogleAI:
		return "GOOGLE_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

func legacyBaseVar(provider string) string {
	switch provider {
	case ProviderDeepSeek:
		return "DEEPSEEK_API_BASE"
	case ProviderGoogleAI:
		return ""
	default:
		return "OPENAI_API_BASE"
	}
}
