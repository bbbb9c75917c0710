package cli

import (
	"context"
	"fmt"

	"github.com/okian/edusynth/internal/adapters/collaborator"
	"github.com/okian/edusynth/internal/catalog"
	"github.com/okian/edusynth/internal/config"
	"github.com/okian/edusynth/internal/domain/prompt"
	"github.com/okian/edusynth/internal/domain/schema"
	"github.com/okian/edusynth/pkg/logger"
	"github.com/okian/edusynth/pkg/metrics"
)

// runtime holds what every command needs after startup.
type runtime struct {
	cfg     *config.Config
	reg     *schema.Registry
	prompts *prompt.Builder
	log     logger.Logger
}

// setup loads configuration, initialises logging and metrics, and builds the
// registry.
func setup(ctx context.Context, deps Deps) (*runtime, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}

	if err := logger.Init(logger.WithWriter(deps.Err), logger.WithFormat(cfg.LogFormat)); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Configure(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithHistogramBuckets(cfg.LatencyBuckets))

	cat, err := catalog.Default()
	if err != nil {
		return nil, err
	}
	if cat.Language.Tag != cfg.Language {
		return nil, fmt.Errorf("%w: language %q has no catalog (available: %s)",
			config.ErrInvalidConfig, cfg.Language, cat.Language.Tag)
	}
	reg, err := schema.New(cat)
	if err != nil {
		return nil, err
	}
	prompts, err := prompt.New(reg)
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, reg: reg, prompts: prompts, log: log}, nil
}

func (rt *runtime) generationSettings() collaborator.Settings {
	return collaborator.Settings{
		Provider:    rt.cfg.Provider,
		Model:       rt.cfg.GenerationModel(),
		APIKey:      rt.cfg.APIKey,
		APIBase:     rt.cfg.APIBase,
		Temperature: rt.cfg.Temperature,
		MaxTokens:   rt.cfg.MaxTokens,
	}
}

func (rt *runtime) judgeSettings() collaborator.Settings {
	s := rt.generationSettings()
	s.Model = rt.cfg.EvaluationModel()
	s.Temperature = rt.cfg.JudgeTemperature
	return s
}
