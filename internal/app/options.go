package service

import (
	"context"
	"time"

	"github.com/okian/edusynth/internal/domain/normalize"
	"github.com/okian/edusynth/pkg/logger"
)

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithLogger sets a custom logger for the generator.
func WithLogger(l logger.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.log = l
		}
	}
}

// WithCourtesyDelay sets the pause after every collaborator attempt.
func WithCourtesyDelay(d time.Duration) Option {
	return func(g *Generator) {
		if d >= 0 {
			g.delay = d
		}
	}
}

// WithRetryPolicy sets the per-record retry budget.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(g *Generator) {
		g.retry = p
	}
}

// WithFilter narrows the units visited.
func WithFilter(f Filter) Option {
	return func(g *Generator) {
		g.filter = f
	}
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(g *Generator) {
		if id != "" {
			g.runID = id
		}
	}
}

// WithSleep replaces the courtesy delay implementation.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(g *Generator) {
		if sleep != nil {
			g.sleep = sleep
		}
	}
}

// WithClock replaces time.Now for record stamps.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithNormalizer replaces the default response normalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(g *Generator) {
		if n != nil {
			g.norm = n
		}
	}
}

// JudgeOption applies a configuration option to the Judge.
type JudgeOption func(*Judge)

// WithJudgeLogger sets a custom logger for the judge.
func WithJudgeLogger(l logger.Logger) JudgeOption {
	return func(j *Judge) {
		if l != nil {
			j.log = l
		}
	}
}

// WithEvaluator names the evaluator directory of the summary.
func WithEvaluator(name string) JudgeOption {
	return func(j *Judge) {
		if name != "" {
			j.evaluator = name
		}
	}
}

// WithJudgeClock replaces time.Now for summary file names.
func WithJudgeClock(now func() time.Time) JudgeOption {
	return func(j *Judge) {
		if now != nil {
			j.now = now
		}
	}
}
