// Package service runs the two batch flows: resumable record generation and
// single-pass judging.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/okian/edusynth/internal/adapters/collaborator"
	"github.com/okian/edusynth/internal/adapters/repository"
	"github.com/okian/edusynth/internal/domain/contract"
	"github.com/okian/edusynth/internal/domain/model"
	"github.com/okian/edusynth/internal/domain/normalize"
	"github.com/okian/edusynth/internal/domain/prompt"
	"github.com/okian/edusynth/internal/domain/schema"
	"github.com/okian/edusynth/internal/domain/tally"
	"github.com/okian/edusynth/pkg/logger"
	"github.com/okian/edusynth/pkg/metrics"
)

// Filter narrows a generation run. Empty lists match everything and a zero
// Limit means no limit.
type Filter struct {
	Subjects []string
	Levels   []string
	Variants []string
	Limit    int
}

func (f Filter) apply(units []model.WorkUnit) []model.WorkUnit {
	out := make([]model.WorkUnit, 0, len(units))
	for _, u := range units {
		if !allowed(f.Subjects, u.Subject) || !allowed(f.Levels, u.Level) || !allowed(f.Variants, u.Variant) {
			continue
		}
		out = append(out, u)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

func allowed(list []string, v string) bool {
	return len(list) == 0 || slices.Contains(list, v)
}

// Report summarizes one generation run.
type Report struct {
	Task      string   `json:"task"`
	RunID     string   `json:"run_id"`
	Log       string   `json:"log"`
	Units     int      `json:"units"`
	Replayed  int      `json:"replayed"`
	Skipped   int      `json:"skipped"`
	Persisted int      `json:"persisted"`
	Attempts  int      `json:"attempts"`
	Exhausted []string `json:"exhausted,omitempty"`
}

// Generator drives the collaborator until every unit of a task reaches its
// target. It is sequential and owns its store and tally for the run.
type Generator struct {
	reg     *schema.Registry
	prompts *prompt.Builder
	client  collaborator.Completer
	store   repository.Store
	norm    *normalize.Normalizer
	log     logger.Logger

	retry  RetryPolicy
	delay  time.Duration
	filter Filter
	runID  string
	sleep  func(context.Context, time.Duration) error
	now    func() time.Time
}

// NewGenerator wires a generator. The store must already be open.
func NewGenerator(reg *schema.Registry, prompts *prompt.Builder, client collaborator.Completer, store repository.Store, opts ...Option) *Generator {
	g := &Generator{
		reg:     reg,
		prompts: prompts,
		client:  client,
		store:   store,
		norm:    normalize.New(),
		log:     logger.Nop(),
		retry:   DefaultRetryPolicy(),
		delay:   time.Second,
		runID:   uuid.NewString(),
		sleep:   sleepContext,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run generates records for task code until every selected unit has its
// target count or has exhausted its retries. Units already complete in the
// log are skipped. The error wraps ErrUnitsExhausted when any unit gave up.
func (g *Generator) Run(ctx context.Context, code string) (Report, error) {
	task, err := g.reg.Task(code)
	if err != nil {
		return Report{}, err
	}
	all, err := g.reg.Units(task.Code)
	if err != nil {
		return Report{}, err
	}
	units := g.filter.apply(all)

	rep := Report{Task: task.Code, RunID: g.runID, Log: g.store.Path(), Units: len(units)}
	t := tally.New(tally.WithTarget(task.Target))

	replayed, err := g.replay(ctx, task, all, t)
	if err != nil {
		return rep, err
	}
	rep.Replayed = replayed

	g.log.Info(ctx, "generation started",
		logger.String("task", task.Code),
		logger.String("run_id", g.runID),
		logger.Int("units", len(units)),
		logger.Int("target", t.Target()),
		logger.Int("replayed", replayed))

	for i, u := range units {
		if t.Satisfied(u) {
			rep.Skipped++
			metrics.RecordSkipped(task.Code)
			continue
		}
		for !t.Satisfied(u) {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
			attempts, err := g.produce(ctx, task, u, t)
			rep.Attempts += attempts
			if err == nil {
				rep.Persisted++
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return rep, ctxErr
			}
			if errors.Is(err, repository.ErrWriteFailed) || errors.Is(err, repository.ErrClosed) {
				return rep, err
			}
			rep.Exhausted = append(rep.Exhausted, u.String())
			metrics.RecordExhausted(task.Code)
			g.log.Error(ctx, "unit exhausted its retry budget",
				logger.String("task", task.Code),
				logger.String("unit", u.String()),
				logger.Int("count", t.Count(u)),
				logger.Int("remaining", t.Remaining(u)),
				logger.Error(err))
			break
		}
		g.log.Info(ctx, "unit processed",
			logger.String("unit", u.String()),
			logger.Int("progress", i+1),
			logger.Int("of", len(units)),
			logger.Int("count", t.Count(u)))
	}

	g.log.Info(ctx, "generation finished",
		logger.String("task", task.Code),
		logger.Int("persisted", rep.Persisted),
		logger.Int("records", t.Total()),
		logger.Int("satisfied", t.SatisfiedUnits()),
		logger.Int("skipped", rep.Skipped),
		logger.Int("exhausted", len(rep.Exhausted)))

	if len(rep.Exhausted) > 0 {
		return rep, &ExhaustedError{Task: task.Code, Units: rep.Exhausted}
	}
	return rep, nil
}

// replay rebuilds the tally from the log. Lines belonging to another task
// or to an unknown unit are ignored.
func (g *Generator) replay(ctx context.Context, task schema.Task, units []model.WorkUnit, t *tally.Tally) (int, error) {
	recs, err := g.store.Replay(ctx)
	if err != nil {
		return 0, fmt.Errorf("replay progress log: %w", err)
	}
	known := make(map[model.WorkUnit]struct{}, len(units))
	for _, u := range units {
		known[u] = struct{}{}
	}

	n := 0
	for _, rec := range recs {
		u, ok := rec.Unit(task.LevelKey, task.VariantKey)
		if !ok || !hasFields(rec, task) {
			continue
		}
		if _, ok := known[u]; !ok {
			continue
		}
		t.Record(u)
		n++
	}
	if ignored := len(recs) - n; ignored > 0 {
		g.log.Warn(ctx, "ignored progress lines for another task or unit",
			logger.Int("ignored", ignored))
	}
	metrics.RecordReplayed(n)
	return n, nil
}

func hasFields(rec model.Record, task schema.Task) bool {
	for _, f := range task.Fields {
		if _, ok := rec[f.Name]; !ok {
			return false
		}
	}
	return true
}

// produce persists one record for u under the retry policy and returns the
// number of collaborator calls it made.
func (g *Generator) produce(ctx context.Context, task schema.Task, u model.WorkUnit, t *tally.Tally) (int, error) {
	req, err := g.prompts.Task(task, u)
	if err != nil {
		return 0, err
	}

	attempts := 0
	err = retry.Do(ctx, g.retry.backoff(), func(ctx context.Context) error {
		attempts++
		err := g.persist(ctx, task, u, req, t)
		// The pause follows every attempt, after any good record is appended.
		// Run picks up a cancellation from here at its next context check.
		sleepErr := g.sleep(ctx, g.delay)
		switch {
		case err == nil:
			return nil
		case sleepErr != nil:
			return sleepErr
		case errors.Is(err, repository.ErrWriteFailed), errors.Is(err, repository.ErrClosed):
			return err
		}
		g.log.Warn(ctx, "attempt failed",
			logger.String("task", task.Code),
			logger.String("unit", u.String()),
			logger.Int("attempt", attempts),
			logger.Error(err))
		return retry.RetryableError(err)
	})
	return attempts, err
}

// persist runs one attempt and appends the stamped record on success.
func (g *Generator) persist(ctx context.Context, task schema.Task, u model.WorkUnit, req prompt.Request, t *tally.Tally) error {
	rec, err := g.attempt(ctx, task, u, req)
	if err != nil {
		return err
	}
	rec = g.stamp(task, u, rec, t.Count(u)+1)
	if err := g.store.Append(ctx, rec); err != nil {
		metrics.RecordAttempt(task.Code, metrics.OutcomePersist)
		return err
	}
	t.Record(u)
	metrics.RecordAttempt(task.Code, metrics.OutcomeSuccess)
	metrics.RecordPersisted(task.Code)
	return nil
}

// attempt is one call, normalize and validate round. Failures never leave it
// as anything but an error.
func (g *Generator) attempt(ctx context.Context, task schema.Task, u model.WorkUnit, req prompt.Request) (model.Record, error) {
	raw, err := g.client.Complete(ctx, req)
	if err != nil {
		metrics.RecordAttempt(task.Code, metrics.OutcomeTransport)
		return nil, err
	}

	res, err := g.norm.Normalize(raw)
	if err != nil {
		metrics.RecordAttempt(task.Code, metrics.OutcomeMalformed)
		return nil, err
	}
	metrics.RecordNormalizeLevel(res.Level.String())

	rec, err := contract.Validate(task, res.Record)
	if err != nil {
		metrics.RecordAttempt(task.Code, metrics.OutcomeInvalid)
		var ve *contract.ValidationError
		if errors.As(err, &ve) {
			metrics.RecordValidationFailure(task.Code, ve.Field)
		}
		return nil, fmt.Errorf("%w (payload %q)", err, normalize.Snippet(raw))
	}
	return rec, nil
}

// stamp builds the persisted line: unit keys, language, task fields and the
// generation metadata.
func (g *Generator) stamp(task schema.Task, u model.WorkUnit, rec model.Record, index int) model.Record {
	out := model.Record{
		model.KeySubject:  u.Subject,
		task.LevelKey:     u.Level,
		model.KeyLanguage: g.reg.Language().Tag,
	}
	if task.VariantKey != "" {
		out[task.VariantKey] = u.Variant
	}
	for _, f := range task.Fields {
		out[f.Name] = rec[f.Name]
	}
	out[model.KeyIndex] = index
	out[model.KeyTime] = g.now().Format(model.TimeLayout)
	out[model.KeyRunID] = g.runID
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
