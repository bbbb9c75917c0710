package cli

import (
	"encoding/json"
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/okian/edusynth/internal/adapters/repository"
	service "github.com/okian/edusynth/internal/app"
	"github.com/okian/edusynth/pkg/logger"
	"github.com/okian/edusynth/pkg/metrics"
)

func generateCmd(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate TASK",
		Short: "Generate records for a task until every unit reaches its target",
		Long: "Generate records for a task code (see `edusynth tasks`). Progress is appended to a JSONL log; " +
			"pass --resume with an existing log to continue a run without regenerating completed units.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, deps, args[0])
		},
	}
	cmd.Flags().String("resume", "", "Existing progress log to continue")
	cmd.Flags().StringSlice("subject", nil, "Only generate for these subjects")
	cmd.Flags().StringSlice("level", nil, "Only generate for these levels")
	cmd.Flags().StringSlice("variant", nil, "Only generate for these variants")
	cmd.Flags().Int("limit", 0, "Stop after this many units (0 means all)")
	return cmd
}

func runGenerate(cmd *cobra.Command, deps Deps, code string) error {
	ctx := cmd.Context()
	rt, err := setup(ctx, deps)
	if err != nil {
		return err
	}
	task, err := rt.reg.Task(code)
	if err != nil {
		return err
	}
	if err := rt.cfg.CheckCredential(); err != nil {
		return err
	}

	flags := cmd.Flags()
	resume, _ := flags.GetString("resume")
	subjects, _ := flags.GetStringSlice("subject")
	levels, _ := flags.GetStringSlice("level")
	variants, _ := flags.GetStringSlice("variant")
	limit, _ := flags.GetInt("limit")

	path := resume
	if path == "" {
		path = filepath.Join(rt.cfg.OutputDir, repository.LogName(task.Code, rt.reg.Language().Tag, deps.Now()))
	}

	settings := rt.generationSettings()
	client, err := deps.NewCompleter(ctx, settings)
	if err != nil {
		return err
	}

	store, err := repository.Open(ctx, path,
		repository.WithFs(deps.Fs),
		repository.WithLogger(rt.log.Named("progress")))
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			rt.log.Error(ctx, "close progress log", logger.Error(err))
		}
	}()

	rt.log.Info(ctx, "writing progress log",
		logger.String("path", path),
		logger.String("provider", settings.Provider),
		logger.String("model", settings.Model))

	opts := []service.Option{
		service.WithLogger(rt.log.Named("generator")),
		service.WithCourtesyDelay(rt.cfg.RequestDelay),
		service.WithRetryPolicy(service.RetryPolicy{
			MaxAttempts: rt.cfg.RetryMaxAttempts,
			Backoff:     rt.cfg.RetryBackoff,
			BaseDelay:   rt.cfg.RetryBaseDelay,
		}),
		service.WithFilter(service.Filter{Subjects: subjects, Levels: levels, Variants: variants, Limit: limit}),
		service.WithClock(deps.Now),
		service.WithSleep(deps.Sleep),
	}
	rep, runErr := service.NewGenerator(rt.reg, rt.prompts, client, store, opts...).Run(ctx, task.Code)

	if err := metrics.WriteTextfile(rt.cfg.MetricsFile); err != nil {
		rt.log.Warn(ctx, "metrics textfile not written", logger.Error(err))
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}
