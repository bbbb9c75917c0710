package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/okian/edusynth/internal/adapters/repository"
	service "github.com/okian/edusynth/internal/app"
	"github.com/okian/edusynth/pkg/logger"
	"github.com/okian/edusynth/pkg/metrics"
)

func judgeCmd(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "judge INPUT_FILE CONTESTANT",
		Short: "Score one contestant's answers with an anonymized judge",
		Long: "Score every answer from CONTESTANT in INPUT_FILE (JSONL of question_template/model_answers) " +
			"in one judge call. The rubric comes from --task or the file name prefix.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJudge(cmd, deps, args[0], args[1])
		},
	}
	cmd.Flags().String("task", "", "Rubric code; defaults to the input file name prefix")
	return cmd
}

func runJudge(cmd *cobra.Command, deps Deps, input, contestant string) error {
	ctx := cmd.Context()
	rt, err := setup(ctx, deps)
	if err != nil {
		return err
	}
	explicit, _ := cmd.Flags().GetString("task")
	code, err := service.ResolveTaskCode(rt.reg, input, explicit)
	if err != nil {
		return err
	}
	if err := rt.cfg.CheckCredential(); err != nil {
		return err
	}

	client, err := deps.NewCompleter(ctx, rt.judgeSettings())
	if err != nil {
		return err
	}

	judge := service.NewJudge(rt.reg, rt.prompts, client, deps.Fs,
		repository.NewSummaryWriter(deps.Fs, rt.cfg.ResultsDir),
		service.WithJudgeLogger(rt.log.Named("judge")),
		service.WithEvaluator(rt.cfg.EvaluatorName()),
		service.WithJudgeClock(deps.Now))

	res, runErr := judge.Run(ctx, input, contestant, code)

	if err := metrics.WriteTextfile(rt.cfg.MetricsFile); err != nil {
		rt.log.Warn(ctx, "metrics textfile not written", logger.Error(err))
	}
	if runErr != nil {
		return runErr
	}

	for _, p := range res.Summaries {
		rt.log.Info(ctx, "summary written", logger.String("path", p))
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
