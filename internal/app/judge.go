package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/okian/edusynth/internal/adapters/collaborator"
	"github.com/okian/edusynth/internal/adapters/repository"
	"github.com/okian/edusynth/internal/domain/anonymize"
	"github.com/okian/edusynth/internal/domain/contract"
	"github.com/okian/edusynth/internal/domain/model"
	"github.com/okian/edusynth/internal/domain/normalize"
	"github.com/okian/edusynth/internal/domain/prompt"
	"github.com/okian/edusynth/internal/domain/schema"
	"github.com/okian/edusynth/internal/domain/scoring"
	"github.com/okian/edusynth/pkg/logger"
	"github.com/okian/edusynth/pkg/metrics"
)

// Judge results recorded in metrics.
const (
	judgeOK     = "ok"
	judgeFailed = "failed"
)

// maxInputLine bounds a single judge input line.
const maxInputLine = 16 << 20

// JudgeResult is the restored outcome of one evaluation.
type JudgeResult struct {
	Task       string                    `json:"task"`
	Contestant string                    `json:"contestant"`
	Records    int                       `json:"records"`
	Scores     map[string]model.ScoreSet `json:"scores"`
	Summaries  []string                  `json:"summaries"`
}

// Judge scores one contestant's answers in a single collaborator call.
type Judge struct {
	reg       *schema.Registry
	prompts   *prompt.Builder
	client    collaborator.Completer
	summaries *repository.SummaryWriter
	fs        afero.Fs
	norm      *normalize.Normalizer
	log       logger.Logger
	evaluator string
	now       func() time.Time
}

// NewJudge wires a judge. Input files are read from fs.
func NewJudge(reg *schema.Registry, prompts *prompt.Builder, client collaborator.Completer, fs afero.Fs, summaries *repository.SummaryWriter, opts ...JudgeOption) *Judge {
	j := &Judge{
		reg:       reg,
		prompts:   prompts,
		client:    client,
		summaries: summaries,
		fs:        fs,
		norm:      normalize.New(),
		log:       logger.Nop(),
		evaluator: "judge",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// ResolveTaskCode picks the rubric for an input file. An explicit code wins;
// otherwise the file name up to the first "." is tried, then up to the
// first "_".
func ResolveTaskCode(reg *schema.Registry, path, explicit string) (string, error) {
	if explicit != "" {
		return rubricCode(reg, explicit)
	}
	base := filepath.Base(path)
	dot, _, _ := strings.Cut(base, ".")
	if code, err := rubricCode(reg, dot); err == nil {
		return code, nil
	}
	under, _, _ := strings.Cut(dot, "_")
	return rubricCode(reg, under)
}

func rubricCode(reg *schema.Registry, code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if _, err := reg.Rubric(code); err != nil {
		return "", err
	}
	return code, nil
}

// Run evaluates contestant's answers in the file at path. Every record must
// contain the contestant; otherwise nothing is sent to the collaborator.
func (j *Judge) Run(ctx context.Context, path, contestant, code string) (JudgeResult, error) {
	code, err := ResolveTaskCode(j.reg, path, code)
	if err != nil {
		return JudgeResult{}, err
	}
	res, err := j.run(ctx, path, contestant, code)
	if err != nil {
		metrics.RecordJudgeRun(code, judgeFailed)
		return res, err
	}
	metrics.RecordJudgeRun(code, judgeOK)
	return res, nil
}

func (j *Judge) run(ctx context.Context, path, contestant, code string) (JudgeResult, error) {
	rubric, err := j.reg.Rubric(code)
	if err != nil {
		return JudgeResult{}, err
	}

	records, err := j.load(path)
	if err != nil {
		return JudgeResult{}, err
	}
	selected, err := SelectContestant(records, contestant)
	if err != nil {
		return JudgeResult{}, err
	}

	anon, session, err := anonymize.Anonymize(selected)
	if err != nil {
		return JudgeResult{}, err
	}
	labels := session.Labels()

	req, err := j.prompts.Judge(rubric, labels, anon)
	if err != nil {
		return JudgeResult{}, err
	}

	j.log.Info(ctx, "judging",
		logger.String("task", code),
		logger.String("contestant", contestant),
		logger.Int("records", len(selected)))

	raw, err := j.client.Complete(ctx, req)
	if err != nil {
		return JudgeResult{}, err
	}
	parsed, err := j.norm.Normalize(raw)
	if err != nil {
		return JudgeResult{}, err
	}
	byLabel, err := contract.ValidateScores(rubric, labels, parsed.Record)
	if err != nil {
		return JudgeResult{}, fmt.Errorf("%w (payload %q)", err, normalize.Snippet(raw))
	}
	scores, err := session.Restore(byLabel)
	if err != nil {
		return JudgeResult{}, err
	}

	codes := make([]string, len(rubric))
	for i, m := range rubric {
		codes[i] = m.Code
	}
	// The judge's average is kept as reported; a large gap is only flagged.
	for name, set := range scores {
		if mean, drifted := scoring.Drift(set, codes, scoring.DefaultTolerance); drifted {
			j.log.Warn(ctx, "reported average differs from metric mean",
				logger.String("contestant", name),
				logger.Float64("reported", set[model.AverageKey]),
				logger.Float64("mean", mean))
		}
	}
	paths, err := j.summaries.Write(j.evaluator, code, codes, scores, j.now())
	if err != nil {
		return JudgeResult{}, err
	}

	return JudgeResult{
		Task:       code,
		Contestant: contestant,
		Records:    len(selected),
		Scores:     scores,
		Summaries:  paths,
	}, nil
}

// load reads every line of a judge input file. Any undecodable line aborts.
func (j *Judge) load(path string) ([]model.JudgeRecord, error) {
	f, err := j.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var out []model.JudgeRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxInputLine)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var rec model.JudgeRecord
		if err := json.Unmarshal(b, &rec); err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrBadInput, path, line, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}

// SelectContestant keeps, per record, only the answer from contestant. It
// fails with MissingContestantError if any record lacks it.
func SelectContestant(records []model.JudgeRecord, contestant string) ([]model.JudgeRecord, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	out := make([]model.JudgeRecord, 0, len(records))
	missing := 0
	for _, r := range records {
		hit := -1
		for i, a := range r.Answers {
			if a.Contestant() == contestant {
				hit = i
				break
			}
		}
		if hit < 0 {
			missing++
			continue
		}
		out = append(out, model.JudgeRecord{
			QuestionTemplate: r.QuestionTemplate,
			Answers:          []model.Answer{r.Answers[hit]},
		})
	}
	if missing > 0 {
		return nil, &MissingContestantError{Contestant: contestant, Missing: missing, Total: len(records)}
	}
	return out, nil
}

// IsUsageError reports errors that come from bad input rather than a
// failed run.
func IsUsageError(err error) bool {
	return errors.Is(err, schema.ErrUnknownTask) ||
		errors.Is(err, ErrMissingContestant) ||
		errors.Is(err, ErrNoRecords) ||
		errors.Is(err, ErrBadInput)
}
