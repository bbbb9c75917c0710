package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/okian/edusynth/internal/adapters/collaborator"
	service "github.com/okian/edusynth/internal/app"
	"github.com/okian/edusynth/internal/config"
	"github.com/okian/edusynth/internal/domain/prompt"
	. "github.com/smartystreets/goconvey/convey"
)

type stubCompleter struct {
	mu       sync.Mutex
	reply    string
	calls    int
	settings []collaborator.Settings
}

func (s *stubCompleter) factory(_ context.Context, set collaborator.Settings) (collaborator.Completer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = append(s.settings, set)
	return s, nil
}

func (s *stubCompleter) Complete(context.Context, prompt.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.reply, nil
}

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"EDUSYNTH_CONFIG", "EDUSYNTH_PROVIDER", "EDUSYNTH_MODEL", "EDUSYNTH_JUDGE_MODEL",
		"EDUSYNTH_API_BASE", "EDUSYNTH_EVALUATOR", "EDUSYNTH_METRICS_FILE",
		"EDUSYNTH_METRICS_NAMESPACE", "EDUSYNTH_METRICS_SUBSYSTEM", "EDUSYNTH_COLLABORATOR_LATENCY_BUCKETS",
		"OPENAI_API_KEY", "OPENAI_API_BASE", "DEEPSEEK_API_KEY", "DEEPSEEK_API_BASE",
		"GOOGLE_API_KEY", "OUTPUT_DIR",
		"EDUSYNTH_DOTENV",
	} {
		unsetEnv(t, k)
	}
	t.Setenv("EDUSYNTH_API_KEY", "sk-test")
	t.Setenv("EDUSYNTH_OUTPUT_DIR", "/data")
	t.Setenv("EDUSYNTH_RESULTS_DIR", "/results")
	t.Setenv("EDUSYNTH_REQUEST_DELAY", "0s")
	t.Setenv("EDUSYNTH_LOG_FORMAT", "text")
}

// unsetEnv removes k for the test and restores it afterwards.
func unsetEnv(t *testing.T, k string) {
	t.Helper()
	t.Setenv(k, "")
	_ = os.Unsetenv(k)
}

func execute(deps Deps, args ...string) (string, error) {
	var out, errOut bytes.Buffer
	deps.Out = &out
	deps.Err = &errOut
	root := NewRootCmd(deps)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTasksCommand(t *testing.T) {
	Convey("Given the tasks command", t, func() {
		out, err := execute(Deps{}, "tasks")

		Convey("Then every task and rubric is listed", func() {
			So(err, ShouldBeNil)
			for _, code := range []string{"AG", "EC", "ES", "PCC", "PLS", "QA", "TMG", "IP", "QG"} {
				So(out, ShouldContainSubstring, code)
			}
			So(out, ShouldContainSubstring, "Student Profile")
		})
	})
}

func TestGenerateCommand(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	Convey("Given a configured environment and a stub collaborator", t, func() {
		isolateEnv(t)
		fs := afero.NewMemMapFs()
		stub := &stubCompleter{reply: `{"Student Profile": "p", "Personalized Learning Content/Task": ` +
			`{"One-on-one": {"a": 1}, "Tiered Teaching": {"b": 1}, "Other": {"c": 1}}}`}
		deps := Deps{Fs: fs, Now: func() time.Time { return at }, NewCompleter: stub.factory}

		Convey("When one PLS unit is generated", func() {
			out, err := execute(deps, "generate", "pls", "--limit", "1")
			So(err, ShouldBeNil)

			Convey("Then the report is printed and the log is named by task, language and time", func() {
				var rep service.Report
				So(json.Unmarshal([]byte(out), &rep), ShouldBeNil)
				So(rep.Task, ShouldEqual, "PLS")
				So(rep.Persisted, ShouldEqual, 1)
				So(rep.Log, ShouldEqual, "/data/PLS_ar_20250101_000000.jsonl")

				exists, err := afero.Exists(fs, rep.Log)
				So(err, ShouldBeNil)
				So(exists, ShouldBeTrue)
			})

			Convey("Then the generation model uses the configured temperature", func() {
				So(stub.settings[0].Model, ShouldEqual, "gpt-4o")
				So(stub.settings[0].Temperature, ShouldEqual, 0.7)
			})

			Convey("And resuming the same log makes no calls", func() {
				calls := stub.calls
				_, err := execute(deps, "generate", "PLS", "--limit", "1", "--resume", "/data/PLS_ar_20250101_000000.jsonl")
				So(err, ShouldBeNil)
				So(stub.calls, ShouldEqual, calls)
			})
		})

		Convey("When metrics naming is configured and a textfile is requested", func() {
			prom := filepath.Join(t.TempDir(), "edusynth.prom")
			t.Setenv("EDUSYNTH_METRICS_FILE", prom)
			t.Setenv("EDUSYNTH_METRICS_NAMESPACE", "lab")
			_, err := execute(deps, "generate", "PLS", "--limit", "1")
			So(err, ShouldBeNil)

			Convey("Then the dump uses the configured namespace", func() {
				data, err := os.ReadFile(prom)
				So(err, ShouldBeNil)
				So(string(data), ShouldContainSubstring, "lab_batch_records_persisted_total")
				So(string(data), ShouldNotContainSubstring, "edusynth_batch_")
			})
		})

		Convey("When the task is unknown", func() {
			_, err := execute(deps, "generate", "XYZ")
			So(ExitCode(err), ShouldEqual, ExitUsage)
			So(stub.calls, ShouldEqual, 0)
		})

		Convey("When no credential is configured", func() {
			unsetEnv(t, "EDUSYNTH_API_KEY")
			_, err := execute(deps, "generate", "QA")
			So(errors.Is(err, config.ErrMissingCredential), ShouldBeTrue)
			So(ExitCode(err), ShouldEqual, ExitUsage)
		})

		Convey("When the task argument is missing", func() {
			_, err := execute(deps, "generate")
			So(err, ShouldNotBeNil)
			So(ExitCode(err), ShouldEqual, ExitFailure)
		})
	})
}

func TestJudgeCommand(t *testing.T) {
	at := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)

	Convey("Given a judge input file", t, func() {
		isolateEnv(t)
		t.Setenv("EDUSYNTH_JUDGE_MODEL", "deepseek-reasoner")
		fs := afero.NewMemMapFs()
		So(afero.WriteFile(fs, "/in/AG.jsonl", []byte(
			`{"question_template": "q1", "model_answers": [{"model": "gpt-4o", "answer": "a"}]}`+"\n"+
				`{"question_template": "q2", "model_answers": [{"model": "other", "answer": "b"}]}`+"\n"), 0o644), ShouldBeNil)

		stub := &stubCompleter{reply: `{"Answer_1": {"IFTC": 9, "CRSC": 8, "average": 8.5}}`}
		deps := Deps{Fs: fs, Now: func() time.Time { return at }, NewCompleter: stub.factory}

		Convey("When a contestant is missing from a record", func() {
			_, err := execute(deps, "judge", "/in/AG.jsonl", "gpt-4o")

			Convey("Then the command fails before calling the judge", func() {
				So(errors.Is(err, service.ErrMissingContestant), ShouldBeTrue)
				So(ExitCode(err), ShouldEqual, ExitUsage)
				So(stub.calls, ShouldEqual, 0)
			})
		})

		Convey("When the contestant answered every record", func() {
			So(afero.WriteFile(fs, "/in/AG.jsonl", []byte(
				`{"question_template": "q1", "model_answers": [{"model": "gpt-4o", "answer": "a"}]}`+"\n"), 0o644), ShouldBeNil)
			out, err := execute(deps, "judge", "/in/AG.jsonl", "gpt-4o")
			So(err, ShouldBeNil)

			Convey("Then restored scores are printed and filed under the judge model", func() {
				var res service.JudgeResult
				So(json.Unmarshal([]byte(out), &res), ShouldBeNil)
				So(res.Scores["gpt-4o"]["average"], ShouldEqual, 8.5)
				So(res.Summaries, ShouldResemble, []string{"/results/deepseek-reasoner/gpt-4o/AG_20250203_040506.csv"})
				So(stub.settings[0].Model, ShouldEqual, "deepseek-reasoner")
				So(stub.settings[0].Temperature, ShouldEqual, 0.0)
			})
		})
	})
}

func TestExitCode(t *testing.T) {
	Convey("ExitCode classifies errors", t, func() {
		So(ExitCode(nil), ShouldEqual, ExitOK)
		So(ExitCode(errors.New("boom")), ShouldEqual, ExitFailure)
		So(ExitCode(config.ErrInvalidConfig), ShouldEqual, ExitUsage)
		So(ExitCode(service.ErrNoRecords), ShouldEqual, ExitUsage)
	})
}
