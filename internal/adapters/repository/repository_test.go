package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/okian/edusynth/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestJSONLStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a log on an in-memory filesystem", t, func() {
		fs := afero.NewMemMapFs()
		path := "/data/QA_ar_20250101_000000.jsonl"

		s, err := Open(ctx, path, WithFs(fs))
		So(err, ShouldBeNil)
		Reset(func() { _ = s.Close() })

		Convey("When records are appended", func() {
			So(s.Append(ctx, model.Record{"Subject": "Physics", "Question": "<q>"}), ShouldBeNil)
			So(s.Append(ctx, model.Record{"Subject": "Chemistry", "Question": "ما هو"}), ShouldBeNil)

			Convey("Then each record is one line with HTML and unicode kept", func() {
				data, err := afero.ReadFile(fs, path)
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual,
					"{\"Question\":\"<q>\",\"Subject\":\"Physics\"}\n{\"Question\":\"ما هو\",\"Subject\":\"Chemistry\"}\n")
			})

			Convey("Then replay returns them in order", func() {
				recs, err := s.Replay(ctx)
				So(err, ShouldBeNil)
				So(len(recs), ShouldEqual, 2)
				So(recs[1]["Subject"], ShouldEqual, "Chemistry")
			})
		})

		Convey("When the store is closed", func() {
			So(s.Close(), ShouldBeNil)
			err := s.Append(ctx, model.Record{"a": "b"})
			So(errors.Is(err, ErrClosed), ShouldBeTrue)
		})

		Convey("Then the path is reported", func() {
			So(s.Path(), ShouldEqual, path)
		})
	})

	Convey("Given a log with a torn last line", t, func() {
		fs := afero.NewMemMapFs()
		path := "/data/run.jsonl"
		So(afero.WriteFile(fs, path, []byte("{\"a\":\"1\"}\nnot json\n{\"a\":"), 0o644), ShouldBeNil)

		s, err := Open(ctx, path, WithFs(fs))
		So(err, ShouldBeNil)
		Reset(func() { _ = s.Close() })

		Convey("When a new record is appended and the log is replayed", func() {
			So(s.Append(ctx, model.Record{"a": "2"}), ShouldBeNil)
			recs, err := s.Replay(ctx)

			Convey("Then bad lines are skipped and the new record is intact", func() {
				So(err, ShouldBeNil)
				So(len(recs), ShouldEqual, 2)
				So(recs[0]["a"], ShouldEqual, "1")
				So(recs[1]["a"], ShouldEqual, "2")
			})
		})
	})

	Convey("Given a log that does not exist yet", t, func() {
		fs := afero.NewMemMapFs()
		s, err := Open(ctx, "/fresh/run.jsonl", WithFs(fs))
		So(err, ShouldBeNil)
		Reset(func() { _ = s.Close() })

		recs, err := s.Replay(ctx)
		So(err, ShouldBeNil)
		So(recs, ShouldBeEmpty)
	})

	Convey("Given a log on the OS filesystem", t, func() {
		path := filepath.Join(t.TempDir(), "run.jsonl")
		first, err := Open(ctx, path)
		So(err, ShouldBeNil)
		Reset(func() { _ = first.Close() })

		Convey("Then a second writer is refused while the first holds the lock", func() {
			_, err := Open(ctx, path)
			So(errors.Is(err, ErrLocked), ShouldBeTrue)
		})

		Convey("Then the lock is released on close", func() {
			So(first.Close(), ShouldBeNil)
			second, err := Open(ctx, path)
			So(err, ShouldBeNil)
			So(second.Close(), ShouldBeNil)
		})

		Convey("Then an appended record survives reopening", func() {
			So(first.Append(ctx, model.Record{"k": 1.0}), ShouldBeNil)
			So(first.Close(), ShouldBeNil)
			data, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "{\"k\":1}\n")
		})
	})
}

func TestSummaryWriter(t *testing.T) {
	Convey("Given scores for one contestant", t, func() {
		fs := afero.NewMemMapFs()
		w := NewSummaryWriter(fs, "results")
		at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
		scores := map[string]model.ScoreSet{
			"gpt-4o": {"IFTC": 8, "RTC": 7.5, "average": 7.75},
		}

		paths, err := w.Write("DeepSeek Chat", "EC", []string{"IFTC", "RTC"}, scores, at)
		So(err, ShouldBeNil)

		Convey("Then the CSV lands under evaluator and contestant directories", func() {
			So(paths, ShouldResemble, []string{filepath.Join("results", "deepseek-chat", "gpt-4o", "EC_20250304_050607.csv")})
		})

		Convey("Then the header and row follow rubric order", func() {
			f, err := fs.Open(paths[0])
			So(err, ShouldBeNil)
			defer f.Close()
			rows, err := csv.NewReader(f).ReadAll()
			So(err, ShouldBeNil)
			So(rows, ShouldResemble, [][]string{
				{"model", "IFTC", "RTC", "average"},
				{"gpt-4o", "8", "7.5", "7.75"},
			})
		})
	})

	Convey("Given contestants whose names differ only in case and punctuation", t, func() {
		fs := afero.NewMemMapFs()
		at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
		scores := map[string]model.ScoreSet{
			"Model.A": {"RTC": 6, "average": 6},
			"model-a": {"RTC": 9, "average": 9},
		}

		paths, err := NewSummaryWriter(fs, "results").Write("gpt-4.1", "EC", []string{"RTC"}, scores, at)
		So(err, ShouldBeNil)

		Convey("Then each keeps its own directory", func() {
			So(paths, ShouldHaveLength, 2)
			So(paths, ShouldContain, filepath.Join("results", "gpt-4.1", "Model.A", "EC_20250304_050607.csv"))
			So(paths, ShouldContain, filepath.Join("results", "gpt-4.1", "model-a", "EC_20250304_050607.csv"))
		})
	})

	Convey("pathSegment only rewrites names that are not already path safe", t, func() {
		So(pathSegment("gemini-1.5-pro"), ShouldEqual, "gemini-1.5-pro")
		So(pathSegment("Claude 3/Opus"), ShouldEqual, "claude-3-opus")
		So(pathSegment(".."), ShouldEqual, "unnamed")
		So(pathSegment("///"), ShouldEqual, "unnamed")
	})

	Convey("Given no scores", t, func() {
		_, err := NewSummaryWriter(afero.NewMemMapFs(), "r").Write("e", "EC", nil, nil, time.Now())
		So(errors.Is(err, ErrEmptyScores), ShouldBeTrue)
	})
}

func TestLogName(t *testing.T) {
	Convey("LogName joins code, language and stamp", t, func() {
		at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		So(LogName("QA", "ar", at), ShouldEqual, "QA_ar_20250102_030405.jsonl")
	})
}
