package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the metrics register under the custom names", func() {
				So(manager, ShouldNotBeNil)
				manager.attempts.WithLabelValues("QA", OutcomeSuccess).Inc()
				n, err := testutil.GatherAndCount(registry, "test_unit_attempts_total")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording attempts", func() {
			before := testutil.ToFloat64(globalManager.attempts.WithLabelValues("EC", OutcomeMalformed))
			RecordAttempt("EC", OutcomeMalformed)
			RecordAttempt("EC", OutcomeMalformed)

			Convey("Then the counter advances", func() {
				after := testutil.ToFloat64(globalManager.attempts.WithLabelValues("EC", OutcomeMalformed))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When recording a normalizer level", func() {
			before := testutil.ToFloat64(globalManager.normalizeLevels.WithLabelValues("braces"))
			RecordNormalizeLevel("braces")

			Convey("Then the series is labelled by level name", func() {
				So(testutil.ToFloat64(globalManager.normalizeLevels.WithLabelValues("braces"))-before, ShouldEqual, 1)
			})
		})

		Convey("When recording the rest of the surface", func() {
			So(func() {
				RecordNormalizeLevel("punctuation")
				RecordValidationFailure("QA", "Answer")
				RecordPersisted("QA")
				RecordExhausted("QA")
				RecordSkipped("QA")
				RecordReplayed(4)
				RecordCollaboratorLatency("openai", 1.2)
				RecordJudgeRun("QA", "ok")
			}, ShouldNotPanic)
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given the global manager reconfigured at startup", t, func() {
		Reset(func() { Configure() })

		Configure(
			WithNamespace("lab"),
			WithSubsystem("judge"),
			WithHistogramBuckets([]float64{1, 30}),
		)
		RecordJudgeRun("EC", "ok")
		RecordCollaboratorLatency("openai", 12)

		Convey("Then series land on the new registry under the configured names", func() {
			n, err := testutil.GatherAndCount(Registry(), "lab_judge_judge_runs_total")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)

			families, err := Registry().Gather()
			So(err, ShouldBeNil)
			var bounds []float64
			for _, mf := range families {
				if mf.GetName() != "lab_judge_collaborator_latency_seconds" {
					continue
				}
				for _, b := range mf.GetMetric()[0].GetHistogram().GetBucket() {
					bounds = append(bounds, b.GetUpperBound())
				}
			}
			So(bounds, ShouldResemble, []float64{1, 30})
		})

		Convey("Then the default names are gone from the registry", func() {
			n, err := testutil.GatherAndCount(Registry(), "edusynth_batch_judge_runs_total")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
		})
	})
}

func TestWriteTextfile(t *testing.T) {
	Convey("Given a metrics textfile target", t, func() {
		dir := t.TempDir()

		Convey("When writing to a valid path", func() {
			RecordPersisted("TMG")
			path := filepath.Join(dir, "edusynth.prom")
			err := WriteTextfile(path)

			Convey("Then the file holds the exposition text", func() {
				So(err, ShouldBeNil)
				data, rerr := os.ReadFile(path)
				So(rerr, ShouldBeNil)
				So(string(data), ShouldContainSubstring, "edusynth_batch_records_persisted_total")
			})
		})

		Convey("When the path is empty", func() {
			So(WriteTextfile(""), ShouldBeNil)
		})

		Convey("When the directory does not exist", func() {
			err := WriteTextfile(filepath.Join(dir, "missing", "x.prom"))
			So(errors.Is(err, ErrWriteFailed), ShouldBeTrue)
		})
	})
}
