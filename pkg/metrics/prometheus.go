// Package metrics provides Prometheus metrics for the edusynth batch runs.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Attempt outcomes used as label values.
const (
	OutcomeSuccess   = "success"
	OutcomeTransport = "transport"
	OutcomeMalformed = "malformed"
	OutcomeInvalid   = "invalid"
	OutcomePersist   = "persist"
)

// Manager manages all Prometheus metrics for edusynth.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Generation path
	attempts           *prometheus.CounterVec
	normalizeLevels    *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	recordsPersisted   *prometheus.CounterVec
	unitsExhausted     *prometheus.CounterVec
	unitsSkipped       *prometheus.CounterVec
	replayedRecords    prometheus.Counter

	// Collaborator
	collaboratorLatency *prometheus.HistogramVec

	// Judge path
	judgeRuns *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "edusynth",
		subsystem:        "batch",
		histogramBuckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.attempts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "attempts_total",
		Help:      "Collaborator attempts by task and outcome",
	}, []string{"task", "outcome"})

	m.normalizeLevels = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "normalize_level_total",
		Help:      "Responses normalized, by the repair level that succeeded",
	}, []string{"level"})

	m.validationFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "validation_failures_total",
		Help:      "Contract violations by task and offending field",
	}, []string{"task", "field"})

	m.recordsPersisted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_persisted_total",
		Help:      "Records durably appended to the progress log",
	}, []string{"task"})

	m.unitsExhausted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "units_exhausted_total",
		Help:      "Work units that ran out of retry budget",
	}, []string{"task"})

	m.unitsSkipped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "units_skipped_total",
		Help:      "Work units already at target when the run started",
	}, []string{"task"})

	m.replayedRecords = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "replayed_records_total",
		Help:      "Records recovered from the progress log on startup",
	})

	m.collaboratorLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "collaborator_latency_seconds",
		Help:      "Collaborator round trip latency in seconds",
		Buckets:   m.histogramBuckets,
	}, []string{"provider"})

	m.judgeRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "judge_runs_total",
		Help:      "Judge invocations by task and result",
	}, []string{"task", "result"})
}

// RecordAttempt counts one collaborator attempt.
func RecordAttempt(task, outcome string) {
	globalManager.attempts.WithLabelValues(task, outcome).Inc()
}

// RecordNormalizeLevel counts a successful normalization by its level name.
func RecordNormalizeLevel(level string) {
	globalManager.normalizeLevels.WithLabelValues(level).Inc()
}

// RecordValidationFailure counts a contract violation.
func RecordValidationFailure(task, field string) {
	globalManager.validationFailures.WithLabelValues(task, field).Inc()
}

// RecordPersisted counts one durably appended record.
func RecordPersisted(task string) {
	globalManager.recordsPersisted.WithLabelValues(task).Inc()
}

// RecordExhausted counts a unit whose retry budget ran out.
func RecordExhausted(task string) {
	globalManager.unitsExhausted.WithLabelValues(task).Inc()
}

// RecordSkipped counts a unit already satisfied on resume.
func RecordSkipped(task string) {
	globalManager.unitsSkipped.WithLabelValues(task).Inc()
}

// RecordReplayed adds n to the replayed record counter.
func RecordReplayed(n int) {
	globalManager.replayedRecords.Add(float64(n))
}

// RecordCollaboratorLatency observes one round trip.
func RecordCollaboratorLatency(provider string, seconds float64) {
	globalManager.collaboratorLatency.WithLabelValues(provider).Observe(seconds)
}

// RecordJudgeRun counts one judge invocation.
func RecordJudgeRun(task, result string) {
	globalManager.judgeRuns.WithLabelValues(task, result).Inc()
}

// Configure rebuilds the global manager on a fresh registry with opts. It is
// meant for process startup, before any Record call; series recorded earlier
// are dropped.
func Configure(opts ...Option) {
	reg := prometheus.NewRegistry()
	customRegistry = reg
	globalManager = NewManager(append(opts, WithPrometheusRegistry(reg))...)
}

// Registry returns the registry the global manager records into.
func Registry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile dumps the registry in text exposition format, for node
// exporter's textfile collector.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, Registry()); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}
