package contract

import (
	"fmt"
	"sort"

	"github.com/okian/edusynth/internal/domain/model"
	"github.com/okian/edusynth/internal/domain/schema"
)

// Score bounds.
const (
	MinScore = 0.0
	MaxScore = 10.0
)

// ValidateScores checks a judge payload keyed by anonymized label. The outer
// keys must equal labels exactly and every inner object must hold exactly the
// rubric codes plus "average", each a number in [0,10].
func ValidateScores(metrics []schema.Metric, labels []string, payload map[string]any) (map[string]model.ScoreSet, error) {
	want := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		want[l] = struct{}{}
		if _, ok := payload[l]; !ok {
			return nil, violation(l, ReasonMissing, "")
		}
	}
	if extra := extraKeys(payload, want); len(extra) > 0 {
		return nil, violation(extra[0], ReasonExtra, "")
	}

	out := make(map[string]model.ScoreSet, len(labels))
	for _, l := range labels {
		obj, ok := payload[l].(map[string]any)
		if !ok {
			return nil, violation(l, ReasonMistyped, fmt.Sprintf("got %T, want object", payload[l]))
		}
		set, err := ValidateScoreSet(l, metrics, obj)
		if err != nil {
			return nil, err
		}
		out[l] = set
	}
	return out, nil
}

// ValidateScoreSet checks one closed score object. prefix qualifies field
// names in errors.
func ValidateScoreSet(prefix string, metrics []schema.Metric, obj map[string]any) (model.ScoreSet, error) {
	keys := make([]string, 0, len(metrics)+1)
	for _, m := range metrics {
		keys = append(keys, m.Code)
	}
	keys = append(keys, model.AverageKey)

	want := make(map[string]struct{}, len(keys))
	set := make(model.ScoreSet, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
		field := qualify(prefix, k)
		raw, ok := obj[k]
		if !ok {
			return nil, violation(field, ReasonMissing, "")
		}
		n, ok := number(raw)
		if !ok {
			return nil, violation(field, ReasonMistyped, fmt.Sprintf("got %T, want number", raw))
		}
		if n < MinScore || n > MaxScore {
			return nil, violation(field, ReasonOutOfRange, fmt.Sprintf("%g not in [0,10]", n))
		}
		set[k] = n
	}
	if extra := extraKeys(obj, want); len(extra) > 0 {
		return nil, violation(qualify(prefix, extra[0]), ReasonExtra, "")
	}
	return set, nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// extraKeys returns the keys of m not in want, sorted.
func extraKeys(m map[string]any, want map[string]struct{}) []string {
	var extra []string
	for k := range m {
		if _, ok := want[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return extra
}

func qualify(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
