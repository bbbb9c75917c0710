// Package normalize turns raw collaborator text into a structured record
// through an ordered chain of increasingly aggressive repair stages. The first
// stage that yields a JSON object wins and its level is reported.
package normalize

import (
	"github.com/okian/edusynth/internal/domain/model"
)

// Level identifies the stage that produced a record. Fence stripping always
// runs first and is not a level of its own.
type Level int

const (
	LevelDirect      Level = 2
	LevelQuotes      Level = 3
	LevelPunctuation Level = 4
	LevelBraces      Level = 5
)

func (l Level) String() string {
	switch l {
	case LevelDirect:
		return "direct"
	case LevelQuotes:
		return "quotes"
	case LevelPunctuation:
		return "punctuation"
	case LevelBraces:
		return "braces"
	default:
		return "unknown"
	}
}

// Stage is one pure repair step.
type Stage struct {
	Level Level
	Parse func(string) (map[string]any, error)
}

// Result is a normalized record and the level that produced it.
type Result struct {
	Record model.Record
	Level  Level
}

// Observer sees every attempted level; err is nil for the winning one.
type Observer func(level Level, err error)

// DefaultStages is the chain in priority order.
func DefaultStages() []Stage {
	return []Stage{
		{Level: LevelDirect, Parse: ParseDirect},
		{Level: LevelQuotes, Parse: ParseQuoteRepaired},
		{Level: LevelPunctuation, Parse: ParsePunctuationRepaired},
		{Level: LevelBraces, Parse: ParseBraces},
	}
}

// Normalizer runs the stage chain. It holds no mutable state and is safe to share.
type Normalizer struct {
	stages   []Stage
	observer Observer
}

// New builds a Normalizer with the default chain.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{stages: DefaultStages()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize strips fences then tries each stage in order.
func (n *Normalizer) Normalize(raw string) (Result, error) {
	cleaned := StripFences(raw)
	causes := make([]error, 0, len(n.stages))
	for _, st := range n.stages {
		obj, err := st.Parse(cleaned)
		if n.observer != nil {
			n.observer(st.Level, err)
		}
		if err == nil {
			return Result{Record: model.Record(obj), Level: st.Level}, nil
		}
		causes = append(causes, err)
	}
	return Result{}, &MalformedResponseError{Snippet: Snippet(raw), Causes: causes}
}
