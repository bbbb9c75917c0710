// Package model contains domain models passed between layers.
package model

import "fmt"

// Keys stamped on every persisted generation line.
const (
	KeySubject  = "Subject"
	KeyLanguage = "Language"
	KeyIndex    = "Generation Index"
	KeyTime     = "Generation Time"
	KeyRunID    = "Run ID"
)

// TimeLayout formats KeyTime.
const TimeLayout = "2006-01-02 15:04:05"

// AverageKey is the derived entry every ScoreSet carries.
const AverageKey = "average"

// WorkUnit is one (subject, level, variant) combination targeted for
// generation. Tasks without a variant dimension leave Variant empty.
type WorkUnit struct {
	Subject string
	Level   string
	Variant string
}

func (u WorkUnit) String() string {
	if u.Variant == "" {
		return fmt.Sprintf("%s/%s", u.Subject, u.Level)
	}
	return fmt.Sprintf("%s/%s/%s", u.Subject, u.Level, u.Variant)
}

// Record is a structured record: strings, float64 numbers, nested objects,
// ordered sequences, booleans and nulls keyed by field name.
type Record map[string]any

// Unit recovers the WorkUnit a persisted line was generated for. ok is false
// when the subject or level is missing, or the variant is missing for a task
// that has one.
func (r Record) Unit(levelKey, variantKey string) (WorkUnit, bool) {
	subject, ok1 := r[KeySubject].(string)
	level, ok2 := r[levelKey].(string)
	if !ok1 || !ok2 || subject == "" || level == "" {
		return WorkUnit{}, false
	}
	u := WorkUnit{Subject: subject, Level: level}
	if variantKey == "" {
		return u, true
	}
	variant, ok := r[variantKey].(string)
	if !ok || variant == "" {
		return WorkUnit{}, false
	}
	u.Variant = variant
	return u, true
}

// JudgeRecord is one line of a judge input file.
type JudgeRecord struct {
	QuestionTemplate any      `json:"question_template"`
	Answers          []Answer `json:"model_answers"`
}

// Answer is one contestant's answer. The "model" key names the contestant;
// every other key is carried to the judge untouched.
type Answer map[string]any

// ContestantKey names the contestant inside an Answer.
const ContestantKey = "model"

// Contestant returns the contestant name, or "" when absent.
func (a Answer) Contestant() string {
	s, _ := a[ContestantKey].(string)
	return s
}

// ScoreSet maps rubric metric codes, plus AverageKey, to scores in [0,10].
type ScoreSet map[string]float64
