// Package anonymize hides contestant identities from the judge for one
// evaluation request and restores them afterwards. Labels are scoped to a
// Session and never leave it.
package anonymize

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/mohae/deepcopy"

	"github.com/okian/edusynth/internal/domain/model"
)

const labelPrefix = "Answer_"

var (
	// ErrLabelConflict means one label would stand for two contestants.
	ErrLabelConflict = errors.New("anonymized label maps to more than one contestant")
	// ErrUnknownLabel means a restored key was never issued by the session.
	ErrUnknownLabel = errors.New("unknown anonymized label")
	// ErrNoContestant means an answer carries no contestant name.
	ErrNoContestant = errors.New("answer has no contestant name")
)

// Label returns the positional label for the i-th answer, 1-based.
func Label(i int) string { return labelPrefix + strconv.Itoa(i) }

// Session remembers label to identity for one request.
type Session struct {
	identities map[string]string
	order      []string
}

// Anonymize deep-copies records and relabels each record's answers
// Answer_1..Answer_N in input order. The originals are left untouched.
func Anonymize(records []model.JudgeRecord) ([]model.JudgeRecord, *Session, error) {
	copied, ok := deepcopy.Copy(records).([]model.JudgeRecord)
	if !ok {
		return nil, nil, fmt.Errorf("anonymize: failed to copy records")
	}

	s := &Session{identities: make(map[string]string)}
	for ri, rec := range copied {
		for ai, ans := range rec.Answers {
			identity := ans.Contestant()
			if identity == "" {
				return nil, nil, fmt.Errorf("record %d answer %d: %w", ri+1, ai+1, ErrNoContestant)
			}
			label := Label(ai + 1)
			if err := s.bind(label, identity); err != nil {
				return nil, nil, fmt.Errorf("record %d: %w", ri+1, err)
			}
			ans[model.ContestantKey] = label
		}
	}
	return copied, s, nil
}

func (s *Session) bind(label, identity string) error {
	prev, ok := s.identities[label]
	if !ok {
		s.identities[label] = identity
		s.order = append(s.order, label)
		return nil
	}
	if prev != identity {
		return fmt.Errorf("%w: %s is both %q and %q", ErrLabelConflict, label, prev, identity)
	}
	return nil
}

// Labels lists issued labels in the order they were first assigned.
func (s *Session) Labels() []string {
	return append([]string(nil), s.order...)
}

// Identity returns the contestant behind label.
func (s *Session) Identity(label string) (string, bool) {
	id, ok := s.identities[label]
	return id, ok
}

// Restore re-keys label-keyed score sets by true contestant name.
func (s *Session) Restore(byLabel map[string]model.ScoreSet) (map[string]model.ScoreSet, error) {
	out := make(map[string]model.ScoreSet, len(byLabel))
	for label, set := range byLabel {
		id, ok := s.Identity(label)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownLabel, label)
		}
		if _, dup := out[id]; dup {
			return nil, fmt.Errorf("%w: %q restored twice", ErrLabelConflict, id)
		}
		out[id] = set
	}
	return out, nil
}
