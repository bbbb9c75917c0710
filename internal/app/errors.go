package service

import (
	"errors"
	"fmt"
)

var (
	// ErrUnitsExhausted is returned by Generator.Run when at least one unit
	// used up its retry budget.
	ErrUnitsExhausted = errors.New("work units exhausted their retry budget")
	// ErrMissingContestant is matched by MissingContestantError.
	ErrMissingContestant = errors.New("contestant missing from records")
	// ErrNoRecords means the judge input held nothing to evaluate.
	ErrNoRecords = errors.New("no records to evaluate")
	// ErrBadInput means a judge input line could not be decoded.
	ErrBadInput = errors.New("invalid judge input")
)

// MissingContestantError reports how many records lack the named contestant.
type MissingContestantError struct {
	Contestant string
	Missing    int
	Total      int
}

func (e *MissingContestantError) Error() string {
	return fmt.Sprintf("contestant %q not found in %d of %d record(s); the name must match exactly",
		e.Contestant, e.Missing, e.Total)
}

// Is makes errors.Is(err, ErrMissingContestant) succeed.
func (e *MissingContestantError) Is(target error) bool { return target == ErrMissingContestant }

// ExhaustedError lists the units that gave up.
type ExhaustedError struct {
	Task  string
	Units []string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %d unit(s) exhausted their retry budget", e.Task, len(e.Units))
}

// Is makes errors.Is(err, ErrUnitsExhausted) succeed.
func (e *ExhaustedError) Is(target error) bool { return target == ErrUnitsExhausted }
