package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTask is matched by UnknownTaskError through errors.Is.
var ErrUnknownTask = errors.New("unknown task code")

// UnknownTaskError reports a task or rubric code that is not registered.
type UnknownTaskError struct {
	Code  string
	Known []string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("unknown task code %q (available: %s)", e.Code, strings.Join(e.Known, ", "))
}

// Is makes errors.Is(err, ErrUnknownTask) succeed.
func (e *UnknownTaskError) Is(target error) bool { return target == ErrUnknownTask }
