package contract

import (
	"errors"
	"fmt"
)

// ErrValidation is matched by ValidationError through errors.Is.
var ErrValidation = errors.New("contract violation")

// Reasons a field fails the contract.
const (
	ReasonMissing    = "missing"
	ReasonEmpty      = "empty"
	ReasonExtra      = "extra"
	ReasonMistyped   = "mistyped"
	ReasonOutOfRange = "out of range"
)

// ValidationError names the first field that broke the contract.
type ValidationError struct {
	Field  string
	Reason string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("contract violation: field %q is %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("contract violation: field %q is %s: %s", e.Field, e.Reason, e.Detail)
}

// Is makes errors.Is(err, ErrValidation) succeed.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func violation(field, reason, detail string) error {
	return &ValidationError{Field: field, Reason: reason, Detail: detail}
}
