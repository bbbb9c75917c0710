package collaborator

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport is matched by TransportError through errors.Is.
	ErrTransport = errors.New("collaborator transport failure")
	// ErrUnsupportedProvider is returned by New for an unknown provider name.
	ErrUnsupportedProvider = errors.New("unsupported collaborator provider")
	// ErrEmptyResponse means the provider answered with no choices.
	ErrEmptyResponse = errors.New("collaborator returned no choices")
)

// TransportError wraps a failed round trip to the provider.
type TransportError struct {
	Provider string
	Model    string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s/%s: %v", e.Provider, e.Model, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrTransport) succeed.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }
