package normalize

import (
	"errors"
	"fmt"
)

// SnippetLimit caps how much of an offending payload diagnostics carry.
const SnippetLimit = 500

// ErrMalformedResponse is matched by MalformedResponseError through errors.Is.
var ErrMalformedResponse = errors.New("malformed response")

// MalformedResponseError reports that every repair level failed.
type MalformedResponseError struct {
	// Snippet is the first SnippetLimit characters of the raw text.
	Snippet string
	// Causes holds one error per attempted level, in order.
	Causes []error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: %d repair levels failed: %q", len(e.Causes), e.Snippet)
}

// Is makes errors.Is(err, ErrMalformedResponse) succeed.
func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

// Snippet returns at most SnippetLimit characters of s, cut on a rune boundary.
func Snippet(s string) string {
	n := 0
	for i := range s {
		if n == SnippetLimit {
			return s[:i]
		}
		n++
	}
	return s
}
