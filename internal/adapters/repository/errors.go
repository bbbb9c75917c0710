package repository

import "errors"

// Sentinel kinds for persistence errors.
var (
	ErrLocked      = errors.New("progress log is locked by another process")
	ErrClosed      = errors.New("progress log is closed")
	ErrWriteFailed = errors.New("failed to write record")
	ErrEmptyScores = errors.New("no score sets to summarize")
)
