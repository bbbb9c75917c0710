// Package repository persists generation progress as an append-only JSONL
// log and writes judge summaries as CSV.
package repository

import (
	"context"

	"github.com/okian/edusynth/internal/domain/model"
)

// Store is the durable progress log of one generation run.
type Store interface {
	// Append writes rec as one line and syncs it to stable storage before
	// returning. A record is complete only once Append returns nil.
	Append(ctx context.Context, rec model.Record) error

	// Replay reads every well-formed record already in the log, in file
	// order. Unparseable lines are skipped.
	Replay(ctx context.Context) ([]model.Record, error)

	// Path reports where the log lives.
	Path() string

	// Close releases the file and its lock.
	Close() error
}
