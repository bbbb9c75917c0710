// Package tally tracks per-unit success counts, the in-memory state derived
// from the progress log.
package tally

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/okian/edusynth/internal/domain/model"
)

// Tally counts persisted records per WorkUnit and keeps the set of units that
// reached the target. It is owned by one orchestrator and is not safe for
// concurrent use.
type Tally struct {
	target    int
	counts    map[model.WorkUnit]int
	satisfied mapset.Set[model.WorkUnit]
	total     int
}

// New creates an empty Tally.
func New(opts ...Option) *Tally {
	t := &Tally{
		target:    1,
		counts:    make(map[model.WorkUnit]int),
		satisfied: mapset.NewThreadUnsafeSet[model.WorkUnit](),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record counts one durably persisted record for u and returns the new count.
// Call it only after the append has been flushed.
func (t *Tally) Record(u model.WorkUnit) int {
	t.counts[u]++
	t.total++
	if t.counts[u] >= t.target {
		t.satisfied.Add(u)
	}
	return t.counts[u]
}

// Count returns how many records u has.
func (t *Tally) Count(u model.WorkUnit) int { return t.counts[u] }

// Satisfied reports whether u reached the target.
func (t *Tally) Satisfied(u model.WorkUnit) bool { return t.satisfied.Contains(u) }

// Remaining returns how many more records u needs, never negative.
func (t *Tally) Remaining(u model.WorkUnit) int {
	if r := t.target - t.counts[u]; r > 0 {
		return r
	}
	return 0
}

// SatisfiedUnits returns the number of units at target.
func (t *Tally) SatisfiedUnits() int { return t.satisfied.Cardinality() }

// Total returns the number of records counted across all units.
func (t *Tally) Total() int { return t.total }

// Target returns the per-unit target.
func (t *Tally) Target() int { return t.target }
