package tally

// Option applies a configuration option to the Tally.
type Option func(*Tally)

// WithTarget sets the per-unit success target. Values below one are ignored.
func WithTarget(target int) Option {
	return func(t *Tally) {
		if target > 0 {
			t.target = target
		}
	}
}
