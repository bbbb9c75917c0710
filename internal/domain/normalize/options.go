package normalize

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithObserver reports every attempted level to fn.
func WithObserver(fn Observer) Option {
	return func(n *Normalizer) {
		n.observer = fn
	}
}

// WithStages replaces the stage chain.
func WithStages(stages ...Stage) Option {
	return func(n *Normalizer) {
		if len(stages) > 0 {
			n.stages = stages
		}
	}
}
