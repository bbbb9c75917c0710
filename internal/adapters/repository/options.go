package repository

import (
	"github.com/spf13/afero"

	"github.com/okian/edusynth/pkg/logger"
)

// Option applies a configuration option to the JSONLStore.
type Option func(*JSONLStore)

// WithFs sets the filesystem the log is written to. Locking is only applied
// on the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(s *JSONLStore) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// WithLogger sets the logger used to report skipped lines.
func WithLogger(l logger.Logger) Option {
	return func(s *JSONLStore) {
		if l != nil {
			s.log = l
		}
	}
}
