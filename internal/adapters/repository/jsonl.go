package repository

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"

	"github.com/okian/edusynth/internal/domain/model"
	"github.com/okian/edusynth/pkg/logger"
)

// maxLine bounds a single replayed record.
const maxLine = 16 << 20

// JSONLStore is a Store backed by one newline-delimited JSON file.
type JSONLStore struct {
	mu   sync.Mutex
	fs   afero.Fs
	log  logger.Logger
	path string
	file afero.File
	lock *flock.Flock
}

// Open opens or creates the log at path for appending. On the OS filesystem
// an advisory lock next to the file rejects a second writer.
func Open(ctx context.Context, path string, opts ...Option) (*JSONLStore, error) {
	s := &JSONLStore{
		fs:   afero.NewOsFs(),
		log:  logger.Nop(),
		path: path,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	if _, ok := s.fs.(*afero.OsFs); ok {
		s.lock = flock.New(path + ".lock")
		locked, err := s.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", path, err)
		}
		if !locked {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
	}

	torn, err := s.endsTorn()
	if err != nil {
		s.unlock()
		return nil, err
	}

	f, err := s.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		s.unlock()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s.file = f

	// A crash mid-write can leave a partial last line. Terminate it so the
	// next record starts on its own line; Replay skips the fragment.
	if torn {
		s.log.Warn(ctx, "progress log ends with a partial line", logger.String("path", path))
		if _, err := f.Write([]byte{'\n'}); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
		}
	}
	return s, nil
}

func (s *JSONLStore) endsTorn() (bool, error) {
	info, err := s.fs.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", s.path, err)
	}
	if info.Size() == 0 {
		return false, nil
	}

	f, err := s.fs.Open(s.path)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read %s: %w", s.path, err)
	}
	return last[0] != '\n', nil
}

// Path implements Store.
func (s *JSONLStore) Path() string { return s.path }

// Append implements Store. The line is built in full before a single write
// so a record is never interleaved with another.
func (s *JSONLStore) Append(ctx context.Context, rec model.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("%w: encode: %v", ErrWriteFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return ErrClosed
	}
	if _, err := s.file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %v", ErrWriteFailed, err)
	}
	return nil
}

// Replay implements Store.
func (s *JSONLStore) Replay(ctx context.Context) ([]model.Record, error) {
	f, err := s.fs.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	var (
		out     []model.Record
		lineNum int
	)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	for sc.Scan() {
		lineNum++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec model.Record
		if err := json.Unmarshal(line, &rec); err != nil || rec == nil {
			s.log.Warn(ctx, "skipping unreadable progress line",
				logger.String("path", s.path),
				logger.Int("line", lineNum),
				logger.Error(err))
			continue
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("read %s: %w", s.path, err)
	}
	return out, nil
}

// Close implements Store.
func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.file != nil {
		err = s.file.Close()
		s.file = nil
	}
	s.unlock()
	return err
}

func (s *JSONLStore) unlock() {
	if s.lock != nil {
		_ = s.lock.Unlock()
		s.lock = nil
	}
}
