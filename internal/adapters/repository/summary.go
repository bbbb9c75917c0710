package repository

import (
	"encoding/csv"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/gosimple/slug"
	"github.com/spf13/afero"

	"github.com/okian/edusynth/internal/domain/model"
)

// StampLayout is the timestamp used in generated file names.
const StampLayout = "20060102_150405"

// LogName returns the progress log file name for a new run.
func LogName(code, lang string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s.jsonl", code, lang, at.Format(StampLayout))
}

// SummaryWriter writes one CSV per contestant under
// {root}/{evaluator}/{contestant}/{code}_{stamp}.csv.
type SummaryWriter struct {
	fs   afero.Fs
	root string
}

// NewSummaryWriter returns a writer rooted at dir on fs.
func NewSummaryWriter(fs afero.Fs, dir string) *SummaryWriter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &SummaryWriter{fs: fs, root: dir}
}

// Write stores scores and returns the written paths sorted. Columns are
// model, every code in order, then average.
func (w *SummaryWriter) Write(evaluator, code string, codes []string, scores map[string]model.ScoreSet, at time.Time) ([]string, error) {
	if len(scores) == 0 {
		return nil, ErrEmptyScores
	}

	contestants := make([]string, 0, len(scores))
	for c := range scores {
		contestants = append(contestants, c)
	}
	sort.Strings(contestants)

	header := append([]string{model.ContestantKey}, codes...)
	header = append(header, model.AverageKey)

	paths := make([]string, 0, len(contestants))
	for _, c := range contestants {
		dir := filepath.Join(w.root, pathSegment(evaluator), pathSegment(c))
		if err := w.fs.MkdirAll(dir, 0o755); err != nil {
			return paths, fmt.Errorf("create %s: %w", dir, err)
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", code, at.Format(StampLayout)))

		row := []string{c}
		for _, k := range header[1:] {
			row = append(row, strconv.FormatFloat(scores[c][k], 'f', -1, 64))
		}
		if err := w.writeFile(path, header, row); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (w *SummaryWriter) writeFile(path string, rows ...[]string) error {
	f, err := w.fs.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	cw := csv.NewWriter(f)
	if err := cw.WriteAll(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

var safeSegment = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// pathSegment makes a name safe as a single directory. Names that already are
// keep their case and dots, so Model.A and model-a stay apart; anything else
// is transliterated and slugged.
func pathSegment(name string) string {
	if safeSegment.MatchString(name) && name != "." && name != ".." {
		return name
	}
	if s := slug.Make(name); s != "" {
		return s
	}
	return "unnamed"
}
