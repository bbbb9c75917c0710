// Package schema is the immutable lookup from task code to the fields a
// generated record must carry and the metrics a judge must score.
package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/okian/edusynth/internal/catalog"
	"github.com/okian/edusynth/internal/domain/model"
)

// FieldSpec describes one required field.
type FieldSpec struct {
	Name    string
	Accepts Shape
	// Aliases are alternative keys canonicalised to Name.
	Aliases []string
	// Nested keys are required inside an object value, matched case-insensitively.
	Nested []FieldSpec
}

// Task is one registered generation task.
type Task struct {
	Code       string
	Name       string
	Fields     []FieldSpec
	Target     int
	LevelKey   string
	VariantKey string
	Variants   []string
	// Prompt is the full template text, output contract included.
	Prompt string
}

// FieldNames lists the required field names in order.
func (t Task) FieldNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

// Metric is one rubric scoring dimension.
type Metric struct {
	Code        string
	Description string
}

// Registry is built once by New and never mutated afterwards. Accessors hand
// out copies.
type Registry struct {
	language    catalog.Language
	pairs       []catalog.Pair
	judge       catalog.Judge
	tasks       map[string]Task
	taskCodes   []string
	rubrics     map[string][]Metric
	rubricCodes []string
}

// New builds a Registry from a decoded catalog.
func New(c *catalog.Catalog) (*Registry, error) {
	r := &Registry{
		language: c.Language,
		pairs:    c.Pairs(),
		judge:    c.Judge,
		tasks:    make(map[string]Task, len(c.Tasks)),
		rubrics:  make(map[string][]Metric, len(c.Rubrics)),
	}

	for _, ct := range c.Tasks {
		fields, err := buildFields(ct.Fields)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", ct.Code, err)
		}
		code := normalizeCode(ct.Code)
		r.tasks[code] = Task{
			Code:       code,
			Name:       ct.Name,
			Fields:     fields,
			Target:     ct.Target,
			LevelKey:   ct.LevelKey,
			VariantKey: ct.VariantKey,
			Variants:   slices.Clone(ct.Variants),
			Prompt:     strings.TrimRight(ct.Prompt, "\n") + "\n\n" + c.OutputContract,
		}
		r.taskCodes = append(r.taskCodes, code)
	}

	for _, cr := range c.Rubrics {
		metrics := make([]Metric, len(cr.Metrics))
		for i, m := range cr.Metrics {
			metrics[i] = Metric{Code: m, Description: c.Metrics[m]}
		}
		code := normalizeCode(cr.Code)
		r.rubrics[code] = metrics
		r.rubricCodes = append(r.rubricCodes, code)
	}
	return r, nil
}

func buildFields(in []catalog.Field) ([]FieldSpec, error) {
	out := make([]FieldSpec, len(in))
	for i, f := range in {
		shape, err := ParseShape(f.Accepts)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		nested, err := buildFields(f.Nested)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		if len(nested) > 0 && !shape.Has(Object) {
			return nil, fmt.Errorf("field %q declares nested keys but does not accept objects", f.Name)
		}
		out[i] = FieldSpec{Name: f.Name, Accepts: shape, Aliases: slices.Clone(f.Aliases), Nested: nested}
	}
	return out, nil
}

// Task returns the task registered under code.
func (r *Registry) Task(code string) (Task, error) {
	t, ok := r.tasks[normalizeCode(code)]
	if !ok {
		return Task{}, &UnknownTaskError{Code: code, Known: r.Codes()}
	}
	t.Fields = cloneFields(t.Fields)
	t.Variants = slices.Clone(t.Variants)
	return t, nil
}

// Rubric returns the ordered metrics scored for code.
func (r *Registry) Rubric(code string) ([]Metric, error) {
	m, ok := r.rubrics[normalizeCode(code)]
	if !ok {
		return nil, &UnknownTaskError{Code: code, Known: r.RubricCodes()}
	}
	return slices.Clone(m), nil
}

// Codes lists registered generation task codes in catalog order.
func (r *Registry) Codes() []string { return slices.Clone(r.taskCodes) }

// RubricCodes lists registered rubric codes in catalog order.
func (r *Registry) RubricCodes() []string { return slices.Clone(r.rubricCodes) }

// Language is the language generated records are written in.
func (r *Registry) Language() catalog.Language { return r.language }

// Judge returns the judge prompt templates.
func (r *Registry) Judge() catalog.Judge { return r.judge }

// Units enumerates every WorkUnit of a task: subject/level pairs in catalog
// order, each crossed with the task's variants.
func (r *Registry) Units(code string) ([]model.WorkUnit, error) {
	t, err := r.Task(code)
	if err != nil {
		return nil, err
	}
	variants := t.Variants
	if len(variants) == 0 {
		variants = []string{""}
	}
	units := make([]model.WorkUnit, 0, len(r.pairs)*len(variants))
	for _, p := range r.pairs {
		for _, v := range variants {
			units = append(units, model.WorkUnit{Subject: p.Subject, Level: p.Level, Variant: v})
		}
	}
	return units, nil
}

func cloneFields(in []FieldSpec) []FieldSpec {
	if in == nil {
		return nil
	}
	out := make([]FieldSpec, len(in))
	for i, f := range in {
		out[i] = FieldSpec{Name: f.Name, Accepts: f.Accepts, Aliases: slices.Clone(f.Aliases), Nested: cloneFields(f.Nested)}
	}
	return out
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
