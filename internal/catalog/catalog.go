// Package catalog holds the static data edusynth runs on: the language, the
// subject/level tiers, task definitions with their prompt templates, and the
// judging rubrics. The default catalog is embedded and decoded once.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embedded []byte

// Catalog is the decoded catalog file.
type Catalog struct {
	Language       Language          `yaml:"language"`
	Tiers          []Tier            `yaml:"tiers"`
	QuestionTypes  []string          `yaml:"question_types"`
	Tasks          []Task            `yaml:"tasks"`
	OutputContract string            `yaml:"output_contract"`
	Metrics        map[string]string `yaml:"metrics"`
	Rubrics        []Rubric          `yaml:"rubrics"`
	Judge          Judge             `yaml:"judge"`
}

// Language is the tag stamped on records and the name used in prompts.
type Language struct {
	Tag  string `yaml:"tag"`
	Name string `yaml:"name"`
}

// Tier is one education tier: every subject is offered at every level.
type Tier struct {
	Name     string   `yaml:"name"`
	Levels   []string `yaml:"levels"`
	Subjects []string `yaml:"subjects"`
}

// Task defines one generation task.
type Task struct {
	Code       string   `yaml:"code"`
	Name       string   `yaml:"name"`
	Target     int      `yaml:"target"`
	LevelKey   string   `yaml:"level_key"`
	VariantKey string   `yaml:"variant_key"`
	Variants   []string `yaml:"variants"`
	Fields     []Field  `yaml:"fields"`
	Prompt     string   `yaml:"prompt"`
}

// Field declares one required record field.
type Field struct {
	Name    string   `yaml:"name"`
	Accepts []string `yaml:"accepts"`
	Aliases []string `yaml:"aliases"`
	Nested  []Field  `yaml:"nested"`
}

// Rubric lists the metric codes scored for one task code.
type Rubric struct {
	Code    string   `yaml:"code"`
	Metrics []string `yaml:"metrics"`
}

// Judge holds the judge prompt templates.
type Judge struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// Pair is one subject offered at one level.
type Pair struct {
	Subject string
	Level   string
}

// Default decodes the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(embedded)
}

// Parse decodes and checks a catalog document.
func Parse(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Pairs enumerates subject/level pairs tier by tier, subjects outermost.
func (c *Catalog) Pairs() []Pair {
	var out []Pair
	for _, t := range c.Tiers {
		for _, s := range t.Subjects {
			for _, l := range t.Levels {
				out = append(out, Pair{Subject: s, Level: l})
			}
		}
	}
	return out
}

func (c *Catalog) check() error {
	if strings.TrimSpace(c.Language.Tag) == "" {
		return fmt.Errorf("%w: language tag is empty", ErrInvalidCatalog)
	}
	if len(c.Pairs()) == 0 {
		return fmt.Errorf("%w: no subject/level pairs", ErrInvalidCatalog)
	}

	seen := make(map[string]struct{}, len(c.Tasks))
	for _, t := range c.Tasks {
		if t.Code == "" {
			return fmt.Errorf("%w: task without code", ErrInvalidCatalog)
		}
		if _, dup := seen[t.Code]; dup {
			return fmt.Errorf("%w: duplicate task %q", ErrInvalidCatalog, t.Code)
		}
		seen[t.Code] = struct{}{}
		if t.Target < 1 {
			return fmt.Errorf("%w: task %q target must be positive", ErrInvalidCatalog, t.Code)
		}
		if len(t.Fields) == 0 {
			return fmt.Errorf("%w: task %q has no fields", ErrInvalidCatalog, t.Code)
		}
		if (t.VariantKey == "") != (len(t.Variants) == 0) {
			return fmt.Errorf("%w: task %q variant key and variants must be set together", ErrInvalidCatalog, t.Code)
		}
	}

	rubrics := make(map[string]struct{}, len(c.Rubrics))
	for _, r := range c.Rubrics {
		if _, dup := rubrics[r.Code]; dup {
			return fmt.Errorf("%w: duplicate rubric %q", ErrInvalidCatalog, r.Code)
		}
		rubrics[r.Code] = struct{}{}
		if len(r.Metrics) == 0 {
			return fmt.Errorf("%w: rubric %q has no metrics", ErrInvalidCatalog, r.Code)
		}
		for _, m := range r.Metrics {
			if _, ok := c.Metrics[m]; !ok {
				return fmt.Errorf("%w: rubric %q names unknown metric %q", ErrInvalidCatalog, r.Code, m)
			}
		}
	}
	return nil
}
