// Package prompt renders collaborator requests: task instructions from the
// catalog templates and the judge payload with its schema hint.
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/okian/edusynth/internal/catalog"
	"github.com/okian/edusynth/internal/domain/model"
	"github.com/okian/edusynth/internal/domain/schema"
)

// Request is one collaborator call.
type Request struct {
	System string
	User   string
	// JSON asks the provider for a JSON-only response.
	JSON bool
}

// Builder holds parsed templates. It is immutable after New.
type Builder struct {
	language    catalog.Language
	tasks       map[string]*template.Template
	judgeSystem string
	judgeUser   *template.Template
}

// New parses every task template in reg and the judge template.
func New(reg *schema.Registry) (*Builder, error) {
	b := &Builder{
		language:    reg.Language(),
		tasks:       make(map[string]*template.Template),
		judgeSystem: strings.TrimSpace(reg.Judge().System),
	}
	for _, code := range reg.Codes() {
		task, err := reg.Task(code)
		if err != nil {
			return nil, err
		}
		tmpl, err := parse(code, task.Prompt)
		if err != nil {
			return nil, err
		}
		b.tasks[task.Code] = tmpl
	}
	judge, err := parse("judge", reg.Judge().User)
	if err != nil {
		return nil, err
	}
	b.judgeUser = judge
	return b, nil
}

func parse(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse %s template: %w", name, err)
	}
	return tmpl, nil
}

// Task renders the generation request for one work unit.
func (b *Builder) Task(task schema.Task, u model.WorkUnit) (Request, error) {
	tmpl, ok := b.tasks[task.Code]
	if !ok {
		return Request{}, &schema.UnknownTaskError{Code: task.Code}
	}
	data := map[string]any{
		"Subject":  u.Subject,
		"Level":    u.Level,
		"Variant":  u.Variant,
		"Language": b.language,
		"Fields":   task.FieldNames(),
	}
	user, err := render(tmpl, data)
	if err != nil {
		return Request{}, err
	}
	return Request{User: user}, nil
}

// Judge renders the single judge request for anonymized records.
func (b *Builder) Judge(metrics []schema.Metric, labels []string, records []model.JudgeRecord) (Request, error) {
	type item struct {
		Question any            `json:"question"`
		Answers  []model.Answer `json:"model_answers"`
	}
	items := make([]item, len(records))
	for i, r := range records {
		items[i] = item{Question: r.QuestionTemplate, Answers: r.Answers}
	}
	body, err := marshalIndent(items)
	if err != nil {
		return Request{}, err
	}

	data := map[string]any{
		"Metrics":    metrics,
		"Labels":     quoteAll(labels),
		"Data":       body,
		"SchemaHint": SchemaHint(metrics, labels),
	}
	user, err := render(b.judgeUser, data)
	if err != nil {
		return Request{}, err
	}
	return Request{System: b.judgeSystem, User: user, JSON: true}, nil
}

// SchemaHint renders the expected judge output with keys in rubric order:
// {"Answer_1": {"IFTC": "number", ..., "average": "number"}}.
func SchemaHint(metrics []schema.Metric, labels []string) string {
	var sb strings.Builder
	sb.WriteString("{\n")
	for li, l := range labels {
		fmt.Fprintf(&sb, "  %s: {\n", jsonString(l))
		for _, m := range metrics {
			fmt.Fprintf(&sb, "    %s: \"number\",\n", jsonString(m.Code))
		}
		fmt.Fprintf(&sb, "    %s: \"number\"\n  }", jsonString(model.AverageKey))
		if li < len(labels)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}")
	return sb.String()
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s template: %w", tmpl.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func marshalIndent(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode judge data: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func quoteAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = jsonString(s)
	}
	return out
}
