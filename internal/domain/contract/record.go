// Package contract checks structured records against the registry: required
// fields and their shapes for generated records, and the closed score schema
// for judge output.
package contract

import (
	"fmt"
	"strings"

	"github.com/okian/edusynth/internal/domain/model"
	"github.com/okian/edusynth/internal/domain/schema"
)

// Validate checks rec against task and returns a shallow copy with alias keys
// renamed to their canonical field names. rec itself is not modified.
func Validate(task schema.Task, rec model.Record) (model.Record, error) {
	out := make(model.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}

	for _, f := range task.Fields {
		canonicalise(out, f)
		v, ok := out[f.Name]
		if !ok {
			return nil, violation(f.Name, ReasonMissing, "")
		}
		if err := checkValue(f.Name, f, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// canonicalise moves the first present alias onto the field name unless the
// canonical key is already there.
func canonicalise(rec model.Record, f schema.FieldSpec) {
	if _, ok := rec[f.Name]; ok {
		return
	}
	for _, alias := range f.Aliases {
		if v, ok := rec[alias]; ok {
			rec[f.Name] = v
			delete(rec, alias)
			return
		}
	}
}

func checkValue(path string, f schema.FieldSpec, v any) error {
	kind := kindOf(v)
	if kind == 0 {
		return violation(path, ReasonMistyped, fmt.Sprintf("unsupported value %T", v))
	}
	if !f.Accepts.Has(kind) {
		return violation(path, ReasonMistyped, fmt.Sprintf("got %s, want %s", kind, f.Accepts))
	}
	if isEmpty(kind, v) {
		return violation(path, ReasonEmpty, "")
	}
	if len(f.Nested) == 0 {
		return nil
	}

	obj, ok := v.(map[string]any)
	if !ok {
		obj = map[string]any(v.(model.Record))
	}
	folded := make(map[string]any, len(obj))
	for k, nv := range obj {
		folded[strings.ToLower(strings.TrimSpace(k))] = nv
	}
	for _, nf := range f.Nested {
		nested := path + "." + nf.Name
		nv, ok := folded[strings.ToLower(nf.Name)]
		if !ok {
			return violation(nested, ReasonMissing, "")
		}
		if err := checkValue(nested, nf, nv); err != nil {
			return err
		}
	}
	return nil
}

// kindOf maps a decoded value to its shape kind; 0 means no accepted kind.
func kindOf(v any) schema.Shape {
	switch v.(type) {
	case string:
		return schema.Text
	case float64, float32, int, int64:
		return schema.Number
	case map[string]any, model.Record:
		return schema.Object
	case []any:
		return schema.List
	default:
		return 0
	}
}

func isEmpty(kind schema.Shape, v any) bool {
	switch kind {
	case schema.Text:
		return strings.TrimSpace(v.(string)) == ""
	case schema.Number:
		return false
	case schema.Object:
		switch o := v.(type) {
		case map[string]any:
			return len(o) == 0
		case model.Record:
			return len(o) == 0
		}
		return true
	case schema.List:
		return len(v.([]any)) == 0
	default:
		panic(fmt.Sprintf("contract: unhandled kind %s", kind))
	}
}
