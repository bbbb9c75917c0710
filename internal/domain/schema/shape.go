package schema

import (
	"fmt"
	"strings"
)

// Shape is a bit set over the value kinds a field accepts.
type Shape uint8

const (
	Text Shape = 1 << iota
	Number
	Object
	List
)

// Any accepts every kind a record value can take except booleans and nulls.
const Any = Text | Number | Object | List

var shapeNames = []struct {
	shape Shape
	name  string
}{
	{Text, "text"},
	{Number, "number"},
	{Object, "object"},
	{List, "list"},
}

// Has reports whether every kind in k is accepted.
func (s Shape) Has(k Shape) bool { return k != 0 && s&k == k }

func (s Shape) String() string {
	var parts []string
	for _, n := range shapeNames {
		if s&n.shape != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ParseShape folds kind names into a Shape. An empty list means Any.
func ParseShape(names []string) (Shape, error) {
	if len(names) == 0 {
		return Any, nil
	}
	var s Shape
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		found := false
		for _, n := range shapeNames {
			if n.name == name {
				s |= n.shape
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown shape %q", raw)
		}
	}
	return s, nil
}
