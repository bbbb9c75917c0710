package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var errNotObject = errors.New("payload is not a JSON object")

var fenceOpen = regexp.MustCompile("^```[A-Za-z0-9_-]*")

// StripFences removes a surrounding markdown code fence and whitespace.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = fenceOpen.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseDirect decodes s, which must hold exactly one JSON object.
func ParseDirect(s string) (map[string]any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return obj, nil
}

// ParseQuoteRepaired rewrites single-quoted strings and decodes the result.
func ParseQuoteRepaired(s string) (map[string]any, error) {
	return ParseDirect(RepairQuotes(s))
}

// ParsePunctuationRepaired inserts missing separators, drops trailing commas
// and decodes the result.
func ParsePunctuationRepaired(s string) (map[string]any, error) {
	return ParseDirect(RepairPunctuation(s))
}

// ParseBraces decodes the span from the first '{' to the last '}'.
func ParseBraces(s string) (map[string]any, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no brace-delimited object found")
	}
	return ParseDirect(s[start : end+1])
}

// RepairQuotes turns single-quoted strings that sit outside double-quoted
// strings into double-quoted ones. Double quotes inside them are escaped and
// escaped single quotes are unescaped.
func RepairQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)

	const (
		outside = iota
		inDouble
		inSingle
	)
	state := outside
	escaped := false

	for _, r := range s {
		switch state {
		case outside:
			switch r {
			case '"':
				state = inDouble
				b.WriteRune(r)
			case '\'':
				state = inSingle
				b.WriteRune('"')
			default:
				b.WriteRune(r)
			}
		case inDouble:
			b.WriteRune(r)
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				state = outside
			}
		case inSingle:
			switch {
			case escaped:
				escaped = false
				if r == '\'' {
					b.WriteRune('\'')
				} else {
					b.WriteRune('\\')
					b.WriteRune(r)
				}
			case r == '\\':
				escaped = true
			case r == '\'':
				state = outside
				b.WriteRune('"')
			case r == '"':
				b.WriteString(`\"`)
			default:
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// RepairPunctuation inserts a comma wherever a value ends and another value
// or member begins with only whitespace between them, and removes commas that
// directly precede a closing brace or bracket. String contents are untouched.
func RepairPunctuation(s string) string {
	out := make([]byte, 0, len(s)+16)
	afterValue := false

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '"':
			if afterValue {
				out = insertComma(out)
			}
			j := scanString(s, i)
			out = append(out, s[i:j]...)
			i = j
			afterValue = true
		case c == '{' || c == '[':
			if afterValue {
				out = insertComma(out)
			}
			out = append(out, c)
			i++
			afterValue = false
		case c == '}' || c == ']':
			out = dropTrailingComma(out)
			out = append(out, c)
			i++
			afterValue = true
		case c == ':' || c == ',':
			out = append(out, c)
			i++
			afterValue = false
		case isSpace(c):
			out = append(out, c)
			i++
		case isLiteralByte(c):
			if afterValue {
				out = insertComma(out)
			}
			j := i
			for j < len(s) && isLiteralByte(s[j]) {
				j++
			}
			out = append(out, s[i:j]...)
			i = j
			afterValue = true
		default:
			out = append(out, c)
			i++
		}
	}
	return string(out)
}

// scanString returns the index just past the double-quoted string at s[i].
// An unterminated string runs to the end of s.
func scanString(s string, i int) int {
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '"':
			return j + 1
		}
	}
	return len(s)
}

// insertComma places a comma right after the last non-space byte.
func insertComma(out []byte) []byte {
	k := len(out)
	for k > 0 && isSpace(out[k-1]) {
		k--
	}
	out = append(out, 0)
	copy(out[k+1:], out[k:])
	out[k] = ','
	return out
}

func dropTrailingComma(out []byte) []byte {
	k := len(out) - 1
	for k >= 0 && isSpace(out[k]) {
		k--
	}
	if k >= 0 && out[k] == ',' {
		return append(out[:k], out[k+1:]...)
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isLiteralByte(c byte) bool {
	return c == '-' || c == '+' || c == '.' ||
		(c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
