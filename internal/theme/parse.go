package theme

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ParseFromFreeText extracts the first top-level JSON object from a model reply,
// which may be wrapped in prose or code fences, and projects it onto known keys.
// Dropped keys are reported through a *ValidationError alongside a valid patch.
func (r *Registry) ParseFromFreeText(text string) (Theme, *ValidationError, error) {
	raw, ok := firstJSONObject(text)
	if !ok {
		return Theme{}, nil, &ParseError{Reason: "no JSON object in response"}
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return Theme{}, nil, &ParseError{Reason: "invalid JSON", Err: err}
	}

	patch, dropped := r.project(doc)
	if patch.IsEmpty() {
		return Theme{}, dropped, &ParseError{Reason: "no theme values in response"}
	}
	return patch, dropped, nil
}

// ParseFromFunctionArgs coerces tool-call arguments into a patch. The caller's
// model is bound to the function schema, so no text scanning happens here.
func (r *Registry) ParseFromFunctionArgs(args string) (Theme, *ValidationError, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(args), &doc); err != nil {
		return Theme{}, nil, &ParseError{Reason: "invalid function arguments", Err: err}
	}
	patch, dropped := r.project(doc)
	if patch.IsEmpty() {
		return Theme{}, dropped, &ParseError{Reason: "function arguments carry no theme values"}
	}
	return patch, dropped, nil
}

// Project keeps only registry keys of an already-typed theme.
func (r *Registry) Project(t Theme) (Theme, *ValidationError) {
	doc := map[string]any{}
	for _, category := range Categories {
		section := t.Section(category)
		if section == nil {
			continue
		}
		values := make(map[string]any, len(section))
		for k, v := range section {
			values[k] = v
		}
		doc[string(category)] = values
	}
	return r.project(doc)
}

func (r *Registry) project(doc map[string]any) (Theme, *ValidationError) {
	allowed := r.keySet()
	var patch Theme
	var dropped []string

	for name, value := range doc {
		category := Category(name)
		keys, ok := allowed[category]
		if !ok {
			dropped = append(dropped, name)
			continue
		}
		section, ok := value.(map[string]any)
		if !ok {
			dropped = append(dropped, name)
			continue
		}
		for key, v := range section {
			if !keys[key] {
				dropped = append(dropped, dottedKey(category, key))
				continue
			}
			str, ok := stringValue(v)
			if !ok {
				dropped = append(dropped, dottedKey(category, key))
				continue
			}
			patch.set(category, key, str)
		}
	}

	if len(dropped) == 0 {
		return patch, nil
	}
	sort.Strings(dropped)
	return patch, &ValidationError{Dropped: dropped}
}

func stringValue(v any) (string, bool) {
	switch value := v.(type) {
	case string:
		trimmed := strings.TrimSpace(value)
		return trimmed, trimmed != ""
	case float64:
		return fmt.Sprintf("%gpx", value), true
	default:
		return "", false
	}
}

// firstJSONObject returns the first balanced {...} substring, honoring strings
// and escapes so braces inside values do not end the scan early.
func firstJSONObject(text string) (string, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end, ok := matchBrace(text, start); ok {
			candidate := text[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
