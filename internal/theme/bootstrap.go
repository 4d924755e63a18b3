package theme

import (
	"encoding/json"
	"strings"
)

// StyleRoot is anything variables can be written to before the full runtime exists.
type StyleRoot interface {
	SetProperty(name, value string)
}

// Bootstrap applies a persisted snapshot straight onto a style root. It runs before
// the Manager is built, so it only needs the dotted-key map; a missing or corrupt
// value leaves the defaults in place. It returns how many variables were set.
func Bootstrap(root StyleRoot, vars map[string]string, persisted string) int {
	values := decodePersisted(vars, persisted)
	for name, value := range values {
		root.SetProperty(name, value)
	}
	return len(values)
}

// InlineStyle renders the :root rule for the page head so the first paint already
// carries the saved theme.
func InlineStyle(vars map[string]string, defaults map[string]string, persisted string) string {
	merged := make(map[string]string, len(defaults))
	for name, value := range defaults {
		merged[name] = value
	}
	for name, value := range decodePersisted(vars, persisted) {
		merged[name] = value
	}
	return rootRule(merged)
}

func decodePersisted(vars map[string]string, persisted string) map[string]string {
	if strings.TrimSpace(persisted) == "" {
		return nil
	}
	var doc map[string]map[string]string
	if err := json.Unmarshal([]byte(persisted), &doc); err != nil {
		return nil
	}
	values := map[string]string{}
	for category, section := range doc {
		for key, value := range section {
			name, ok := vars[category+"."+key]
			if !ok || strings.TrimSpace(value) == "" {
				continue
			}
			values[name] = strings.TrimSpace(value)
		}
	}
	return values
}
