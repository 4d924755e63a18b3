package theme

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"strings"
)

//go:embed assets/defaults.css
var assetsFS embed.FS

const defaultsPath = "assets/defaults.css"

// LoadDefaults reads the embedded stylesheet and returns its custom properties.
// Every registry variable must have a default.
func LoadDefaults(registry *Registry) (map[string]string, error) {
	file, err := assetsFS.Open(defaultsPath)
	if err != nil {
		return nil, fmt.Errorf("open embedded defaults: %w", err)
	}
	defer file.Close()

	defaults, err := parseCustomProperties(file)
	if err != nil {
		return nil, err
	}

	for _, name := range registry.Variables() {
		if _, ok := defaults[name]; !ok {
			return nil, fmt.Errorf("defaults stylesheet has no value for %s", name)
		}
	}
	return defaults, nil
}

// parseCustomProperties reads "--name: value;" declarations, one per line.
func parseCustomProperties(r io.Reader) (map[string]string, error) {
	scanner := bufio.NewScanner(r)
	props := map[string]string{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "--") {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("defaults line %d: missing ':'", lineNo)
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), ";"))
		if value == "" {
			return nil, fmt.Errorf("defaults line %d: empty value for %s", lineNo, name)
		}
		if _, dup := props[name]; dup {
			return nil, fmt.Errorf("defaults line %d: duplicate %s", lineNo, name)
		}
		props[name] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read defaults: %w", err)
	}
	return props, nil
}
