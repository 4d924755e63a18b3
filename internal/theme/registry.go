// internal/theme/registry.go
package theme

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
)

type Category string

const (
	CategoryColors       Category = "colors"
	CategoryBorderRadius Category = "borderRadius"
	CategoryShadows      Category = "shadows"
)

// Categories lists the theme categories in the order they are rendered.
var Categories = []Category{CategoryColors, CategoryBorderRadius, CategoryShadows}

// Definition describes one themeable slot and the CSS custom property it drives.
type Definition struct {
	Key         string
	Variable    string
	Description string
}

// Registry is the authoritative list of themeable variables. It is configuration:
// built once at startup and never mutated afterwards.
type Registry struct {
	definitions map[Category][]Definition
}

func NewRegistry(definitions map[Category][]Definition) (*Registry, error) {
	copied := make(map[Category][]Definition, len(definitions))
	for category, defs := range definitions {
		copied[category] = append([]Definition(nil), defs...)
	}
	r := &Registry{definitions: copied}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// MustRegistry panics when definitions are inconsistent; a bad registry is a
// configuration bug that must stop the process at startup.
func MustRegistry(definitions map[Category][]Definition) *Registry {
	r, err := NewRegistry(definitions)
	if err != nil {
		panic(fmt.Sprintf("theme registry: %v", err))
	}
	return r
}

// DefaultRegistry returns the registry for the dashboard's stylesheet.
func DefaultRegistry() *Registry {
	return MustRegistry(defaultDefinitions)
}

func (r *Registry) Validate() error {
	seenVariables := map[string]string{}
	for category, defs := range r.definitions {
		if !isKnownCategory(category) {
			return fmt.Errorf("unknown category %q", category)
		}
		seenKeys := map[string]bool{}
		for _, def := range defs {
			if strings.TrimSpace(def.Key) == "" {
				return fmt.Errorf("%s: definition key is required", category)
			}
			if !strings.HasPrefix(def.Variable, "--") {
				return fmt.Errorf("%s.%s: variable %q must be a CSS custom property", category, def.Key, def.Variable)
			}
			if seenKeys[def.Key] {
				return fmt.Errorf("%s.%s: duplicate key", category, def.Key)
			}
			seenKeys[def.Key] = true

			dotted := dottedKey(category, def.Key)
			if other, ok := seenVariables[def.Variable]; ok {
				return fmt.Errorf("%s and %s both map to %s", other, dotted, def.Variable)
			}
			seenVariables[def.Variable] = dotted
		}
	}
	return nil
}

// Enumerate returns the ordered definitions of a category.
func (r *Registry) Enumerate(category Category) []Definition {
	return append([]Definition(nil), r.definitions[category]...)
}

// Lookup resolves a category key to its CSS variable.
func (r *Registry) Lookup(category Category, key string) (string, bool) {
	for _, def := range r.definitions[category] {
		if def.Key == key {
			return def.Variable, true
		}
	}
	return "", false
}

// StyleVariableMap maps "category.key" to the CSS variable name.
func (r *Registry) StyleVariableMap() map[string]string {
	vars := make(map[string]string)
	for _, category := range Categories {
		for _, def := range r.definitions[category] {
			vars[dottedKey(category, def.Key)] = def.Variable
		}
	}
	return vars
}

// Variables returns every CSS variable in registry order.
func (r *Registry) Variables() []string {
	var vars []string
	for _, category := range Categories {
		for _, def := range r.definitions[category] {
			vars = append(vars, def.Variable)
		}
	}
	return vars
}

// PromptDescription renders the schema as the plain-text contract used when the
// model has to answer with raw JSON.
func (r *Registry) PromptDescription() string {
	var b strings.Builder
	b.WriteString("The theme is a JSON object with up to three optional sections.\n")
	for _, category := range Categories {
		defs := r.definitions[category]
		if len(defs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%q (%s):\n", string(category), categoryBlurb(category))
		for _, def := range defs {
			fmt.Fprintf(&b, "  - %q: %s\n", def.Key, def.Description)
		}
	}
	return b.String()
}

// FunctionSchema renders the schema as tool parameters. When complete is true every
// leaf is required, which is how the structured router asks for a full theme.
func (r *Registry) FunctionSchema(complete bool) jsonschema.Definition {
	root := jsonschema.Definition{
		Type:       jsonschema.Object,
		Properties: map[string]jsonschema.Definition{},
	}
	for _, category := range Categories {
		defs := r.definitions[category]
		if len(defs) == 0 {
			continue
		}
		section := jsonschema.Definition{
			Type:        jsonschema.Object,
			Description: categoryBlurb(category),
			Properties:  make(map[string]jsonschema.Definition, len(defs)),
		}
		for _, def := range defs {
			section.Properties[def.Key] = jsonschema.Definition{
				Type:        jsonschema.String,
				Description: def.Description,
			}
			if complete {
				section.Required = append(section.Required, def.Key)
			}
		}
		root.Properties[string(category)] = section
		if complete {
			root.Required = append(root.Required, string(category))
		}
	}
	return root
}

// keySet returns the allowed keys per category, used to project untrusted input.
func (r *Registry) keySet() map[Category]map[string]bool {
	keys := make(map[Category]map[string]bool, len(r.definitions))
	for category, defs := range r.definitions {
		set := make(map[string]bool, len(defs))
		for _, def := range defs {
			set[def.Key] = true
		}
		keys[category] = set
	}
	return keys
}

func dottedKey(category Category, key string) string {
	return string(category) + "." + key
}

func isKnownCategory(category Category) bool {
	for _, known := range Categories {
		if known == category {
			return true
		}
	}
	return false
}

func categoryBlurb(category Category) string {
	switch category {
	case CategoryColors:
		return "hex colors like #1f2937"
	case CategoryBorderRadius:
		return "CSS lengths like 0.5rem or 8px"
	case CategoryShadows:
		return "CSS box-shadow values"
	default:
		return ""
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
