package theme

import (
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai/jsonschema"
)

func TestStyleVariableMapIsInjective(t *testing.T) {
	vars := DefaultRegistry().StyleVariableMap()
	if len(vars) == 0 {
		t.Fatalf("StyleVariableMap() is empty")
	}

	owners := map[string]string{}
	for dotted, variable := range vars {
		if other, ok := owners[variable]; ok {
			t.Fatalf("%s and %s both resolve to %s", other, dotted, variable)
		}
		owners[variable] = dotted
	}
}

func TestNewRegistry_RejectsInvalidDefinitions(t *testing.T) {
	tests := []struct {
		name string
		defs map[Category][]Definition
		want string
	}{
		{
			name: "shared_variable",
			defs: map[Category][]Definition{
				CategoryColors:  {{Key: "a", Variable: "--x"}},
				CategoryShadows: {{Key: "b", Variable: "--x"}},
			},
			want: "both map to --x",
		},
		{
			name: "duplicate_key",
			defs: map[Category][]Definition{
				CategoryColors: {{Key: "a", Variable: "--a"}, {Key: "a", Variable: "--b"}},
			},
			want: "duplicate key",
		},
		{
			name: "not_custom_property",
			defs: map[Category][]Definition{
				CategoryColors: {{Key: "a", Variable: "color"}},
			},
			want: "must be a CSS custom property",
		},
		{
			name: "unknown_category",
			defs: map[Category][]Definition{
				Category("typography"): {{Key: "a", Variable: "--a"}},
			},
			want: "unknown category",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewRegistry(test.defs)
			if err == nil {
				t.Fatalf("NewRegistry() error = nil, want %q", test.want)
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Fatalf("NewRegistry() error = %v, want %q", err, test.want)
			}
		})
	}
}

func TestEnumerate(t *testing.T) {
	r := DefaultRegistry()

	colors := r.Enumerate(CategoryColors)
	if len(colors) == 0 || colors[0].Key != "background" {
		t.Fatalf("Enumerate(colors) = %+v, want background first", colors)
	}
	if got := r.Enumerate(Category("typography")); len(got) != 0 {
		t.Fatalf("Enumerate(typography) = %+v, want empty", got)
	}

	colors[0].Key = "mutated"
	if r.Enumerate(CategoryColors)[0].Key != "background" {
		t.Fatalf("Enumerate() leaked internal slice")
	}
}

func TestPromptDescription_MentionsEveryKey(t *testing.T) {
	r := DefaultRegistry()
	prompt := r.PromptDescription()
	for _, category := range Categories {
		if !strings.Contains(prompt, `"`+string(category)+`"`) {
			t.Fatalf("prompt missing category %s", category)
		}
		for _, def := range r.Enumerate(category) {
			if !strings.Contains(prompt, `"`+def.Key+`"`) {
				t.Fatalf("prompt missing key %s.%s", category, def.Key)
			}
		}
	}
}

func TestFunctionSchema(t *testing.T) {
	r := DefaultRegistry()

	partial := r.FunctionSchema(false)
	if partial.Type != jsonschema.Object {
		t.Fatalf("schema type = %s, want object", partial.Type)
	}
	if len(partial.Required) != 0 {
		t.Fatalf("partial schema requires %v", partial.Required)
	}
	colors, ok := partial.Properties[string(CategoryColors)]
	if !ok {
		t.Fatalf("schema missing colors section")
	}
	leaf := colors.Properties["accent"]
	if leaf.Type != jsonschema.String || leaf.Description == "" {
		t.Fatalf("accent leaf = %+v, want described string", leaf)
	}

	complete := r.FunctionSchema(true)
	if len(complete.Required) != len(Categories) {
		t.Fatalf("complete schema requires %v", complete.Required)
	}
	if got, want := len(complete.Properties[string(CategoryShadows)].Required), len(r.Enumerate(CategoryShadows)); got != want {
		t.Fatalf("shadows required = %d, want %d", got, want)
	}
	if len(complete.Properties) != len(Categories) {
		t.Fatalf("schema sections = %d, want %d", len(complete.Properties), len(Categories))
	}
	for _, section := range []string{"typography", "borders"} {
		if _, ok := complete.Properties[section]; ok {
			t.Fatalf("schema exposes %s, which has no style variables", section)
		}
	}
}
