package theme

import (
	"strings"
	"testing"
)

type recordingRoot map[string]string

func (r recordingRoot) SetProperty(name, value string) {
	r[name] = value
}

func TestBootstrap(t *testing.T) {
	vars := DefaultRegistry().StyleVariableMap()

	tests := []struct {
		name      string
		persisted string
		want      map[string]string
	}{
		{name: "empty", persisted: "", want: map[string]string{}},
		{name: "corrupt", persisted: "{{{", want: map[string]string{}},
		{name: "wrong_shape", persisted: `{"colors":"#000"}`, want: map[string]string{}},
		{
			name:      "saved_theme",
			persisted: `{"colors":{"background":"#101010","unknown":"#fff"},"borderRadius":{"small":"0"}}`,
			want:      map[string]string{"--background": "#101010", "--radius-sm": "0"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			root := recordingRoot{}
			if got := Bootstrap(root, vars, test.persisted); got != len(test.want) {
				t.Fatalf("Bootstrap() = %d, want %d", got, len(test.want))
			}
			for name, value := range test.want {
				if root[name] != value {
					t.Fatalf("%s = %q, want %q", name, root[name], value)
				}
			}
		})
	}
}

func TestBootstrap_MatchesManagerLoad(t *testing.T) {
	registry := DefaultRegistry()
	defaults, err := LoadDefaults(registry)
	if err != nil {
		t.Fatalf("LoadDefaults() error = %v", err)
	}
	persisted := `{"colors":{"accent":"#ff0000"},"shadows":{"large":"none"}}`

	surface := NewSurface(defaults)
	Bootstrap(surface, registry.StyleVariableMap(), persisted)

	m := NewManager(registry, surface, nil)
	snapshot := m.Snapshot()
	if snapshot.Colors["accent"] != "#ff0000" || snapshot.Shadows["large"] != "none" {
		t.Fatalf("snapshot after bootstrap = %+v", snapshot)
	}
}

func TestInlineStyle(t *testing.T) {
	vars := map[string]string{"colors.background": "--background"}
	defaults := map[string]string{"--background": "#ffffff", "--foreground": "#000000"}

	style := InlineStyle(vars, defaults, `{"colors":{"background":"#222222"}}`)
	if style != ":root{--background:#222222;--foreground:#000000;}" {
		t.Fatalf("InlineStyle() = %q", style)
	}

	fallback := InlineStyle(vars, defaults, "not json")
	if !strings.Contains(fallback, "--background:#ffffff;") {
		t.Fatalf("InlineStyle() with corrupt value = %q", fallback)
	}
}
