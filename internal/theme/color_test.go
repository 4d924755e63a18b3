package theme

import (
	"strings"
	"testing"
)

func TestIsHexColor(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{name: "empty", value: "", want: false},
		{name: "whitespace", value: "   ", want: false},
		{name: "missing_hash", value: "AABBCC", want: false},
		{name: "short_hex", value: "#ABC", want: true},
		{name: "long_hex", value: "#AABBCCDD", want: false},
		{name: "invalid_char", value: "#AABBCG", want: false},
		{name: "lowercase_hex", value: "#aabbcc", want: true},
		{name: "uppercase_hex", value: "#AABBCC", want: true},
		{name: "trimmed_hex", value: "  #AABBCC  ", want: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsHexColor(test.value); got != test.want {
				t.Fatalf("IsHexColor(%q) = %t, want %t", test.value, got, test.want)
			}
		})
	}
}

func TestIsLight(t *testing.T) {
	if light, ok := IsLight(FlashBang()); !ok || !light {
		t.Fatalf("IsLight(FlashBang()) = %t, %t", light, ok)
	}
	if light, ok := IsLight(Theme{Colors: map[string]string{"background": "#0a0a0a"}}); !ok || light {
		t.Fatalf("IsLight(dark) = %t, %t", light, ok)
	}
	if _, ok := IsLight(Theme{Colors: map[string]string{"background": "navy"}}); ok {
		t.Fatalf("IsLight(named color) reported a result")
	}
}

func TestAdvisories(t *testing.T) {
	notes := Advisories(Theme{Colors: map[string]string{
		"background": "#ffffff",
		"foreground": "#eeeeee",
		"accent":     "hotpink",
	}})
	if len(notes) != 2 {
		t.Fatalf("Advisories() = %v, want 2 notes", notes)
	}
	if !strings.Contains(notes[0], "colors.accent") {
		t.Fatalf("first note = %q, want hex warning", notes[0])
	}
	if !strings.Contains(notes[1], "contrast") {
		t.Fatalf("second note = %q, want contrast warning", notes[1])
	}

	if notes := Advisories(FlashBang()); len(notes) != 0 {
		t.Fatalf("Advisories(FlashBang()) = %v", notes)
	}
}
