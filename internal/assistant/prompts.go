package assistant

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/codr1/releaseboard/internal/theme"
)

// themeChangePrefix marks a free-text intent reply that asks for a theme change.
const themeChangePrefix = "THEME:"

const themePolicy = `Theme rules:
- A color the user states explicitly always wins over a color taken from an attached image.
- When the user attaches an image and does not say light or dark, pick light or dark from the image's overall brightness.
- Keep text readable against its background.
- Only offer to revert after a bright, light theme. Never offer it after a dark theme.`

var lightIdiom = regexp.MustCompile(`(?i)\bflash[\s-]*bang\b|\bblind me\b|\blights on\b`)

// isLightIdiom reports whether the message is the light-mode trigger phrase.
func isLightIdiom(msg Message) bool {
	return lightIdiom.MatchString(msg.Content)
}

func currentThemeJSON(t theme.Theme) string {
	if t.IsEmpty() {
		return "{}"
	}
	data, err := json.Marshal(t)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func structuredSystemPrompt(current theme.Theme) string {
	var b strings.Builder
	b.WriteString("You help users style a release dashboard and chat about it.\n")
	b.WriteString("Call update_theme with a complete theme when the user asks for a visual change. ")
	b.WriteString("Call suggest_action with action \"revert\" to offer undoing a change. ")
	b.WriteString("If the user is just talking, answer briefly and call no tools.\n\n")
	b.WriteString(themePolicy)
	b.WriteString("\n\nCurrent theme: ")
	b.WriteString(currentThemeJSON(current))
	return b.String()
}

func intentSystemPrompt(current theme.Theme) string {
	var b strings.Builder
	b.WriteString("You help users style a release dashboard and chat about it.\n")
	b.WriteString("If the latest message asks for a visual change, reply with exactly one line: ")
	b.WriteString(themeChangePrefix)
	b.WriteString(" followed by one sentence describing the complete new theme, including light or dark and the key colors.\n")
	b.WriteString("Otherwise reply conversationally in one or two sentences and do not start with ")
	b.WriteString(themeChangePrefix)
	b.WriteString("\n\n")
	b.WriteString(themePolicy)
	b.WriteString("\n\nCurrent theme: ")
	b.WriteString(currentThemeJSON(current))
	return b.String()
}

func synthesisSystemPrompt(registry *theme.Registry) string {
	var b strings.Builder
	b.WriteString("Turn the theme description into JSON. Respond with a single JSON object and nothing else.\n")
	b.WriteString("Use CSS color values in hex form, CSS lengths for radii and CSS box-shadow values for shadows.\n\n")
	b.WriteString(registry.PromptDescription())
	for i, example := range synthesisExamples(registry) {
		fmt.Fprintf(&b, "\nExample %d\nDescription: %s\nJSON: %s\n", i+1, example.description, example.json)
	}
	return b.String()
}

type workedExample struct {
	description string
	json        string
}

var darkExample = theme.Theme{
	Colors: map[string]string{
		"background":          "#0b1020",
		"foreground":          "#e2e8f0",
		"card":                "#111827",
		"cardForeground":      "#e2e8f0",
		"primary":             "#22d3ee",
		"primaryForeground":   "#0b1020",
		"secondary":           "#1f2937",
		"secondaryForeground": "#e2e8f0",
		"muted":               "#1e293b",
		"mutedForeground":     "#94a3b8",
		"accent":              "#164e63",
		"accentForeground":    "#ecfeff",
		"destructive":         "#f87171",
		"border":              "#334155",
		"input":               "#334155",
		"ring":                "#22d3ee",
	},
	BorderRadius: map[string]string{"small": "0.25rem", "medium": "0.5rem", "large": "0.75rem"},
	Shadows: map[string]string{
		"small":  "0 1px 2px rgba(0, 0, 0, 0.6)",
		"medium": "0 4px 12px rgba(0, 0, 0, 0.6)",
		"large":  "0 12px 32px rgba(0, 0, 0, 0.7)",
	},
}

func lightExample() theme.Theme {
	t := theme.FlashBang()
	t.BorderRadius = map[string]string{"small": "0", "medium": "0", "large": "0"}
	t.Shadows = map[string]string{"small": "none", "medium": "none", "large": "none"}
	return t
}

// synthesisExamples renders one dark and one light reply, projected through the
// registry so they only ever name keys the parser accepts.
func synthesisExamples(registry *theme.Registry) []workedExample {
	sources := []struct {
		description string
		theme       theme.Theme
	}{
		{"A dark navy theme with cyan accents and soft rounded corners.", darkExample},
		{"A stark bright theme, black text on white, square corners and no shadows.", lightExample()},
	}

	examples := make([]workedExample, 0, len(sources))
	for _, source := range sources {
		projected, _ := registry.Project(source.theme)
		if projected.IsEmpty() {
			continue
		}
		data, err := json.Marshal(projected)
		if err != nil {
			continue
		}
		examples = append(examples, workedExample{description: source.description, json: string(data)})
	}
	return examples
}

// parseIntent splits a free-text intent reply into a change description or a chat reply.
func parseIntent(content string) (description string, isChange bool) {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) >= len(themeChangePrefix) && strings.EqualFold(trimmed[:len(themeChangePrefix)], themeChangePrefix) {
		return strings.TrimSpace(trimmed[len(themeChangePrefix):]), true
	}
	return trimmed, false
}
