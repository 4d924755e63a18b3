package theme

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Colors often back larger UI elements, not body text, so we use the AA large-text threshold.
const wcagAAMinContrastRatio = 3.0

// lightBackgroundLuminance splits light from dark backgrounds.
const lightBackgroundLuminance = 0.5

var hexColorRegex = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func IsHexColor(value string) bool {
	return hexColorRegex.MatchString(strings.TrimSpace(value))
}

// Advisories lists best-effort warnings for a patch. They are logged, never enforced.
func Advisories(patch Theme) []string {
	var notes []string
	for _, key := range sortedKeys(patch.Colors) {
		if !IsHexColor(patch.Colors[key]) {
			notes = append(notes, fmt.Sprintf("colors.%s: %q is not a hex color", key, patch.Colors[key]))
		}
	}

	pairs := [][2]string{
		{"background", "foreground"},
		{"card", "cardForeground"},
		{"primary", "primaryForeground"},
		{"secondary", "secondaryForeground"},
		{"accent", "accentForeground"},
	}
	for _, pair := range pairs {
		bg, okBG := patch.Colors[pair[0]]
		fg, okFG := patch.Colors[pair[1]]
		if !okBG || !okFG {
			continue
		}
		ratio, err := contrastRatio(fg, bg)
		if err != nil {
			continue
		}
		if ratio < wcagAAMinContrastRatio {
			notes = append(notes, fmt.Sprintf("colors.%s on colors.%s has contrast %.2f, below %.1f", pair[1], pair[0], ratio, wcagAAMinContrastRatio))
		}
	}
	return notes
}

// IsLight reports whether a theme's background reads as light. The second
// return is false when the background is absent or not a color.
func IsLight(t Theme) (bool, bool) {
	bg, ok := t.Colors["background"]
	if !ok {
		return false, false
	}
	l, err := relativeLuminance(bg)
	if err != nil {
		return false, false
	}
	return l >= lightBackgroundLuminance, true
}

func contrastRatio(textColor, backgroundColor string) (float64, error) {
	textL, err := relativeLuminance(textColor)
	if err != nil {
		return 0, err
	}
	backgroundL, err := relativeLuminance(backgroundColor)
	if err != nil {
		return 0, err
	}
	lightest := math.Max(textL, backgroundL)
	darkest := math.Min(textL, backgroundL)
	return (lightest + 0.05) / (darkest + 0.05), nil
}

func relativeLuminance(hexColor string) (float64, error) {
	hexColor = strings.TrimSpace(hexColor)
	if !hexColorRegex.MatchString(hexColor) {
		return 0, fmt.Errorf("invalid hex color: %s", hexColor)
	}
	c, err := colorful.Hex(hexColor)
	if err != nil {
		return 0, fmt.Errorf("invalid hex color: %s", hexColor)
	}
	r, g, b := c.LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b, nil
}
