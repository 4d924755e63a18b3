package theme

// FlashBang is the fixed bright theme used for the light-mode idiom.
func FlashBang() Theme {
	return Theme{
		Colors: map[string]string{
			"background":          "#ffffff",
			"foreground":          "#000000",
			"card":                "#ffffff",
			"cardForeground":      "#000000",
			"primary":             "#111111",
			"primaryForeground":   "#ffffff",
			"secondary":           "#f4f4f5",
			"secondaryForeground": "#111111",
			"muted":               "#fafafa",
			"mutedForeground":     "#52525b",
			"accent":              "#f4f4f5",
			"accentForeground":    "#111111",
			"destructive":         "#dc2626",
			"border":              "#e4e4e7",
			"input":               "#e4e4e7",
			"ring":                "#111111",
		},
	}
}
