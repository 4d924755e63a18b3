package theme

var defaultDefinitions = map[Category][]Definition{
	CategoryColors: {
		{Key: "background", Variable: "--background", Description: "Page background color (hex)."},
		{Key: "foreground", Variable: "--foreground", Description: "Default text color on the background (hex)."},
		{Key: "card", Variable: "--card", Description: "Background of cards and panels (hex)."},
		{Key: "cardForeground", Variable: "--card-foreground", Description: "Text color inside cards (hex)."},
		{Key: "primary", Variable: "--primary", Description: "Main brand color for buttons and links (hex)."},
		{Key: "primaryForeground", Variable: "--primary-foreground", Description: "Text color on primary surfaces (hex)."},
		{Key: "secondary", Variable: "--secondary", Description: "Secondary button and chip background (hex)."},
		{Key: "secondaryForeground", Variable: "--secondary-foreground", Description: "Text color on secondary surfaces (hex)."},
		{Key: "muted", Variable: "--muted", Description: "Subdued backgrounds such as table stripes (hex)."},
		{Key: "mutedForeground", Variable: "--muted-foreground", Description: "Low-emphasis text color (hex)."},
		{Key: "accent", Variable: "--accent", Description: "Hover and highlight background (hex)."},
		{Key: "accentForeground", Variable: "--accent-foreground", Description: "Text color on accent surfaces (hex)."},
		{Key: "destructive", Variable: "--destructive", Description: "Color for errors and destructive actions (hex)."},
		{Key: "border", Variable: "--border", Description: "Border and divider color (hex)."},
		{Key: "input", Variable: "--input", Description: "Form input border color (hex)."},
		{Key: "ring", Variable: "--ring", Description: "Focus ring color (hex)."},
	},
	CategoryBorderRadius: {
		{Key: "small", Variable: "--radius-sm", Description: "Radius for badges and inputs (CSS length, e.g. 0.25rem)."},
		{Key: "medium", Variable: "--radius-md", Description: "Radius for buttons and cards (CSS length, e.g. 0.5rem)."},
		{Key: "large", Variable: "--radius-lg", Description: "Radius for dialogs and large panels (CSS length, e.g. 1rem)."},
	},
	CategoryShadows: {
		{Key: "small", Variable: "--shadow-sm", Description: "Subtle elevation for inputs (CSS box-shadow)."},
		{Key: "medium", Variable: "--shadow-md", Description: "Elevation for cards and menus (CSS box-shadow)."},
		{Key: "large", Variable: "--shadow-lg", Description: "Elevation for dialogs (CSS box-shadow)."},
	},
}
