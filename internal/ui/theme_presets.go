package ui

// ThemePreset represents a predefined color theme
type ThemePreset struct {
	Name        string
	Description string
	Config      ThemeConfig
}

// PresetThemeNames defines the display order of themes
var PresetThemeNames = []string{
	"ansi",
	"gruvbox",
	"dracula",
	"nord",
}

// PresetThemes contains all predefined themes
var PresetThemes = map[string]ThemePreset{
	"ansi": {
		Name:        "ansi",
		Description: "Terminal palette colors",
		Config:      ThemeConfig{},
	},
	"gruvbox": {
		Name:        "gruvbox",
		Description: "Retro groove warm colors",
		Config: ThemeConfig{
			Label:   "#d3869b", // purple
			Info:    "#83a598", // aqua
			Success: "#b8bb26", // green
			Error:   "#fb4934", // red
			Warning: "#fabd2f", // yellow
			Muted:   "#928374", // gray
			Text:    "#ebdbb2", // foreground
			Spinner: "#d3869b",
		},
	},
	"dracula": {
		Name:        "dracula",
		Description: "Popular dark theme with purple accents",
		Config: ThemeConfig{
			Label:   "#ff79c6", // pink
			Info:    "#8be9fd", // cyan
			Success: "#50fa7b", // green
			Error:   "#ff5555", // red
			Warning: "#f1fa8c", // yellow
			Muted:   "#6272a4", // comment grey
			Text:    "#f8f8f2", // foreground
			Spinner: "#bd93f9", // purple
		},
	},
	"nord": {
		Name:        "nord",
		Description: "Arctic, north-bluish color palette",
		Config: ThemeConfig{
			Label:   "#b48ead", // aurora purple
			Info:    "#81a1c1", // frost blue
			Success: "#a3be8c", // aurora green
			Error:   "#bf616a", // aurora red
			Warning: "#ebcb8b", // aurora yellow
			Muted:   "#4c566a", // polar night
			Text:    "#eceff4", // snow storm
			Spinner: "#88c0d0", // frost cyan
		},
	},
}
