package ui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color palette for the UI
type Theme struct {
	// Primary colors
	Label Color // assistant label
	Info  Color // banners, "Chat started!"

	// Semantic colors
	Success Color // loaded model, tool results
	Error   Color // turn errors
	Warning Color // cache warnings, interrupts
	Muted   Color // stats, system prompt, thinking
	Text    Color // primary text

	// UI element colors
	Spinner Color // progress indicator frame
	Prompt  Color // "You: " input prompt
}

// Color is a lipgloss color; an empty value leaves the terminal default.
type Color = lipgloss.Color

// DefaultTheme returns the default color theme (the 16 ANSI colors)
func DefaultTheme() *Theme {
	return &Theme{
		Label:   lipgloss.Color("5"), // magenta
		Info:    lipgloss.Color("4"), // blue
		Success: lipgloss.Color("2"), // green
		Error:   lipgloss.Color("1"), // red
		Warning: lipgloss.Color("3"), // yellow
		Muted:   lipgloss.Color(""),  // faint only
		Text:    lipgloss.Color(""),
		Spinner: lipgloss.Color(""),
		Prompt:  lipgloss.Color(""),
	}
}

// ThemeConfig mirrors the config.ThemeConfig for applying overrides
type ThemeConfig struct {
	Preset  string
	Label   string
	Info    string
	Success string
	Error   string
	Warning string
	Muted   string
	Text    string
	Spinner string
	Prompt  string
}

// ThemeFromConfig creates a theme with config overrides applied.
// The preset, when known, is applied first.
func ThemeFromConfig(cfg ThemeConfig) *Theme {
	theme := DefaultTheme()
	if preset, ok := PresetThemes[cfg.Preset]; ok {
		applyThemeConfig(theme, preset.Config)
	}
	applyThemeConfig(theme, cfg)
	return theme
}

func applyThemeConfig(theme *Theme, cfg ThemeConfig) {
	set := func(dst *Color, v string) {
		if v != "" {
			*dst = lipgloss.Color(v)
		}
	}
	set(&theme.Label, cfg.Label)
	set(&theme.Info, cfg.Info)
	set(&theme.Success, cfg.Success)
	set(&theme.Error, cfg.Error)
	set(&theme.Warning, cfg.Warning)
	set(&theme.Muted, cfg.Muted)
	set(&theme.Text, cfg.Text)
	set(&theme.Spinner, cfg.Spinner)
	set(&theme.Prompt, cfg.Prompt)
}

// currentTheme is the active theme instance
var currentTheme = DefaultTheme()

// GetTheme returns the current active theme
func GetTheme() *Theme {
	return currentTheme
}

// SetTheme sets the current active theme
func SetTheme(t *Theme) {
	currentTheme = t
}

// InitTheme initializes the theme from config
func InitTheme(cfg ThemeConfig) {
	SetTheme(ThemeFromConfig(cfg))
}

// Styles returns styled text helpers bound to a renderer
type Styles struct {
	// Text styles
	Label    lipgloss.Style
	Info     lipgloss.Style
	Loading  lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Muted    lipgloss.Style
	Thinking lipgloss.Style
	Bold     lipgloss.Style

	// UI element styles
	Spinner lipgloss.Style
	Prompt  lipgloss.Style
}

// NewStyles creates a new Styles instance for the given output
func NewStyles(output io.Writer) *Styles {
	return NewStyledWithTheme(output, currentTheme)
}

// NewStyledWithTheme creates styles with a specific theme
func NewStyledWithTheme(output io.Writer, theme *Theme) *Styles {
	r := lipgloss.NewRenderer(output)

	return &Styles{
		Label: r.NewStyle().
			Bold(true).
			Foreground(theme.Label),

		Info: r.NewStyle().
			Bold(true).
			Foreground(theme.Info),

		Loading: r.NewStyle().
			Bold(true).
			Foreground(theme.Success),

		Success: r.NewStyle().
			Foreground(theme.Success),

		Error: r.NewStyle().
			Foreground(theme.Error),

		Warning: r.NewStyle().
			Foreground(theme.Warning),

		Muted: r.NewStyle().
			Faint(true).
			Foreground(theme.Muted),

		Thinking: r.NewStyle().
			Faint(true).
			Italic(true).
			Foreground(theme.Muted),

		Bold: r.NewStyle().
			Bold(true),

		Spinner: r.NewStyle().
			Foreground(theme.Spinner),

		Prompt: r.NewStyle().
			Bold(true).
			Foreground(theme.Prompt),
	}
}

// Truncate shortens a string to maxLen with ellipsis
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
