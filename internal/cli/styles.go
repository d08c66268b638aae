package cli

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ThemeTokens defines the semantic color roles for terminal output.
type ThemeTokens struct {
	Text      string
	TextMuted string
	Accent    string
	Success   string
	Warning   string
	Error     string
	Info      string
}

// Theme bundles a palette with a name.
type Theme struct {
	Name   string
	Tokens ThemeTokens
}

// DefaultTheme is the baseline palette.
var DefaultTheme = Theme{
	Name: "default",
	Tokens: ThemeTokens{
		Text:      "#E6EDF3",
		TextMuted: "#8B9AAE",
		Accent:    "#5B8DEF",
		Success:   "#3FB950",
		Warning:   "#D29922",
		Error:     "#F85149",
		Info:      "#58A6FF",
	},
}

// HighContrastTheme is selected with PROMPT_THEME=high-contrast.
var HighContrastTheme = Theme{
	Name: "high-contrast",
	Tokens: ThemeTokens{
		Text:      "#FFFFFF",
		TextMuted: "#C0C0C0",
		Accent:    "#00FFFF",
		Success:   "#00FF00",
		Warning:   "#FFFF00",
		Error:     "#FF0000",
		Info:      "#00BFFF",
	},
}

// Themes lists available palettes by name.
var Themes = map[string]Theme{
	DefaultTheme.Name:      DefaultTheme,
	HighContrastTheme.Name: HighContrastTheme,
}

// Styles contains lipgloss styles derived from theme tokens.
type Styles struct {
	Theme   Theme
	Title   lipgloss.Style
	Heading lipgloss.Style
	Muted   lipgloss.Style
	Accent  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Panel   lipgloss.Style
}

// BuildStyles converts theme tokens into lipgloss styles.
func BuildStyles(theme Theme) Styles {
	tokens := theme.Tokens
	return Styles{
		Theme:   theme,
		Title:   lipgloss.NewStyle().Foreground(lipgloss.Color(tokens.Text)).Bold(true),
		Heading: lipgloss.NewStyle().Foreground(lipgloss.Color(tokens.Accent)).Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color(tokens.TextMuted)),
		Accent:  lipgloss.NewStyle().Foreground(lipgloss.Color(tokens.Accent)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(tokens.Success)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(tokens.Warning)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(tokens.Error)),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color(tokens.Info)),
		Panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(tokens.TextMuted)).
			Padding(0, 1),
	}
}

func currentStyles() Styles {
	theme, ok := Themes[strings.ToLower(strings.TrimSpace(os.Getenv("PROMPT_THEME")))]
	if !ok {
		theme = DefaultTheme
	}
	return BuildStyles(theme)
}

// colorEnabled reports whether stdout output may carry ANSI styling.
func colorEnabled() bool {
	if noColor {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if IsJSONOutput() || IsJSONLOutput() {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func colorize(text string, style lipgloss.Style) string {
	if !colorEnabled() || text == "" {
		return text
	}
	return style.Render(text)
}

// panel frames body with a rounded border when color is enabled and with a
// plain title line otherwise.
func panel(title, body string) string {
	if !colorEnabled() {
		if title == "" {
			return body
		}
		return "--- " + title + " ---\n" + body
	}
	styles := currentStyles()
	content := body
	if title != "" {
		content = styles.Heading.Render(title) + "\n" + body
	}
	return styles.Panel.Render(content)
}
