// Package styles holds the watch view's colour themes.
package styles

import "sort"

// ThemeTokens defines the semantic color roles for the TUI.
type ThemeTokens struct {
	Text      string
	TextMuted string
	Border    string
	Accent    string
	Focus     string
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
		Border:    "#223043",
		Accent:    "#5B8DEF",
		Focus:     "#7AA2F7",
		Success:   "#3FB950",
		Warning:   "#D29922",
		Error:     "#F85149",
		Info:      "#58A6FF",
	},
}

// HighContrastTheme favors visibility over a busy game overlay.
var HighContrastTheme = Theme{
	Name: "high-contrast",
	Tokens: ThemeTokens{
		Text:      "#FFFFFF",
		TextMuted: "#C0C0C0",
		Border:    "#FFFFFF",
		Accent:    "#00FFFF",
		Focus:     "#FFFF00",
		Success:   "#00FF00",
		Warning:   "#FFB000",
		Error:     "#FF3030",
		Info:      "#00BFFF",
	},
}

// Themes lists available palettes by name.
var Themes = map[string]Theme{
	DefaultTheme.Name:      DefaultTheme,
	HighContrastTheme.Name: HighContrastTheme,
}

// ThemeNames returns the available theme names, sorted.
func ThemeNames() []string {
	names := make([]string, 0, len(Themes))
	for name := range Themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
