package styles

import "github.com/charmbracelet/lipgloss"

// Styles contains lipgloss styles derived from theme tokens.
type Styles struct {
	Theme       Theme
	Title       lipgloss.Style
	Text        lipgloss.Style
	Muted       lipgloss.Style
	Accent      lipgloss.Style
	Panel       lipgloss.Style
	Border      lipgloss.Style
	Success     lipgloss.Style
	Warning     lipgloss.Style
	Error       lipgloss.Style
	Info        lipgloss.Style
	Key         lipgloss.Style
	StateIdle   lipgloss.Style
	StateActive lipgloss.Style
	StateDanger lipgloss.Style
	StateWait   lipgloss.Style
}

// DefaultStyles builds styles from the default theme.
func DefaultStyles() Styles {
	return BuildStyles(DefaultTheme)
}

// StylesFor builds styles for a named theme, falling back to the default.
func StylesFor(name string) Styles {
	if theme, ok := Themes[name]; ok {
		return BuildStyles(theme)
	}
	return DefaultStyles()
}

// BuildStyles converts theme tokens into lipgloss styles.
func BuildStyles(theme Theme) Styles {
	tokens := theme.Tokens
	color := func(value string) lipgloss.Color { return lipgloss.Color(value) }

	return Styles{
		Theme:       theme,
		Title:       lipgloss.NewStyle().Foreground(color(tokens.Text)).Bold(true),
		Text:        lipgloss.NewStyle().Foreground(color(tokens.Text)),
		Muted:       lipgloss.NewStyle().Foreground(color(tokens.TextMuted)),
		Accent:      lipgloss.NewStyle().Foreground(color(tokens.Accent)),
		Panel:       lipgloss.NewStyle().Foreground(color(tokens.Text)).BorderStyle(lipgloss.RoundedBorder()).BorderForeground(color(tokens.Border)).Padding(0, 1),
		Border:      lipgloss.NewStyle().Foreground(color(tokens.Border)),
		Success:     lipgloss.NewStyle().Foreground(color(tokens.Success)),
		Warning:     lipgloss.NewStyle().Foreground(color(tokens.Warning)),
		Error:       lipgloss.NewStyle().Foreground(color(tokens.Error)),
		Info:        lipgloss.NewStyle().Foreground(color(tokens.Info)),
		Key:         lipgloss.NewStyle().Foreground(color(tokens.Focus)).Bold(true),
		StateIdle:   lipgloss.NewStyle().Foreground(color(tokens.TextMuted)),
		StateActive: lipgloss.NewStyle().Foreground(color(tokens.Success)).Bold(true),
		StateDanger: lipgloss.NewStyle().Foreground(color(tokens.Error)).Bold(true),
		StateWait:   lipgloss.NewStyle().Foreground(color(tokens.Warning)),
	}
}
