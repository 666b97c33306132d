package components

import (
	"fmt"
	"strings"

	"github.com/screenwatch/screenwatch/internal/tui/styles"
)

// EmptyState represents an empty state message with optional suggestions.
type EmptyState struct {
	Title       string
	Subtitle    string
	Suggestions []Suggestion
}

// Suggestion is a key or command the user can try.
type Suggestion struct {
	Command     string
	Description string
}

// Render renders the empty state with the given styles.
func (e EmptyState) Render(styleSet styles.Styles) string {
	lines := []string{styleSet.Muted.Render(e.Title)}
	if e.Subtitle != "" {
		lines = append(lines, styleSet.Muted.Render(e.Subtitle))
	}
	for _, s := range e.Suggestions {
		line := fmt.Sprintf("  %s", styleSet.Accent.Render(s.Command))
		if s.Description != "" {
			line += styleSet.Muted.Render(fmt.Sprintf("  # %s", s.Description))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// EmptyDeaths is shown before any death is recorded in the session.
func EmptyDeaths() EmptyState {
	return EmptyState{
		Title:    "No deaths recorded this session",
		Subtitle: "Deaths are logged when the DEAD screen appears.",
	}
}

// NoSession is shown before the first start.
func NoSession() EmptyState {
	return EmptyState{
		Title: "No active session",
		Suggestions: []Suggestion{
			{Command: "F5", Description: "start scanning and open a session"},
			{Command: "F1", Description: "run a single scan"},
		},
	}
}
