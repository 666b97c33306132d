// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/screenwatch/screenwatch/internal/models"
	"github.com/screenwatch/screenwatch/internal/tui/styles"
)

// RenderStateBadge renders a game state with icon and color.
func RenderStateBadge(styleSet styles.Styles, state models.GameState) string {
	icon, label, style := stateDescriptor(styleSet, state)
	return style.Render(fmt.Sprintf("%s %s", icon, label))
}

func stateDescriptor(styleSet styles.Styles, state models.GameState) (string, string, lipgloss.Style) {
	switch state {
	case models.GameStateInRun:
		return ">", "In run", styleSet.StateActive
	case models.GameStateDead:
		return "X", "Dead", styleSet.StateDanger
	case models.GameStateNetReveal:
		return "!", "Net reveal", styleSet.Info
	case models.GameStateMenu:
		return "=", "Menu", styleSet.Text
	case models.GameStateLoading:
		return "~", "Loading", styleSet.StateWait
	case models.GameStateDisconnected:
		return "ERR", "Disconnected", styleSet.Error
	case models.GameStateUnknown:
		return "?", "Unknown", styleSet.StateIdle
	default:
		return "-", normalizeStateLabel(state), styleSet.Muted
	}
}

func normalizeStateLabel(state models.GameState) string {
	value := strings.TrimSpace(strings.ReplaceAll(strings.ToLower(string(state)), "_", " "))
	if value == "" {
		return "Unknown"
	}
	return strings.ToUpper(value[:1]) + value[1:]
}
