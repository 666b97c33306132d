package cli

import (
	"fmt"
	"strings"

	"github.com/screenwatch/screenwatch/internal/models"
)

func formatGameState(state models.GameState) string {
	label, color := statusLabelForState(state)
	return colorize(formatStatusLabel(label, string(state)), color)
}

func statusLabelForState(state models.GameState) (string, string) {
	switch state {
	case models.GameStateInRun:
		return "RUN", colorGreen
	case models.GameStateDead:
		return "DEAD", colorRed
	case models.GameStateNetReveal:
		return "INFO", colorCyan
	case models.GameStateLoading, models.GameStateMenu:
		return "WAIT", colorYellow
	case models.GameStateDisconnected:
		return "ERR", colorMagenta
	default:
		return "--", ""
	}
}

func formatStatusLabel(label, status string) string {
	normalized := strings.TrimSpace(status)
	if normalized != "" {
		normalized = strings.ReplaceAll(normalized, "_", " ")
	}
	if normalized == "" {
		return label
	}
	return fmt.Sprintf("%s %s", label, normalized)
}
