package components

import (
	"strings"
	"testing"
	"time"

	"github.com/screenwatch/screenwatch/internal/models"
	"github.com/screenwatch/screenwatch/internal/tui/styles"
)

func TestRenderStateBadge(t *testing.T) {
	styleSet := styles.DefaultStyles()

	tests := []struct {
		state models.GameState
		want  string
	}{
		{models.GameStateInRun, "In run"},
		{models.GameStateDead, "Dead"},
		{models.GameStateDisconnected, "Disconnected"},
		{models.GameStateUnknown, "Unknown"},
		{models.GameState("SPECTATING"), "Spectating"},
	}
	for _, tt := range tests {
		if got := RenderStateBadge(styleSet, tt.state); !strings.Contains(got, tt.want) {
			t.Errorf("RenderStateBadge(%s) = %q, want it to contain %q", tt.state, got, tt.want)
		}
	}
}

func TestRenderDeathList(t *testing.T) {
	styleSet := styles.DefaultStyles()

	if got := RenderDeathList(styleSet, nil, 5); !strings.Contains(got, "No deaths") {
		t.Fatalf("empty list = %q", got)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	deaths := []*models.DeathEvent{
		{ID: 1, PlayerName: "Alpha", OccurredAt: base},
		{ID: 2, PlayerName: "Bravo", OccurredAt: base.Add(time.Minute)},
		{ID: 3, PlayerName: models.UnknownPlayerName, OccurredAt: base.Add(2 * time.Minute)},
	}

	got := RenderDeathList(styleSet, deaths, 2)
	lines := strings.Split(got, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), got)
	}
	if !strings.Contains(lines[0], "unknown") || !strings.Contains(lines[1], "Bravo") {
		t.Errorf("expected newest first, got %q", got)
	}
	if !strings.Contains(lines[2], "1 earlier") {
		t.Errorf("expected overflow line, got %q", lines[2])
	}
}
