package components

import (
	"fmt"
	"strings"

	"github.com/screenwatch/screenwatch/internal/models"
	"github.com/screenwatch/screenwatch/internal/tui/styles"
)

// RenderDeathList renders the most recent deaths, newest first.
func RenderDeathList(styleSet styles.Styles, deaths []*models.DeathEvent, limit int) string {
	if len(deaths) == 0 {
		return EmptyDeaths().Render(styleSet)
	}
	if limit <= 0 || limit > len(deaths) {
		limit = len(deaths)
	}

	lines := make([]string, 0, limit+1)
	for i := len(deaths) - 1; i >= len(deaths)-limit; i-- {
		death := deaths[i]
		name := styleSet.Text.Render(death.PlayerName)
		if death.PlayerName == models.UnknownPlayerName {
			name = styleSet.Muted.Render(death.PlayerName)
		}
		lines = append(lines, fmt.Sprintf("%s  %s",
			styleSet.Muted.Render(death.OccurredAt.Local().Format("15:04:05")),
			name,
		))
	}
	if hidden := len(deaths) - limit; hidden > 0 {
		lines = append(lines, styleSet.Muted.Render(fmt.Sprintf("... %d earlier", hidden)))
	}
	return strings.Join(lines, "\n")
}
