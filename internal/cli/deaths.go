package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/screenwatch/screenwatch/internal/db"
	"github.com/screenwatch/screenwatch/internal/ledger"
	"github.com/screenwatch/screenwatch/internal/models"
)

var (
	deathsSession string
	deathsTail    int
)

func init() {
	rootCmd.AddCommand(deathsCmd)
	deathsCmd.Flags().StringVar(&deathsSession, "session", "", "only show deaths from this session")
	deathsCmd.Flags().IntVar(&deathsTail, "tail", 0, "only show the last N deaths")
}

var deathsCmd = &cobra.Command{
	Use:   "deaths",
	Short: "List recorded deaths",
	Long:  "List recorded deaths in the order they were recorded, optionally for one session.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		database, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		l := ledger.New(db.NewDeathEventRepository(database))
		deaths, err := collectDeaths(ctx, l, deathsSession, deathsTail)
		if err != nil {
			return err
		}
		return printDeaths(cmd.OutOrStdout(), deaths)
	},
}

func collectDeaths(ctx context.Context, l *ledger.Ledger, sessionID string, tail int) ([]*models.DeathEvent, error) {
	deaths := make([]*models.DeathEvent, 0)
	for death, err := range l.History(ctx, ledger.HistoryFilter{SessionID: sessionID}) {
		if err != nil {
			return nil, fmt.Errorf("failed to read deaths: %w", err)
		}
		deaths = append(deaths, death)
		if tail > 0 && len(deaths) > tail {
			deaths = deaths[1:]
		}
	}
	return deaths, nil
}

func printDeaths(out io.Writer, deaths []*models.DeathEvent) error {
	if IsJSONOutput() || IsJSONLOutput() {
		return WriteOutput(out, deaths)
	}
	if len(deaths) == 0 {
		fmt.Fprintln(out, "No deaths recorded.")
		return nil
	}

	rows := make([][]string, 0, len(deaths))
	for _, death := range deaths {
		rows = append(rows, []string{
			strconv.FormatInt(death.ID, 10),
			shortID(death.SessionID),
			formatTimestamp(death.SessionStartedAt),
			formatTimestamp(death.OccurredAt),
			death.PlayerName,
		})
	}
	return writeTable(out, []string{"ID", "SESSION", "SESSION STARTED", "OCCURRED", "PLAYER"}, rows)
}
