package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/screenwatch/screenwatch/internal/db"
	"github.com/screenwatch/screenwatch/internal/models"
)

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List sessions with their death counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		database, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		summaries, err := sessionSummaries(ctx, db.NewEventRepository(database), db.NewDeathEventRepository(database))
		if err != nil {
			return err
		}
		return printSessions(cmd.OutOrStdout(), summaries)
	},
}

type sessionLister interface {
	ListSessions(ctx context.Context) ([]models.Session, error)
}

type deathCounter interface {
	CountBySession(ctx context.Context) (map[string]int, error)
}

// sessionSummaries merges recorded session starts with ledger counts.
// Sessions known only from the ledger are listed after the others.
func sessionSummaries(ctx context.Context, sessions sessionLister, deaths deathCounter) ([]models.SessionSummary, error) {
	started, err := sessions.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	counts, err := deaths.CountBySession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count deaths: %w", err)
	}

	summaries := make([]models.SessionSummary, 0, len(started))
	seen := make(map[string]bool, len(started))
	for _, sess := range started {
		seen[sess.ID] = true
		summaries = append(summaries, models.SessionSummary{Session: sess, Deaths: counts[sess.ID]})
	}

	var orphans []string
	for id := range counts {
		if !seen[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	for _, id := range orphans {
		summaries = append(summaries, models.SessionSummary{Session: models.Session{ID: id}, Deaths: counts[id]})
	}
	return summaries, nil
}

func printSessions(out io.Writer, summaries []models.SessionSummary) error {
	if IsJSONOutput() || IsJSONLOutput() {
		return WriteOutput(out, summaries)
	}
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No sessions recorded.")
		return nil
	}

	rows := make([][]string, 0, len(summaries))
	for _, summary := range summaries {
		rows = append(rows, []string{
			summary.ID,
			formatTimestamp(summary.StartedAt),
			strconv.Itoa(summary.Deaths),
		})
	}
	return writeTable(out, []string{"SESSION", "STARTED", "DEATHS"}, rows)
}
