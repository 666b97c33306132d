package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/screenwatch/screenwatch/internal/db"
	"github.com/screenwatch/screenwatch/internal/models"
)

var (
	auditSession string
	auditType    string
	auditLimit   int
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().StringVar(&auditSession, "session", "", "only show events from this session")
	auditCmd.Flags().StringVar(&auditType, "type", "", "only show events of this type")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 0, "stop after N events (0 = all)")
}

var auditCmd = &cobra.Command{
	Use:   "events",
	Short: "List the audit log",
	Long: `List audit events in the order they were written.

Types: session.started, state.changed (only with scan.record_transitions),
ledger.write_failed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		query, err := auditQuery(auditSession, auditType)
		if err != nil {
			return err
		}

		database, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		list, err := collectAuditEvents(ctx, db.NewEventRepository(database), query, auditLimit)
		if err != nil {
			return err
		}
		return printAuditEvents(cmd.OutOrStdout(), list)
	},
}

type auditPager interface {
	Query(ctx context.Context, q db.EventQuery) (*db.EventPage, error)
}

func auditQuery(sessionID, eventType string) (db.EventQuery, error) {
	var q db.EventQuery
	if sessionID = strings.TrimSpace(sessionID); sessionID != "" {
		q.SessionID = &sessionID
	}
	if eventType = strings.TrimSpace(eventType); eventType != "" {
		t := models.EventType(strings.ToLower(eventType))
		if !slices.Contains(models.EventTypes(), t) {
			return q, fmt.Errorf("unknown event type %q", eventType)
		}
		q.Type = &t
	}
	return q, nil
}

func collectAuditEvents(ctx context.Context, repo auditPager, q db.EventQuery, limit int) ([]*models.Event, error) {
	list := make([]*models.Event, 0)
	for {
		page, err := repo.Query(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("failed to read events: %w", err)
		}
		for _, event := range page.Events {
			list = append(list, event)
			if limit > 0 && len(list) == limit {
				return list, nil
			}
		}
		if page.NextSeq == 0 {
			return list, nil
		}
		q.AfterSeq = page.NextSeq
	}
}

func printAuditEvents(out io.Writer, list []*models.Event) error {
	if IsJSONOutput() || IsJSONLOutput() {
		return WriteOutput(out, list)
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "No events recorded.")
		return nil
	}

	rows := make([][]string, 0, len(list))
	for _, event := range list {
		rows = append(rows, []string{
			strconv.FormatInt(event.Seq, 10),
			formatTimestamp(event.Timestamp),
			shortID(event.SessionID),
			string(event.Type),
			describeAuditEvent(event),
		})
	}
	return writeTable(out, []string{"SEQ", "TIME", "SESSION", "TYPE", "DETAIL"}, rows)
}

func describeAuditEvent(event *models.Event) string {
	switch event.Type {
	case models.EventTypeSessionStarted:
		var payload models.SessionStartedPayload
		if json.Unmarshal(event.Payload, &payload) == nil && payload.Reason != "" {
			return "reason=" + payload.Reason
		}
	case models.EventTypeStateChanged:
		var payload models.StateChangedPayload
		if json.Unmarshal(event.Payload, &payload) == nil {
			detail := fmt.Sprintf("%s -> %s", payload.OldState, payload.NewState)
			if payload.Rule != "" {
				detail += " (" + payload.Rule + ")"
			}
			return detail
		}
	case models.EventTypeLedgerWriteFailed:
		var payload models.LedgerWriteFailedPayload
		if json.Unmarshal(event.Payload, &payload) == nil {
			return fmt.Sprintf("%s attempt %d: %s", payload.PlayerName, payload.Attempts, payload.Error)
		}
	}
	return ""
}
