package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/screenwatch/screenwatch/internal/config"
	"github.com/screenwatch/screenwatch/internal/db"
	"github.com/screenwatch/screenwatch/internal/events"
	"github.com/screenwatch/screenwatch/internal/ledger"
	"github.com/screenwatch/screenwatch/internal/models"
	"github.com/screenwatch/screenwatch/internal/scanner"
	"github.com/screenwatch/screenwatch/internal/state"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.OpenInMemory()
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background()))
	t.Cleanup(func() { database.Close() })
	return database
}

func withConfig(t *testing.T, cfg *config.Config) {
	t.Helper()
	previous := appConfig
	appConfig = cfg
	t.Cleanup(func() { appConfig = previous })
}

func withOutputFlags(t *testing.T, json, jsonl bool) {
	t.Helper()
	prevJSON, prevJSONL := jsonOutput, jsonlOutput
	jsonOutput, jsonlOutput = json, jsonl
	t.Cleanup(func() { jsonOutput, jsonlOutput = prevJSON, prevJSONL })
}

func TestParseResolveCases(t *testing.T) {
	cases, err := parseResolveCases([]byte(`
results:
  AUTO_RED_ICON: {found: true, confidence: 0.9}
cases:
  - name: joint match
    results:
      death_text: {found: true, confidence: 0.9}
      AUTO_RED_ICON: {found: true, confidence: 0.8}
  - results: {}
`))
	require.NoError(t, err)
	require.Len(t, cases, 3)
	require.Equal(t, "results", cases[0].Name)
	require.Equal(t, "case 3", cases[2].Name)

	table, err := state.NewRuleTableFromSpecs(state.DefaultRuleSpecs())
	require.NoError(t, err)
	views := resolveCases(state.NewResolver(table), cases)

	require.Equal(t, models.GameStateInRun, views[0].State)
	require.Equal(t, models.GameStateDead, views[1].State)
	require.Equal(t, "dead", views[1].Rule)
	require.Equal(t, models.GameStateUnknown, views[2].State)
	require.NotEmpty(t, views[2].Missing)

	_, err = parseResolveCases([]byte("other: 1\n"))
	require.Error(t, err)
}

func TestPrintRulesInEvaluationOrder(t *testing.T) {
	withOutputFlags(t, false, false)
	table, err := state.NewRuleTableFromSpecs(state.DefaultRuleSpecs())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printRules(&buf, table))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, len(state.DefaultRuleSpecs())+1)
	require.Contains(t, lines[0], "PRIORITY")
	require.Contains(t, lines[1], "dead")
	require.Contains(t, lines[1], "all(DEATH_TEXT)")
	require.Contains(t, lines[len(lines)-1], "menu")
}

func TestLoadRuleTableFromFile(t *testing.T) {
	withConfig(t, config.Default())
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rules:
  - name: a
    state: menu
    priority: 5
    require_all: [LEAVE_BUTTON]
  - name: b
    state: loading
    priority: 5
    require_all: [LOADING_ICON]
`), 0o644))

	prev := rulesFile
	rulesFile = path
	t.Cleanup(func() { rulesFile = prev })

	_, err := loadRuleTable()
	require.ErrorIs(t, err, state.ErrConfiguration)
	require.Equal(t, exitConfig, exitCode(err))
}

func TestCollectDeathsAndSessions(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	l := ledger.New(db.NewDeathEventRepository(database))
	eventRepo := db.NewEventRepository(database)

	start := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	a := models.Session{ID: "session-a", StartedAt: start}
	b := models.Session{ID: "session-b", StartedAt: start.Add(time.Hour)}
	require.NoError(t, events.LogSessionStarted(ctx, eventRepo, a, "start"))
	require.NoError(t, events.LogSessionStarted(ctx, eventRepo, b, "restart"))

	for i, name := range []string{"One", "Two", "Three"} {
		_, err := l.AppendAt(ctx, a, ledger.NameReading{Text: name, Confidence: 1}, start.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}
	_, err := l.Append(ctx, b, "")
	require.NoError(t, err)

	all, err := collectDeaths(ctx, l, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 4)

	tail, err := collectDeaths(ctx, l, "session-a", 2)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	require.Equal(t, "Two", tail[0].PlayerName)
	require.Equal(t, "Three", tail[1].PlayerName)

	withOutputFlags(t, false, false)
	var buf bytes.Buffer
	require.NoError(t, printDeaths(&buf, all))
	require.Contains(t, buf.String(), "PLAYER")
	require.Contains(t, buf.String(), models.UnknownPlayerName)

	summaries, err := sessionSummaries(ctx, eventRepo, db.NewDeathEventRepository(database))
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, "session-a", summaries[0].ID)
	require.Equal(t, 3, summaries[0].Deaths)
	require.Equal(t, 1, summaries[1].Deaths)
}

func TestAuditEventsListing(t *testing.T) {
	ctx := context.Background()
	repo := db.NewEventRepository(setupTestDB(t))

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sess := models.Session{ID: "session-a", StartedAt: start}
	require.NoError(t, events.LogSessionStarted(ctx, repo, sess, "start"))
	for _, to := range []models.GameState{models.GameStateInRun, models.GameStateDead} {
		transition := models.Transition{From: models.GameStateUnknown, To: to, At: start.Add(time.Minute)}
		require.NoError(t, events.LogStateChanged(ctx, repo, sess.ID, transition, "rule"))
	}
	require.NoError(t, events.LogSessionStarted(ctx, repo, models.Session{ID: "session-b", StartedAt: start.Add(time.Hour)}, "restart"))

	q, err := auditQuery("session-a", "STATE.CHANGED")
	require.NoError(t, err)
	list, err := collectAuditEvents(ctx, repo, q, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "UNKNOWN -> DEAD (rule)", describeAuditEvent(list[1]))

	all, err := collectAuditEvents(ctx, repo, db.EventQuery{Limit: 1}, 3)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Less(t, all[0].Seq, all[1].Seq)

	_, err = auditQuery("", "bogus")
	require.Error(t, err)

	withOutputFlags(t, false, false)
	var buf bytes.Buffer
	require.NoError(t, printAuditEvents(&buf, all))
	require.Contains(t, buf.String(), "reason=start")
}

type staticSessions []models.Session

func (s staticSessions) ListSessions(context.Context) ([]models.Session, error) { return s, nil }

type staticCounts map[string]int

func (c staticCounts) CountBySession(context.Context) (map[string]int, error) { return c, nil }

func TestSessionSummariesIncludesLedgerOnlySessions(t *testing.T) {
	summaries, err := sessionSummaries(context.Background(),
		staticSessions{{ID: "known"}},
		staticCounts{"known": 1, "orphan": 2})
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, "orphan", summaries[1].ID)
	require.Equal(t, 2, summaries[1].Deaths)
}

func TestWriteOutputJSONL(t *testing.T) {
	withOutputFlags(t, false, true)

	var buf bytes.Buffer
	require.NoError(t, WriteOutput(&buf, []models.Session{{ID: "a"}, {ID: "b"}}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[1], `"id":"b"`)
}

func TestPrintScanEvent(t *testing.T) {
	withOutputFlags(t, false, false)
	noColor = true
	t.Cleanup(func() { noColor = false })

	var buf bytes.Buffer
	at := time.Now()
	require.NoError(t, printScanEvent(&buf, scanner.ScanEvent{
		At:         at,
		State:      models.GameStateDead,
		Transition: &models.Transition{From: models.GameStateInRun, To: models.GameStateDead, At: at},
		Deaths:     []*models.DeathEvent{{SessionID: "abcdef0123456789", PlayerName: "Shadow99"}},
		Err:        errors.New("boom"),
	}))

	out := buf.String()
	require.Contains(t, out, "RUN IN RUN -> DEAD DEAD")
	require.Contains(t, out, "death recorded: Shadow99 (session abcdef01)")
	require.Contains(t, out, "error: boom")
}

func TestRunLoopRecordsDeathsFromFrameFile(t *testing.T) {
	withOutputFlags(t, false, true)
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Database.Path = filepath.Join(dir, "ledger.db")
	cfg.Scan.IntervalMS = 1
	cfg.Scan.MinSleepMS = 1
	withConfig(t, cfg)

	source := filepath.Join(dir, "frames.jsonl")
	frames := strings.Join([]string{
		`{"results":{"AUTO_RED_ICON":{"found":true,"confidence":0.9}}}`,
		`{"ocr_hits":[{"text":"YOU DIED","confidence":0.95}],"name_text":"Shadow99","name_confidence":0.9}`,
		`{"ocr_hits":[{"text":"YOU DIED","confidence":0.95}],"name_text":"Shadow99","name_confidence":0.9}`,
		`{"results":{"LOADING_ICON":{"found":true,"confidence":0.9}}}`,
	}, "\n")
	require.NoError(t, os.WriteFile(source, []byte(frames), 0o644))

	ctx := context.Background()
	rt, err := buildRuntime(ctx, cfg, runtimeOptions{sourcePath: source, dryRun: true})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, runLoop(ctx, rt.scanner, &buf))

	deaths, err := rt.ledger.Collect(ctx, ledger.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, deaths, 1)
	require.Equal(t, "Shadow99", deaths[0].PlayerName)
	require.NoError(t, rt.Close())

	out := buf.String()
	require.Contains(t, out, `"state":"DEAD"`)
	require.Contains(t, out, `"player_name":"Shadow99"`)

	// The ledger survives a reopen.
	reopened, err := db.Open(cfg.Database.Path)
	require.NoError(t, err)
	defer reopened.Close()
	persisted, err := ledger.New(db.NewDeathEventRepository(reopened)).Collect(ctx, ledger.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, persisted, 1)
}

func TestStartupStepReportsOutcome(t *testing.T) {
	var buf bytes.Buffer
	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &startup{out: &buf, now: func() time.Time {
		tick = tick.Add(20 * time.Millisecond)
		return tick
	}}

	require.NoError(t, s.step("Opening ledger", func() error { return nil }))
	boom := errors.New("boom")
	require.ErrorIs(t, s.step("Opening frame source", func() error { return boom }), boom)

	require.Equal(t, "Opening ledger... done (20ms)\nOpening frame source... failed: boom\n", buf.String())

	var quiet *startup
	require.ErrorIs(t, quiet.step("ignored", func() error { return boom }), boom)
}

func TestLiveViewPreflight(t *testing.T) {
	var preflight *PreflightError

	require.ErrorAs(t, liveViewPreflight("-"), &preflight)
	require.Contains(t, preflight.Message, "stdin")

	prev := nonInteractive
	nonInteractive = true
	t.Cleanup(func() { nonInteractive = prev })

	require.ErrorAs(t, liveViewPreflight("frames.jsonl"), &preflight)
	require.Equal(t, "screenwatch run --source frames.jsonl", preflight.NextStep)
}
