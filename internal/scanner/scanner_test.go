package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/screenwatch/screenwatch/internal/actions"
	"github.com/screenwatch/screenwatch/internal/detect"
	"github.com/screenwatch/screenwatch/internal/ledger"
	"github.com/screenwatch/screenwatch/internal/models"
	"github.com/screenwatch/screenwatch/internal/session"
	"github.com/screenwatch/screenwatch/internal/state"
)

type fakeRecorder struct {
	mu       sync.Mutex
	failures int
	records  []*models.DeathEvent
}

func (r *fakeRecorder) AppendAt(_ context.Context, sess models.Session, reading ledger.NameReading, at time.Time) (*models.DeathEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return nil, fmt.Errorf("%w: disk full", ledger.ErrLedgerWrite)
	}
	name, err := ledger.ExtractPlayerName(reading, 0)
	if err != nil {
		name = models.UnknownPlayerName
	}
	event := &models.DeathEvent{
		ID:               int64(len(r.records) + 1),
		SessionID:        sess.ID,
		SessionStartedAt: sess.StartedAt,
		OccurredAt:       at,
		PlayerName:       name,
	}
	r.records = append(r.records, event)
	return event, nil
}

func (r *fakeRecorder) all() []*models.DeathEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.DeathEvent(nil), r.records...)
}

type fakeDispatcher struct {
	mu     sync.Mutex
	inputs []actions.Input
}

func (d *fakeDispatcher) Dispatch(_ context.Context, in actions.Input) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inputs = append(d.inputs, in)
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []*models.Event
}

func (f *fakeEvents) Create(_ context.Context, event *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEvents) count(eventType models.EventType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, event := range f.events {
		if event.Type == eventType {
			n++
		}
	}
	return n
}

func frame(name string, found ...string) *detect.Frame {
	results := make(map[string]models.DetectorResult, len(found))
	for _, detector := range found {
		results[detector] = models.DetectorResult{Found: true, Confidence: 0.95}
	}
	return &detect.Frame{Results: models.NewResultSet(results), NameText: name, NameConfidence: 0.9}
}

type harness struct {
	scanner    *Scanner
	recorder   *fakeRecorder
	dispatcher *fakeDispatcher
	events     *fakeEvents
	sessions   *session.Manager
}

func newHarness(t *testing.T, config Config, frames ...*detect.Frame) *harness {
	t.Helper()

	table, err := state.NewRuleTableFromSpecs(state.DefaultRuleSpecs())
	require.NoError(t, err)

	n := 0
	h := &harness{
		recorder:   &fakeRecorder{},
		dispatcher: &fakeDispatcher{},
		events:     &fakeEvents{},
		sessions: session.NewManager(session.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("session-%d", n)
		})),
	}
	h.scanner, err = New(config, Deps{
		Source:     detect.NewSliceSource(frames...),
		Resolver:   state.NewResolver(table),
		Sessions:   h.sessions,
		Ledger:     h.recorder,
		Dispatcher: h.dispatcher,
		Events:     h.events,
	})
	require.NoError(t, err)
	return h
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{}, Deps{})
	require.Error(t, err)
}

func TestScanOnceTracksTransitionsAndRecordsDeath(t *testing.T) {
	h := newHarness(t, Config{RecordTransitions: true},
		frame("", "AUTO_RED_ICON"),
		frame("", "AUTO_RED_ICON"),
		frame("Shadow99", "DEATH_TEXT", "AUTO_RED_ICON"),
		frame("Shadow99", "DEATH_TEXT"),
	)
	ctx := context.Background()
	sess := h.scanner.Restart(ctx)

	first := h.scanner.ScanOnce(ctx)
	require.NoError(t, first.Err)
	require.Equal(t, models.GameStateInRun, first.State)
	require.NotNil(t, first.Transition)
	require.Equal(t, models.GameStateUnknown, first.Transition.From)

	second := h.scanner.ScanOnce(ctx)
	require.Nil(t, second.Transition)

	third := h.scanner.ScanOnce(ctx)
	require.NoError(t, third.Err)
	require.Equal(t, models.GameStateDead, third.State)
	require.Len(t, third.Deaths, 1)
	require.Equal(t, "Shadow99", third.Deaths[0].PlayerName)
	require.Equal(t, sess.ID, third.Deaths[0].SessionID)

	// Still dead: no second record, no second one-shot dispatch.
	fourth := h.scanner.ScanOnce(ctx)
	require.Nil(t, fourth.Transition)
	require.Empty(t, fourth.Deaths)
	require.Len(t, h.recorder.all(), 1)

	var transitioned []bool
	for _, in := range h.dispatcher.inputs {
		transitioned = append(transitioned, in.Transitioned)
	}
	require.Equal(t, []bool{true, false, true, false}, transitioned)

	require.Equal(t, 1, h.events.count(models.EventTypeSessionStarted))
	require.Equal(t, 2, h.events.count(models.EventTypeStateChanged))

	stats := h.scanner.Stats()
	require.EqualValues(t, 4, stats.Cycles)
	require.EqualValues(t, 2, stats.Transitions)
	require.EqualValues(t, 1, stats.Deaths)
	require.Equal(t, models.GameStateDead, stats.State)
}

func TestDeathWithoutSessionIsNotRecorded(t *testing.T) {
	h := newHarness(t, Config{}, frame("Shadow99", "DEATH_TEXT"))

	event := h.scanner.ScanOnce(context.Background())
	require.ErrorIs(t, event.Err, session.ErrNoActiveSession)
	require.Equal(t, models.GameStateDead, event.State)
	require.NotNil(t, event.Transition)
	require.Empty(t, h.recorder.all())
	require.Len(t, h.dispatcher.inputs, 1)
}

func TestLedgerFailureIsQueuedAndRetried(t *testing.T) {
	h := newHarness(t, Config{},
		frame("Shadow99", "DEATH_TEXT"),
		frame("Shadow99", "DEATH_TEXT"),
		frame("Shadow99", "DEATH_TEXT"),
	)
	h.recorder.failures = 2
	ctx := context.Background()
	h.scanner.Restart(ctx)

	failed := h.scanner.ScanOnce(ctx)
	require.ErrorIs(t, failed.Err, ledger.ErrLedgerWrite)
	require.NotNil(t, failed.Transition)
	require.Len(t, h.dispatcher.inputs, 1)
	require.Equal(t, 1, h.scanner.Stats().PendingDeaths)
	require.Equal(t, 1, h.events.count(models.EventTypeLedgerWriteFailed))

	// A failed retry is reported on the cycle's event too.
	stillFailing := h.scanner.ScanOnce(ctx)
	require.ErrorIs(t, stillFailing.Err, ledger.ErrLedgerWrite)
	require.Nil(t, stillFailing.Transition)
	require.Empty(t, stillFailing.Deaths)
	require.Equal(t, 1, h.scanner.Stats().PendingDeaths)

	retried := h.scanner.ScanOnce(ctx)
	require.NoError(t, retried.Err)
	require.Len(t, retried.Deaths, 1)
	require.Equal(t, failed.Transition.At, retried.Deaths[0].OccurredAt)
	require.Equal(t, 0, h.scanner.Stats().PendingDeaths)
	require.EqualValues(t, 2, h.scanner.Stats().LedgerFailures)
}

func TestDeathsQueuedBehindFailedWriteKeepOrder(t *testing.T) {
	h := newHarness(t, Config{},
		frame("Alice", "DEATH_TEXT"),
		frame("", "START_BUTTON_TEXT"),
		frame("Bob", "DEATH_TEXT"),
		frame("", "START_BUTTON_TEXT"),
	)
	h.recorder.failures = 3
	ctx := context.Background()
	h.scanner.Restart(ctx)

	var scans []ScanEvent
	for i := 0; i < 3; i++ {
		event := h.scanner.ScanOnce(ctx)
		require.ErrorIs(t, event.Err, ledger.ErrLedgerWrite)
		require.Empty(t, event.Deaths)
		scans = append(scans, event)
	}
	require.Equal(t, 2, h.scanner.Stats().PendingDeaths)
	require.Empty(t, h.recorder.all())

	scans = append(scans, h.scanner.ScanOnce(ctx))
	require.NoError(t, scans[3].Err)
	require.Len(t, scans[3].Deaths, 2)

	records := h.recorder.all()
	require.Len(t, records, 2)
	require.Equal(t, "Alice", records[0].PlayerName)
	require.Equal(t, "Bob", records[1].PlayerName)
	require.False(t, records[1].OccurredAt.Before(records[0].OccurredAt))
	require.Equal(t, scans[0].Transition.At, records[0].OccurredAt)
	require.Equal(t, scans[2].Transition.At, records[1].OccurredAt)
	require.Equal(t, 0, h.scanner.Stats().PendingDeaths)
}

func TestRestartStartsNewSessionAndResetsTracker(t *testing.T) {
	h := newHarness(t, Config{},
		frame("", "LOADING_ICON"),
		frame("", "LOADING_ICON"),
	)
	ctx := context.Background()

	first := h.scanner.Restart(ctx)
	require.NotNil(t, h.scanner.ScanOnce(ctx).Transition)

	second := h.scanner.Restart(ctx)
	require.NotEqual(t, first.ID, second.ID)

	event := h.scanner.ScanOnce(ctx)
	require.NotNil(t, event.Transition)
	require.Equal(t, models.GameStateUnknown, event.Transition.From)
	require.Equal(t, second.ID, event.SessionID)
	require.Equal(t, 2, h.events.count(models.EventTypeSessionStarted))
}

func TestRunLoopDrainsSourceThenStops(t *testing.T) {
	h := newHarness(t, Config{Interval: time.Millisecond, MinSleep: time.Millisecond},
		frame("", "START_BUTTON_TEXT"),
		frame("", "LOADING_ICON"),
		frame("Ghost_1", "DEATH_TEXT"),
	)

	require.NoError(t, h.scanner.Start(context.Background()))
	require.ErrorIs(t, h.scanner.Start(context.Background()), ErrScannerAlreadyRunning)

	select {
	case <-h.scanner.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("scanner did not stop after source was exhausted")
	}

	require.False(t, h.scanner.Running())
	require.ErrorIs(t, h.scanner.Stop(), ErrScannerNotRunning)

	var states []models.GameState
	for len(h.scanner.Events()) > 0 {
		event := <-h.scanner.Events()
		if event.Err != nil {
			require.True(t, errors.Is(event.Err, detect.ErrSourceExhausted))
			continue
		}
		states = append(states, event.State)
	}
	require.Equal(t, []models.GameState{models.GameStateMenu, models.GameStateLoading, models.GameStateDead}, states)

	records := h.recorder.all()
	require.Len(t, records, 1)
	require.Equal(t, "Ghost_1", records[0].PlayerName)
	require.False(t, h.scanner.Stats().Running)
}

type blockingSource struct{}

func (blockingSource) Next(ctx context.Context) (*detect.Frame, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestStopCancelsBlockedCapture(t *testing.T) {
	table, err := state.NewRuleTableFromSpecs(state.DefaultRuleSpecs())
	require.NoError(t, err)

	s, err := New(Config{}, Deps{
		Source:   blockingSource{},
		Resolver: state.NewResolver(table),
		Sessions: session.NewManager(),
		Ledger:   &fakeRecorder{},
	})
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	require.True(t, s.Running())
	require.NoError(t, s.Stop())
	require.False(t, s.Running())
}
