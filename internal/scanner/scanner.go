// Package scanner runs the capture, resolve, record and dispatch loop.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/screenwatch/screenwatch/internal/actions"
	"github.com/screenwatch/screenwatch/internal/detect"
	"github.com/screenwatch/screenwatch/internal/events"
	"github.com/screenwatch/screenwatch/internal/ledger"
	"github.com/screenwatch/screenwatch/internal/logging"
	"github.com/screenwatch/screenwatch/internal/models"
	"github.com/screenwatch/screenwatch/internal/session"
	"github.com/screenwatch/screenwatch/internal/state"
)

// Scanner errors.
var (
	ErrScannerAlreadyRunning = errors.New("scanner already running")
	ErrScannerNotRunning     = errors.New("scanner not running")
)

// Config contains scanner configuration.
type Config struct {
	// Interval is the target time between cycle starts.
	// Default: 2 seconds.
	Interval time.Duration

	// MinSleep is the shortest pause after a cycle, even when it overran.
	// Default: 200 milliseconds.
	MinSleep time.Duration

	// RecordTransitions persists every state change to the audit log.
	RecordTransitions bool

	// EventBuffer is the capacity of the scan event channel.
	// Default: 100.
	EventBuffer int
}

// DefaultConfig returns the default cadence.
func DefaultConfig() Config {
	return Config{
		Interval:    2 * time.Second,
		MinSleep:    200 * time.Millisecond,
		EventBuffer: 100,
	}
}

// Recorder appends death events.
type Recorder interface {
	AppendAt(ctx context.Context, sess models.Session, reading ledger.NameReading, occurredAt time.Time) (*models.DeathEvent, error)
}

// NameReader reads the player name region when a death is observed.
type NameReader interface {
	ReadName(ctx context.Context, frame *detect.Frame) (ledger.NameReading, error)
}

// FrameNameReader takes the name text carried on the frame.
type FrameNameReader struct{}

// ReadName returns the frame's name text and confidence.
func (FrameNameReader) ReadName(_ context.Context, frame *detect.Frame) (ledger.NameReading, error) {
	if frame == nil {
		return ledger.NameReading{}, fmt.Errorf("no frame")
	}
	return ledger.NameReading{Text: frame.NameText, Confidence: frame.NameConfidence}, nil
}

// Deps are the scanner's collaborators. Dispatcher, Events and Names may
// be nil.
type Deps struct {
	Source     detect.Source
	Resolver   *state.Resolver
	Sessions   *session.Manager
	Ledger     Recorder
	Dispatcher actions.Dispatcher
	Events     events.Repository
	Names      NameReader
}

// ScanEvent describes one completed cycle.
type ScanEvent struct {
	// SessionID is the active session, empty before the first start.
	SessionID string

	// State is the resolved state.
	State models.GameState

	// Rule is the rule that matched, empty for UNKNOWN.
	Rule string

	// Transition is set when the state changed this cycle.
	Transition *models.Transition

	// Deaths holds ledger records written this cycle, including retries.
	Deaths []*models.DeathEvent

	// Missing lists rule detectors absent from the frame.
	Missing []string

	// Err is the cycle's capture, session or ledger error.
	Err error

	// ActionErr is the dispatcher error, if any.
	ActionErr error

	// At is when the cycle finished.
	At time.Time

	// Duration is how long the cycle took.
	Duration time.Duration
}

// Stats contains scanner statistics.
type Stats struct {
	Running        bool
	StartedAt      *time.Time
	SessionID      string
	State          models.GameState
	StateSince     time.Time
	Cycles         int64
	Transitions    int64
	Deaths         int64
	LedgerFailures int64
	PendingDeaths  int
	LastCycleAt    *time.Time
}

type pendingDeath struct {
	session    models.Session
	reading    ledger.NameReading
	occurredAt time.Time
	attempts   int
}

// Scanner owns the transition tracker and runs one cycle at a time.
type Scanner struct {
	config Config
	deps   Deps
	now    func() time.Time
	logger zerolog.Logger

	// Runtime state
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	wg      sync.WaitGroup

	// cycleMu serialises cycles and guards tracker and pending.
	cycleMu sync.Mutex
	tracker *state.Tracker
	pending []pendingDeath

	// Stats
	stats   Stats
	statsMu sync.RWMutex
	eventCh chan ScanEvent
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithClock overrides the scanner and tracker time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Scanner.
func New(config Config, deps Deps, opts ...Option) (*Scanner, error) {
	switch {
	case deps.Source == nil:
		return nil, fmt.Errorf("frame source is required")
	case deps.Resolver == nil:
		return nil, fmt.Errorf("resolver is required")
	case deps.Sessions == nil:
		return nil, fmt.Errorf("session manager is required")
	case deps.Ledger == nil:
		return nil, fmt.Errorf("ledger is required")
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = actions.Nop{}
	}
	if deps.Names == nil {
		deps.Names = FrameNameReader{}
	}

	defaults := DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.MinSleep <= 0 {
		config.MinSleep = defaults.MinSleep
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = defaults.EventBuffer
	}

	s := &Scanner{
		config:  config,
		deps:    deps,
		now:     time.Now,
		logger:  logging.Component("scanner"),
		eventCh: make(chan ScanEvent, config.EventBuffer),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tracker = state.NewTracker(state.WithClock(s.now))
	s.stats.State = s.tracker.Current()
	s.stats.StateSince = s.tracker.Since()
	return s, nil
}

// Start begins a new session and the background scan loop.
func (s *Scanner) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrScannerAlreadyRunning
	}

	s.newSession(ctx, "start")

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.done = make(chan struct{})

	now := s.now().UTC()
	s.statsMu.Lock()
	s.stats.Running = true
	s.stats.StartedAt = &now
	s.statsMu.Unlock()

	s.logger.Info().
		Dur("interval", s.config.Interval).
		Dur("min_sleep", s.config.MinSleep).
		Msg("scanner starting")

	s.wg.Add(1)
	go s.runLoop(loopCtx, s.done)

	return nil
}

// Stop halts the loop between cycles and waits for it to exit.
func (s *Scanner) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrScannerNotRunning
	}

	s.logger.Info().Msg("scanner stopping")
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()

	s.statsMu.Lock()
	s.stats.Running = false
	s.statsMu.Unlock()

	s.logger.Info().Msg("scanner stopped")
	return nil
}

// Restart begins a new session without stopping the loop. The tracker
// returns to UNKNOWN so the next resolution is reported as a transition.
func (s *Scanner) Restart(ctx context.Context) models.Session {
	return s.newSession(ctx, "restart")
}

// Done is closed when the running loop exits, either after Stop or once
// the frame source is exhausted. It is nil before the first Start.
func (s *Scanner) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Running reports whether the loop is active.
func (s *Scanner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ScanOnce runs a single cycle. It waits for any in-flight cycle first.
func (s *Scanner) ScanOnce(ctx context.Context) ScanEvent {
	return s.cycle(ctx)
}

// Stats returns current scanner statistics.
func (s *Scanner) Stats() Stats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return s.stats
}

// Events returns the channel of scan events. Events are dropped when
// nobody reads and the buffer is full.
func (s *Scanner) Events() <-chan ScanEvent {
	return s.eventCh
}

func (s *Scanner) newSession(ctx context.Context, reason string) models.Session {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	sess := s.deps.Sessions.Start()
	s.tracker.Reset()

	s.statsMu.Lock()
	s.stats.SessionID = sess.ID
	s.stats.State = s.tracker.Current()
	s.stats.StateSince = s.tracker.Since()
	s.statsMu.Unlock()

	s.logger.Info().
		Str("session_id", sess.ID).
		Str("reason", reason).
		Time("started_at", sess.StartedAt).
		Msg("session started")

	if s.deps.Events != nil {
		if err := events.LogSessionStarted(context.WithoutCancel(ctx), s.deps.Events, sess, reason); err != nil {
			s.logger.Warn().Err(err).Str("session_id", sess.ID).Msg("failed to record session start")
		}
	}
	return sess
}

func (s *Scanner) runLoop(ctx context.Context, done chan struct{}) {
	defer s.wg.Done()
	defer close(done)

	for {
		if ctx.Err() != nil {
			return
		}

		started := s.now()
		event := s.cycle(ctx)
		if errors.Is(event.Err, detect.ErrSourceExhausted) {
			s.logger.Info().Msg("frame source exhausted")
			s.markStopped()
			return
		}
		if ctx.Err() != nil {
			return
		}

		wait := s.config.Interval - s.now().Sub(started)
		if wait < s.config.MinSleep {
			wait = s.config.MinSleep
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *Scanner) markStopped() {
	s.mu.Lock()
	if s.running {
		s.cancel()
		s.running = false
	}
	s.mu.Unlock()

	s.statsMu.Lock()
	s.stats.Running = false
	s.statsMu.Unlock()
}

// cycle captures one frame and, once it has a frame, runs resolution,
// ledger writes and dispatch to completion even if ctx is cancelled.
func (s *Scanner) cycle(ctx context.Context) ScanEvent {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	started := s.now()
	event := ScanEvent{State: s.tracker.Current()}
	if sess, err := s.deps.Sessions.Current(); err == nil {
		event.SessionID = sess.ID
	}

	frame, err := s.deps.Source.Next(ctx)
	if err != nil {
		if !errors.Is(err, detect.ErrSourceExhausted) && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Msg("capture failed")
		}
		event.Err = err
		return s.finish(event, started)
	}

	work := context.WithoutCancel(ctx)
	event.Deaths, event.Err = s.retryPending(work)

	resolution := s.deps.Resolver.ResolveDetailed(frame.Results)
	event.State = resolution.State
	event.Rule = resolution.Rule
	event.Missing = resolution.Missing
	if len(resolution.Missing) > 0 {
		s.logger.Debug().Strs("detectors", resolution.Missing).Msg("detectors missing from frame, treated as not found")
	}

	transition := s.tracker.Observe(resolution.State)
	if transition != nil {
		event.Transition = transition
		s.onTransition(work, event.SessionID, *transition, resolution.Rule)

		if transition.To == models.GameStateDead {
			death, err := s.recordDeath(work, frame, transition.At)
			if death != nil {
				event.Deaths = append(event.Deaths, death)
			}
			event.Err = errors.Join(event.Err, err)
		}
	}

	input := actions.Input{
		State:        resolution.State,
		Transitioned: transition != nil,
		Results:      frame.Results,
		Window:       frame.Window,
		StateSince:   s.tracker.Since(),
		At:           s.now().UTC(),
	}
	if err := s.deps.Dispatcher.Dispatch(work, input); err != nil {
		event.ActionErr = err
		if errors.Is(err, actions.ErrNoTarget) {
			s.logger.Debug().Err(err).Str("state", resolution.State.String()).Msg("action target not on screen")
		} else {
			s.logger.Warn().Err(err).Str("state", resolution.State.String()).Msg("action failed")
		}
	}

	return s.finish(event, started)
}

func (s *Scanner) onTransition(ctx context.Context, sessionID string, transition models.Transition, rule string) {
	s.logger.Info().
		Str("from", transition.From.String()).
		Str("to", transition.To.String()).
		Str("rule", rule).
		Msg("state changed")

	s.statsMu.Lock()
	s.stats.Transitions++
	s.statsMu.Unlock()

	if !s.config.RecordTransitions || s.deps.Events == nil || sessionID == "" {
		return
	}
	if err := events.LogStateChanged(ctx, s.deps.Events, sessionID, transition, rule); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record state change")
	}
}

func (s *Scanner) recordDeath(ctx context.Context, frame *detect.Frame, at time.Time) (*models.DeathEvent, error) {
	sess, err := s.deps.Sessions.Current()
	if err != nil {
		s.logger.Warn().Err(err).Msg("death observed without an active session, not recorded")
		return nil, err
	}

	reading, err := s.deps.Names.ReadName(ctx, frame)
	if err != nil {
		s.logger.Warn().Err(err).Msg("name capture failed")
		reading = ledger.NameReading{}
	}

	if len(s.pending) > 0 {
		s.pending = append(s.pending, pendingDeath{session: sess, reading: reading, occurredAt: at})
		s.logger.Warn().
			Str("session_id", sess.ID).
			Time("occurred_at", at).
			Int("pending", len(s.pending)).
			Msg("death queued behind unwritten deaths")
		return nil, nil
	}

	death, err := s.deps.Ledger.AppendAt(ctx, sess, reading, at)
	if err != nil {
		s.deferDeath(ctx, pendingDeath{session: sess, reading: reading, occurredAt: at, attempts: 1}, err)
		return nil, err
	}

	s.statsMu.Lock()
	s.stats.Deaths++
	s.statsMu.Unlock()
	return death, nil
}

// retryPending replays queued appends in order and stops at the first
// failure, which it returns. New deaths are queued behind any backlog, so
// ledger order matches observation order.
func (s *Scanner) retryPending(ctx context.Context) ([]*models.DeathEvent, error) {
	var written []*models.DeathEvent
	for len(s.pending) > 0 {
		next := s.pending[0]
		death, err := s.deps.Ledger.AppendAt(ctx, next.session, next.reading, next.occurredAt)
		if err != nil {
			s.pending[0].attempts++
			s.logger.Error().
				Err(err).
				Str("session_id", next.session.ID).
				Int("attempts", s.pending[0].attempts).
				Msg("ledger retry failed")
			s.statsMu.Lock()
			s.stats.LedgerFailures++
			s.statsMu.Unlock()
			return written, err
		}
		s.pending = s.pending[1:]
		written = append(written, death)

		s.statsMu.Lock()
		s.stats.Deaths++
		s.statsMu.Unlock()
	}
	return written, nil
}

func (s *Scanner) deferDeath(ctx context.Context, pending pendingDeath, cause error) {
	s.pending = append(s.pending, pending)

	s.logger.Error().
		Err(cause).
		Str("session_id", pending.session.ID).
		Time("occurred_at", pending.occurredAt).
		Int("pending", len(s.pending)).
		Msg("death not recorded, queued for retry")

	s.statsMu.Lock()
	s.stats.LedgerFailures++
	s.statsMu.Unlock()

	if s.deps.Events == nil {
		return
	}
	payload := models.LedgerWriteFailedPayload{
		OccurredAt: pending.occurredAt,
		PlayerName: pending.reading.Text,
		Error:      cause.Error(),
		Attempts:   pending.attempts,
	}
	if err := events.LogLedgerWriteFailed(ctx, s.deps.Events, pending.session.ID, payload); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record ledger failure")
	}
}

func (s *Scanner) finish(event ScanEvent, started time.Time) ScanEvent {
	event.At = s.now().UTC()
	event.Duration = event.At.Sub(started)

	s.statsMu.Lock()
	s.stats.Cycles++
	s.stats.State = s.tracker.Current()
	s.stats.StateSince = s.tracker.Since()
	s.stats.PendingDeaths = len(s.pending)
	s.stats.LastCycleAt = &event.At
	s.statsMu.Unlock()

	select {
	case s.eventCh <- event:
	default:
		s.logger.Debug().Msg("scan event channel full, dropping event")
	}
	return event
}
