// Package actions turns resolved states into input actions.
package actions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/screenwatch/screenwatch/internal/logging"
	"github.com/screenwatch/screenwatch/internal/models"
)

// ErrNoTarget is returned when an action's target cannot be located.
var ErrNoTarget = errors.New("action target not found")

// Input is what the scan loop hands the dispatcher after each cycle.
type Input struct {
	State        models.GameState
	Transitioned bool
	Results      models.ResultSet
	Window       models.Rect
	StateSince   time.Time
	At           time.Time
}

// Dispatcher optionally issues an action for a resolved state.
type Dispatcher interface {
	Dispatch(ctx context.Context, in Input) error
}

// Clicker injects mouse clicks at screen coordinates.
type Clicker interface {
	Click(ctx context.Context, x, y int) error
}

// Point is a window-relative position.
type Point struct {
	X int `mapstructure:"x" yaml:"x"`
	Y int `mapstructure:"y" yaml:"y"`
}

// Action describes what to do while in one state.
type Action struct {
	// Detector clicks the centre of this detector's bounding box.
	Detector string `mapstructure:"detector" yaml:"detector,omitempty"`

	// Point clicks a named click point instead.
	Point string `mapstructure:"point" yaml:"point,omitempty"`

	// Clicks is the number of clicks per trigger; zero means one.
	Clicks int `mapstructure:"clicks" yaml:"clicks,omitempty"`

	// IntervalMS is the delay between clicks of one trigger.
	IntervalMS int `mapstructure:"interval_ms" yaml:"interval_ms,omitempty"`

	// RepeatEveryMS re-triggers the action while the state persists.
	RepeatEveryMS int `mapstructure:"repeat_every_ms" yaml:"repeat_every_ms,omitempty"`
}

func (a Action) clicks() int {
	if a.Clicks <= 0 {
		return 1
	}
	return a.Clicks
}

// Table maps states to actions.
type Table map[models.GameState]Action

// BuildTable parses a state-name keyed action map and validates every
// reference against the detector and click point catalogs.
func BuildTable(raw map[string]Action, detectors []string, points map[string]Point) (Table, error) {
	known := make(map[string]bool, len(detectors))
	for _, name := range detectors {
		known[name] = true
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var problems []string
	table := make(Table, len(raw))
	for _, key := range keys {
		action := raw[key]
		gameState, err := models.ParseGameState(key)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		switch {
		case action.Detector == "" && action.Point == "":
			problems = append(problems, fmt.Sprintf("action %s: detector or point is required", gameState))
		case action.Detector != "" && action.Point != "":
			problems = append(problems, fmt.Sprintf("action %s: detector and point are mutually exclusive", gameState))
		case action.Detector != "" && !known[action.Detector]:
			problems = append(problems, fmt.Sprintf("action %s: unknown detector %q", gameState, action.Detector))
		case action.Point != "":
			if _, ok := points[action.Point]; !ok {
				problems = append(problems, fmt.Sprintf("action %s: unknown click point %q", gameState, action.Point))
			}
		}
		if action.Clicks < 0 || action.IntervalMS < 0 || action.RepeatEveryMS < 0 {
			problems = append(problems, fmt.Sprintf("action %s: clicks and intervals must not be negative", gameState))
		}
		table[gameState] = action
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid action table: %s", strings.Join(problems, "; "))
	}
	return table, nil
}

// ClickDispatcher clicks per the action table on entering a state and,
// for actions with a repeat interval, periodically while it persists.
// A dispatch counts as fired once at least one click succeeds.
type ClickDispatcher struct {
	table   Table
	points  map[string]Point
	clicker Clicker
	sleep   func(context.Context, time.Duration) error
	logger  zerolog.Logger

	mu        sync.Mutex
	owed      map[models.GameState]bool
	lastFired map[models.GameState]time.Time
}

// Option configures a ClickDispatcher.
type Option func(*ClickDispatcher)

// WithSleeper replaces the inter-click delay.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(d *ClickDispatcher) {
		if sleep != nil {
			d.sleep = sleep
		}
	}
}

// NewClickDispatcher creates a dispatcher over a validated table.
func NewClickDispatcher(table Table, points map[string]Point, clicker Clicker, opts ...Option) *ClickDispatcher {
	d := &ClickDispatcher{
		table:     table,
		points:    points,
		clicker:   clicker,
		sleep:     sleepContext,
		logger:    logging.Component("actions"),
		owed:      make(map[models.GameState]bool),
		lastFired: make(map[models.GameState]time.Time),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs the action for in.State if one is due. The action on
// entering a state stays owed until one of its clicks lands, so a target
// that shows up a few scans late is still clicked.
func (d *ClickDispatcher) Dispatch(ctx context.Context, in Input) error {
	if in.Transitioned {
		d.enter(in.State)
	}

	action, ok := d.table[in.State]
	if !ok {
		return nil
	}
	if !d.due(in, action) {
		return nil
	}

	x, y, err := d.target(in, action)
	if err != nil {
		d.logger.Debug().Err(err).Str("state", in.State.String()).Msg("skipping action")
		return err
	}

	clicked := 0
	defer func() {
		if clicked > 0 {
			d.fired(in)
		}
	}()
	for i := 0; i < action.clicks(); i++ {
		if i > 0 && action.IntervalMS > 0 {
			if err := d.sleep(ctx, time.Duration(action.IntervalMS)*time.Millisecond); err != nil {
				return err
			}
		}
		if err := d.clicker.Click(ctx, x, y); err != nil {
			return fmt.Errorf("click %s at (%d, %d): %w", in.State, x, y, err)
		}
		clicked++
	}

	d.logger.Info().
		Str("state", in.State.String()).
		Int("x", x).
		Int("y", y).
		Int("clicks", clicked).
		Msg("action dispatched")
	return nil
}

// enter drops whatever was owed for the previous state and owes the entry
// action for state.
func (d *ClickDispatcher) enter(state models.GameState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.owed)
	if _, ok := d.table[state]; ok {
		d.owed[state] = true
	}
}

func (d *ClickDispatcher) fired(in Input) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.owed, in.State)
	d.lastFired[in.State] = in.At
}

func (d *ClickDispatcher) due(in Input, action Action) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.owed[in.State] {
		return true
	}
	if action.RepeatEveryMS <= 0 {
		return false
	}

	last, ok := d.lastFired[in.State]
	if !ok || last.Before(in.StateSince) {
		last = in.StateSince
	}
	return in.At.Sub(last) >= time.Duration(action.RepeatEveryMS)*time.Millisecond
}

func (d *ClickDispatcher) target(in Input, action Action) (int, int, error) {
	if action.Point != "" {
		point, ok := d.points[action.Point]
		if !ok {
			return 0, 0, fmt.Errorf("%w: click point %s", ErrNoTarget, action.Point)
		}
		return in.Window.X + point.X, in.Window.Y + point.Y, nil
	}

	result, ok := in.Results.Get(action.Detector)
	if !ok || !result.Found || result.BBox == nil || result.BBox.IsEmpty() {
		return 0, 0, fmt.Errorf("%w: detector %s", ErrNoTarget, action.Detector)
	}
	cx, cy := result.BBox.Center()
	return in.Window.X + cx, in.Window.Y + cy, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// LogClicker records clicks without injecting input.
type LogClicker struct {
	logger zerolog.Logger
}

// NewLogClicker creates a dry-run clicker.
func NewLogClicker() *LogClicker {
	return &LogClicker{logger: logging.Component("clicker")}
}

// Click logs the coordinates.
func (c *LogClicker) Click(_ context.Context, x, y int) error {
	c.logger.Info().Int("x", x).Int("y", y).Msg("dry-run click")
	return nil
}

// Nop ignores every input.
type Nop struct{}

// Dispatch does nothing.
func (Nop) Dispatch(context.Context, Input) error { return nil }
