package state

import (
	"time"

	"github.com/screenwatch/screenwatch/internal/models"
)

// Tracker holds the current state and reports transitions.
//
// A Tracker has a single writer: the scan loop that owns it. It is not safe
// for concurrent use.
type Tracker struct {
	current models.GameState
	since   time.Time
	now     func() time.Time
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithClock overrides the tracker's time source.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates a tracker in the UNKNOWN state.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		current: models.GameStateUnknown,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.since = t.now().UTC()
	return t
}

// Observe compares next with the current state. When they differ the
// current state is replaced and a transition is returned; otherwise nil.
func (t *Tracker) Observe(next models.GameState) *models.Transition {
	if next == t.current {
		return nil
	}

	at := t.now().UTC()
	transition := &models.Transition{
		From: t.current,
		To:   next,
		At:   at,
	}
	t.current = next
	t.since = at
	return transition
}

// Current returns the current state.
func (t *Tracker) Current() models.GameState {
	return t.current
}

// Since returns when the current state was entered.
func (t *Tracker) Since() time.Time {
	return t.since
}

// Reset returns the tracker to UNKNOWN without emitting a transition.
func (t *Tracker) Reset() {
	t.current = models.GameStateUnknown
	t.since = t.now().UTC()
}
