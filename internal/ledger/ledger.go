// Package ledger records death events durably and replays them in order.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/screenwatch/screenwatch/internal/db"
	"github.com/screenwatch/screenwatch/internal/logging"
	"github.com/screenwatch/screenwatch/internal/models"
	"github.com/screenwatch/screenwatch/internal/session"
)

// ErrLedgerWrite wraps storage failures during Append.
var ErrLedgerWrite = errors.New("ledger write failed")

// Store is the persistence the ledger needs.
type Store interface {
	Insert(ctx context.Context, event *models.DeathEvent) error
	List(ctx context.Context, q db.DeathEventQuery) ([]*models.DeathEvent, error)
	LastOccurredAt(ctx context.Context, sessionID string) (time.Time, bool, error)
}

// HistoryFilter narrows History output.
type HistoryFilter struct {
	// SessionID restricts results to one session when non-empty.
	SessionID string
}

// Ledger is the append-only death event log.
//
// Appends are serialised and return only after the row is committed.
// History pages through storage without holding the append lock, so a
// reader waits on a writer for at most one insert.
type Ledger struct {
	store         Store
	logger        zerolog.Logger
	now           func() time.Time
	pageSize      int
	minConfidence float64

	mu   sync.Mutex
	last map[string]time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used by Append.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithPageSize sets how many rows History reads per storage query.
func WithPageSize(size int) Option {
	return func(l *Ledger) {
		if size > 0 {
			l.pageSize = size
		}
	}
}

// WithMinNameConfidence sets the OCR confidence below which a name reading
// is stored as unknown.
func WithMinNameConfidence(confidence float64) Option {
	return func(l *Ledger) {
		l.minConfidence = confidence
	}
}

// New creates a Ledger over store.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:    store,
		logger:   logging.Component("ledger"),
		now:      time.Now,
		pageSize: 100,
		last:     make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append records a death for sess now, using playerName as read.
func (l *Ledger) Append(ctx context.Context, sess models.Session, playerName string) (*models.DeathEvent, error) {
	return l.AppendAt(ctx, sess, NameReading{Text: playerName, Confidence: 1}, l.now())
}

// AppendAt records a death observed at occurredAt. A reading without a
// usable name is stored as models.UnknownPlayerName; it never fails the
// append.
func (l *Ledger) AppendAt(ctx context.Context, sess models.Session, reading NameReading, occurredAt time.Time) (*models.DeathEvent, error) {
	if sess.ID == "" {
		return nil, session.ErrNoActiveSession
	}

	name, err := ExtractPlayerName(reading, l.minConfidence)
	if err != nil {
		l.logger.Warn().
			Str("session_id", sess.ID).
			Str("ocr_text", reading.Text).
			Float64("confidence", reading.Confidence).
			Msg("player name unreadable, recording as unknown")
		name = models.UnknownPlayerName
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	occurredAt = occurredAt.UTC()
	last, err := l.lastFor(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLedgerWrite, err)
	}
	if occurredAt.Before(last) {
		occurredAt = last
	}

	event := &models.DeathEvent{
		SessionID:        sess.ID,
		SessionStartedAt: sess.StartedAt.UTC(),
		OccurredAt:       occurredAt,
		PlayerName:       name,
	}
	if err := l.store.Insert(ctx, event); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLedgerWrite, err)
	}
	l.last[sess.ID] = occurredAt

	l.logger.Info().
		Int64("id", event.ID).
		Str("session_id", event.SessionID).
		Str("player_name", event.PlayerName).
		Time("occurred_at", event.OccurredAt).
		Msg("death recorded")

	return event, nil
}

func (l *Ledger) lastFor(ctx context.Context, sessionID string) (time.Time, error) {
	if last, ok := l.last[sessionID]; ok {
		return last, nil
	}
	last, ok, err := l.store.LastOccurredAt(ctx, sessionID)
	if err != nil {
		return time.Time{}, err
	}
	if ok {
		l.last[sessionID] = last
	}
	return last, nil
}

// History yields recorded deaths in insertion order. Each call reads from
// storage from the beginning, so the sequence can be ranged over again.
// Iteration stops at the first storage error, which is yielded once.
func (l *Ledger) History(ctx context.Context, filter HistoryFilter) iter.Seq2[*models.DeathEvent, error] {
	return func(yield func(*models.DeathEvent, error) bool) {
		q := db.DeathEventQuery{Limit: l.pageSize}
		if filter.SessionID != "" {
			sessionID := filter.SessionID
			q.SessionID = &sessionID
		}

		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			page, err := l.store.List(ctx, q)
			if err != nil {
				yield(nil, fmt.Errorf("read ledger history: %w", err))
				return
			}
			for _, event := range page {
				if !yield(event, nil) {
					return
				}
			}
			if len(page) < q.Limit {
				return
			}
			q.AfterID = page[len(page)-1].ID
		}
	}
}

// Collect drains History into a slice.
func (l *Ledger) Collect(ctx context.Context, filter HistoryFilter) ([]*models.DeathEvent, error) {
	var events []*models.DeathEvent
	for event, err := range l.History(ctx, filter) {
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}
