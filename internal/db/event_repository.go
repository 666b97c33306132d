package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/screenwatch/screenwatch/internal/models"
)

var ErrInvalidEvent = errors.New("invalid event")

// EventRepository persists the audit log. Entries are never updated.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// EventQuery selects a page of audit entries in insertion order.
type EventQuery struct {
	Type      *models.EventType
	SessionID *string
	AfterSeq  int64 // entries with seq strictly greater than this
	Limit     int   // defaults to 100
}

// EventPage is one page of entries. NextSeq is zero on the last page.
type EventPage struct {
	Events  []*models.Event
	NextSeq int64
}

// Create appends event. A missing id or timestamp is filled in, and Seq is
// set from the inserted row.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event == nil {
		return ErrInvalidEvent
	}
	if err := event.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Timestamp = event.Timestamp.UTC()

	var payload sql.NullString
	if len(event.Payload) > 0 {
		payload = sql.NullString{String: string(event.Payload), Valid: true}
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO events (id, timestamp, type, session_id, payload_json) VALUES (?, ?, ?, ?, ?)`,
		event.ID, formatTime(event.Timestamp), string(event.Type), event.SessionID, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert %s event: %w", event.Type, err)
	}
	if event.Seq, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read event seq: %w", err)
	}
	return nil
}

// Query returns one page of entries matching q.
func (r *EventRepository) Query(ctx context.Context, q EventQuery) (*EventPage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	where := []string{"seq > ?"}
	args := []any{q.AfterSeq}
	if q.Type != nil {
		where = append(where, "type = ?")
		args = append(args, string(*q.Type))
	}
	if q.SessionID != nil {
		where = append(where, "session_id = ?")
		args = append(args, *q.SessionID)
	}
	args = append(args, limit+1)

	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, id, timestamp, type, session_id, payload_json FROM events WHERE `+
			strings.Join(where, " AND ")+` ORDER BY seq LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	page := &EventPage{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		page.Events = append(page.Events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	if len(page.Events) > limit {
		page.Events = page.Events[:limit]
		page.NextSeq = page.Events[limit-1].Seq
	}
	return page, nil
}

// ListSessions returns every recorded session start, oldest first.
func (r *EventRepository) ListSessions(ctx context.Context) ([]models.Session, error) {
	eventType := models.EventTypeSessionStarted
	q := EventQuery{Type: &eventType, Limit: 500}

	var sessions []models.Session
	for {
		page, err := r.Query(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, event := range page.Events {
			sess := models.Session{ID: event.SessionID, StartedAt: event.Timestamp}
			var payload models.SessionStartedPayload
			if len(event.Payload) > 0 && json.Unmarshal(event.Payload, &payload) == nil && !payload.StartedAt.IsZero() {
				sess.StartedAt = payload.StartedAt.UTC()
			}
			sessions = append(sessions, sess)
		}
		if page.NextSeq == 0 {
			return sessions, nil
		}
		q.AfterSeq = page.NextSeq
	}
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var event models.Event
	var timestamp, eventType string
	var payload sql.NullString

	if err := row.Scan(&event.Seq, &event.ID, &timestamp, &eventType, &event.SessionID, &payload); err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}

	var err error
	if event.Timestamp, err = parseTime(timestamp); err != nil {
		return nil, fmt.Errorf("event %d: bad timestamp: %w", event.Seq, err)
	}
	event.Type = models.EventType(eventType)
	if payload.Valid {
		event.Payload = json.RawMessage(payload.String)
	}
	return &event, nil
}
