package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/screenwatch/screenwatch/internal/models"
)

// Death event repository errors.
var (
	ErrDeathEventNotFound = errors.New("death event not found")
	ErrInvalidDeathEvent  = errors.New("invalid death event")
)

// DeathEventRepository persists ledger rows. Rows are only ever inserted.
type DeathEventRepository struct {
	db *DB
}

// NewDeathEventRepository creates a new DeathEventRepository.
func NewDeathEventRepository(db *DB) *DeathEventRepository {
	return &DeathEventRepository{db: db}
}

// DeathEventQuery selects a page of ledger rows in insertion order.
type DeathEventQuery struct {
	SessionID *string // Filter by session
	AfterID   int64   // Rows with id strictly greater than this
	Limit     int     // Max rows; defaults to 100
}

// Insert writes event and sets its ID. The insert is committed before
// Insert returns.
func (r *DeathEventRepository) Insert(ctx context.Context, event *models.DeathEvent) error {
	if event == nil || strings.TrimSpace(event.SessionID) == "" || event.OccurredAt.IsZero() || event.PlayerName == "" {
		return ErrInvalidDeathEvent
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO death_events (
			session_id, session_started_at, occurred_at, player_name
		) VALUES (?, ?, ?, ?)
	`,
		event.SessionID,
		formatTime(event.SessionStartedAt),
		formatTime(event.OccurredAt),
		event.PlayerName,
	)
	if err != nil {
		return fmt.Errorf("failed to insert death event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read death event id: %w", err)
	}
	event.ID = id
	event.SessionStartedAt = event.SessionStartedAt.UTC()
	event.OccurredAt = event.OccurredAt.UTC()
	return nil
}

// Get retrieves a ledger row by id.
func (r *DeathEventRepository) Get(ctx context.Context, id int64) (*models.DeathEvent, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, session_id, session_started_at, occurred_at, player_name
		FROM death_events WHERE id = ?
	`, id)

	event, err := scanDeathEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeathEventNotFound
	}
	return event, err
}

// List returns one page of rows ordered by id.
func (r *DeathEventRepository) List(ctx context.Context, q DeathEventQuery) ([]*models.DeathEvent, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, session_id, session_started_at, occurred_at, player_name FROM death_events WHERE id > ?`
	args := []any{q.AfterID}
	if q.SessionID != nil {
		query += ` AND session_id = ?`
		args = append(args, *q.SessionID)
	}
	query += ` ORDER BY id LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query death events: %w", err)
	}
	defer rows.Close()

	var events []*models.DeathEvent
	for rows.Next() {
		event, err := scanDeathEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating death events: %w", err)
	}
	return events, nil
}

// LastOccurredAt returns the occurred_at of the newest row for a session.
func (r *DeathEventRepository) LastOccurredAt(ctx context.Context, sessionID string) (time.Time, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `
		SELECT occurred_at FROM death_events
		WHERE session_id = ?
		ORDER BY id DESC LIMIT 1
	`, sessionID).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read last death event: %w", err)
	}
	at, err := parseTime(value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("bad occurred_at for session %s: %w", sessionID, err)
	}
	return at, true, nil
}

// CountBySession returns the number of deaths per session id.
func (r *DeathEventRepository) CountBySession(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, COUNT(*) FROM death_events GROUP BY session_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count death events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var sessionID string
		var count int
		if err := rows.Scan(&sessionID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan death count: %w", err)
		}
		counts[sessionID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating death counts: %w", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeathEvent(row rowScanner) (*models.DeathEvent, error) {
	var event models.DeathEvent
	var sessionStartedAt, occurredAt string

	if err := row.Scan(
		&event.ID,
		&event.SessionID,
		&sessionStartedAt,
		&occurredAt,
		&event.PlayerName,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan death event: %w", err)
	}

	var err error
	if event.SessionStartedAt, err = parseTime(sessionStartedAt); err != nil {
		return nil, fmt.Errorf("death event %d: bad session_started_at: %w", event.ID, err)
	}
	if event.OccurredAt, err = parseTime(occurredAt); err != nil {
		return nil, fmt.Errorf("death event %d: bad occurred_at: %w", event.ID, err)
	}
	return &event, nil
}
