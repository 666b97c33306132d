package models

import (
	"encoding/json"
	"strings"
	"time"
)

// EventType categorizes audit log entries.
type EventType string

const (
	EventTypeSessionStarted    EventType = "session.started"
	EventTypeStateChanged      EventType = "state.changed"
	EventTypeLedgerWriteFailed EventType = "ledger.write_failed"
)

// EventTypes lists the audit event types in the order they are documented.
func EventTypes() []EventType {
	return []EventType{EventTypeSessionStarted, EventTypeStateChanged, EventTypeLedgerWriteFailed}
}

// Event is one append-only audit log entry. Every entry belongs to a session.
type Event struct {
	// Seq is assigned by storage and orders entries by insertion.
	Seq int64 `json:"seq"`

	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Type      EventType       `json:"type"`
	SessionID string          `json:"session_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Validate checks the fields a caller must supply.
func (e *Event) Validate() error {
	validation := &ValidationErrors{}
	if strings.TrimSpace(string(e.Type)) == "" {
		validation.AddMessage("type", "event type is required")
	}
	if strings.TrimSpace(e.SessionID) == "" {
		validation.AddMessage("session_id", "session id is required")
	}
	return validation.Err()
}

// SessionStartedPayload is the payload for session.started events.
type SessionStartedPayload struct {
	StartedAt time.Time `json:"started_at"`
	Reason    string    `json:"reason,omitempty"`
}

// StateChangedPayload is the payload for state.changed events.
type StateChangedPayload struct {
	OldState GameState `json:"old_state"`
	NewState GameState `json:"new_state"`
	Rule     string    `json:"rule,omitempty"`
}

// LedgerWriteFailedPayload is the payload for ledger.write_failed events.
type LedgerWriteFailedPayload struct {
	OccurredAt time.Time `json:"occurred_at"`
	PlayerName string    `json:"player_name"`
	Error      string    `json:"error"`
	Attempts   int       `json:"attempts"`
}
