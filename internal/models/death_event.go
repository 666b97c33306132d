package models

import "time"

// UnknownPlayerName is stored when no usable player name could be read.
const UnknownPlayerName = "unknown"

// DeathEvent is one append-only ledger record.
type DeathEvent struct {
	// ID is the ledger row id; it increases with insertion order.
	ID int64 `json:"id"`

	// SessionID is the session the death occurred in.
	SessionID string `json:"session_id"`

	// SessionStartedAt is when that session was started.
	SessionStartedAt time.Time `json:"session_started_at"`

	// OccurredAt is when the DEAD transition was observed.
	OccurredAt time.Time `json:"occurred_at"`

	// PlayerName is the OCR-extracted name, or UnknownPlayerName.
	PlayerName string `json:"player_name"`
}
