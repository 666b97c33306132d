package models

import "time"

// Session is one logical play-run, bounded by an explicit start command.
type Session struct {
	// ID is the opaque unique identifier of the session.
	ID string `json:"id"`

	// StartedAt is when the session was started.
	StartedAt time.Time `json:"started_at"`
}

// IsZero reports whether the session has not been initialised.
func (s Session) IsZero() bool {
	return s.ID == "" && s.StartedAt.IsZero()
}

// SessionSummary describes a recorded session for reporting.
type SessionSummary struct {
	Session
	Deaths int `json:"deaths"`
}
