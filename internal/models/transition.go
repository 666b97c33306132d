package models

import "time"

// Transition records a change in resolved state between consecutive scans.
type Transition struct {
	From GameState `json:"from"`
	To   GameState `json:"to"`
	At   time.Time `json:"at"`
}
