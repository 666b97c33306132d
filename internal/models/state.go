// Package models defines the core data types shared across screenwatch.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownState is returned when a state name is not in the closed set.
var ErrUnknownState = errors.New("unknown game state")

// GameState is the resolved classification of what the game client is showing.
// The set of states is closed: new states are added here, never built from
// free-form strings at the call site.
type GameState string

const (
	GameStateUnknown      GameState = "UNKNOWN"
	GameStateInRun        GameState = "IN_RUN"
	GameStateDead         GameState = "DEAD"
	GameStateNetReveal    GameState = "NET_REVEAL"
	GameStateMenu         GameState = "MENU"
	GameStateLoading      GameState = "LOADING"
	GameStateDisconnected GameState = "DISCONNECTED"
)

// GameStates lists every member of the closed state set in declaration order.
func GameStates() []GameState {
	return []GameState{
		GameStateUnknown,
		GameStateInRun,
		GameStateDead,
		GameStateNetReveal,
		GameStateMenu,
		GameStateLoading,
		GameStateDisconnected,
	}
}

// IsValid reports whether s is a member of the closed state set.
func (s GameState) IsValid() bool {
	for _, known := range GameStates() {
		if s == known {
			return true
		}
	}
	return false
}

func (s GameState) String() string {
	return string(s)
}

// ParseGameState converts a configuration value into a GameState.
// Matching is case-insensitive and tolerates surrounding whitespace.
func ParseGameState(value string) (GameState, error) {
	normalized := GameState(strings.ToUpper(strings.TrimSpace(value)))
	if !normalized.IsValid() {
		return "", fmt.Errorf("%w %q", ErrUnknownState, value)
	}
	return normalized, nil
}
