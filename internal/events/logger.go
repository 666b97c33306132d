// Package events provides helper functions for writing audit events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/screenwatch/screenwatch/internal/models"
)

// Repository is the minimal interface needed to write events.
type Repository interface {
	Create(ctx context.Context, event *models.Event) error
}

// LogSessionStarted records the start of a run session.
func LogSessionStarted(ctx context.Context, repo Repository, sess models.Session, reason string) error {
	if sess.ID == "" {
		return fmt.Errorf("session id is required")
	}
	return logEvent(ctx, repo, sess.StartedAt, models.EventTypeSessionStarted, sess.ID,
		models.SessionStartedPayload{StartedAt: sess.StartedAt, Reason: reason})
}

// LogStateChanged records a resolved state transition within a session.
func LogStateChanged(ctx context.Context, repo Repository, sessionID string, transition models.Transition, rule string) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	return logEvent(ctx, repo, transition.At, models.EventTypeStateChanged, sessionID,
		models.StateChangedPayload{OldState: transition.From, NewState: transition.To, Rule: rule})
}

// LogLedgerWriteFailed records a death that could not yet be persisted.
func LogLedgerWriteFailed(ctx context.Context, repo Repository, sessionID string, payload models.LedgerWriteFailedPayload) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	return logEvent(ctx, repo, time.Time{}, models.EventTypeLedgerWriteFailed, sessionID, payload)
}

func logEvent(ctx context.Context, repo Repository, at time.Time, eventType models.EventType, sessionID string, payload any) error {
	if repo == nil {
		return fmt.Errorf("event repository is required")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	return repo.Create(ctx, &models.Event{
		Timestamp: at,
		Type:      eventType,
		SessionID: sessionID,
		Payload:   data,
	})
}
