// Package session manages the lifetime of run sessions.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/screenwatch/screenwatch/internal/models"
)

// ErrNoActiveSession is returned when a session is required before any
// session has been started.
var ErrNoActiveSession = errors.New("no active session")

// Manager owns the active session. Every explicit start or restart creates
// a new session; sessions are never mutated after creation.
type Manager struct {
	mu      sync.RWMutex
	current *models.Session
	now     func() time.Time
	newID   func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithIDGenerator overrides session id generation.
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) {
		m.newID = newID
	}
}

// NewManager creates a Manager with no active session.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start creates a new session and makes it the active one.
func (m *Manager) Start() models.Session {
	sess := models.Session{
		ID:        m.newID(),
		StartedAt: m.now().UTC(),
	}

	m.mu.Lock()
	m.current = &sess
	m.mu.Unlock()

	return sess
}

// Current returns the active session or ErrNoActiveSession.
func (m *Manager) Current() (models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return models.Session{}, ErrNoActiveSession
	}
	return *m.current, nil
}
