package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/screenwatch/screenwatch/internal/ledger"
	"github.com/screenwatch/screenwatch/internal/models"
	"github.com/screenwatch/screenwatch/internal/scanner"
)

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// scanMsg carries one scanner event into the update loop.
type scanMsg scanner.ScanEvent

// waitForScan blocks on the scanner's event channel. It is re-issued
// after every event.
func waitForScan(events <-chan scanner.ScanEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return scanMsg(event)
	}
}

// controlMsg reports the outcome of a hotkey action.
type controlMsg struct {
	at   time.Time
	note string
	err  error
}

func (m model) control(action func() (string, error)) tea.Cmd {
	return func() tea.Msg {
		note, err := action()
		return controlMsg{at: time.Now(), note: note, err: err}
	}
}

type deathsMsg struct {
	deaths []*models.DeathEvent
	err    error
}

func (m model) loadDeaths() tea.Cmd {
	sessionID := m.cfg.Scanner.Stats().SessionID
	if m.cfg.History == nil || sessionID == "" {
		return nil
	}
	history := m.cfg.History
	ctx := m.ctx
	return func() tea.Msg {
		deaths, err := history.Collect(ctx, ledger.HistoryFilter{SessionID: sessionID})
		return deathsMsg{deaths: deaths, err: err}
	}
}

type lineKind int

const (
	lineInfo lineKind = iota
	lineTransition
	lineDeath
	lineError
)

type logLine struct {
	at   time.Time
	text string
	kind lineKind
}

func (m model) lineStyle(kind lineKind) lipgloss.Style {
	switch kind {
	case lineTransition:
		return m.styles.Info
	case lineDeath:
		return m.styles.StateDanger
	case lineError:
		return m.styles.Error
	default:
		return m.styles.Text
	}
}
