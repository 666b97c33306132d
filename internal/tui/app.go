// Package tui implements the screenwatch live view.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/screenwatch/screenwatch/internal/ledger"
	"github.com/screenwatch/screenwatch/internal/models"
	"github.com/screenwatch/screenwatch/internal/scanner"
	"github.com/screenwatch/screenwatch/internal/tui/components"
	"github.com/screenwatch/screenwatch/internal/tui/styles"
)

// Controller is the part of the scanner the view drives.
type Controller interface {
	Start(ctx context.Context) error
	Stop() error
	Restart(ctx context.Context) models.Session
	ScanOnce(ctx context.Context) scanner.ScanEvent
	Running() bool
	Stats() scanner.Stats
	Events() <-chan scanner.ScanEvent
}

// HistoryReader loads recorded deaths.
type HistoryReader interface {
	Collect(ctx context.Context, filter ledger.HistoryFilter) ([]*models.DeathEvent, error)
}

// Config configures the live view.
type Config struct {
	Scanner Controller
	History HistoryReader
	Theme   string
}

// RunWithConfig launches the live view and blocks until it exits. A
// running scanner is stopped on exit.
func RunWithConfig(cfg Config) error {
	if cfg.Scanner == nil {
		return fmt.Errorf("scanner is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	program := tea.NewProgram(newModel(ctx, cfg), tea.WithAltScreen())
	_, err := program.Run()

	if cfg.Scanner.Running() {
		if stopErr := cfg.Scanner.Stop(); stopErr != nil && !errors.Is(stopErr, scanner.ErrScannerNotRunning) {
			err = errors.Join(err, stopErr)
		}
	}
	return err
}

type model struct {
	ctx     context.Context
	cfg     Config
	styles  styles.Styles
	width   int
	height  int
	now     time.Time
	stats   scanner.Stats
	log     []logLine
	deaths  []*models.DeathEvent
	lastErr error
}

const (
	minWidth   = 50
	minHeight  = 14
	maxLogSize = 200
	deathRows  = 8
)

func newModel(ctx context.Context, cfg Config) model {
	return model{
		ctx:    ctx,
		cfg:    cfg,
		styles: styles.StylesFor(cfg.Theme),
		now:    time.Now(),
		stats:  cfg.Scanner.Stats(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitForScan(m.cfg.Scanner.Events()))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.now = time.Time(msg)
		m.stats = m.cfg.Scanner.Stats()
		return m, tickCmd()
	case scanMsg:
		m = m.applyScan(scanner.ScanEvent(msg))
		return m, tea.Batch(waitForScan(m.cfg.Scanner.Events()), m.loadDeaths())
	case controlMsg:
		m.stats = m.cfg.Scanner.Stats()
		m.lastErr = msg.err
		if msg.note != "" {
			m = m.appendLog(logLine{at: msg.at, text: msg.note, kind: lineInfo})
		}
		if msg.err != nil {
			m = m.appendLog(logLine{at: msg.at, text: msg.err.Error(), kind: lineError})
		}
		return m, m.loadDeaths()
	case deathsMsg:
		if msg.err != nil {
			m.lastErr = msg.err
		} else {
			m.deaths = msg.deaths
		}
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "f5":
		return m, m.control(func() (string, error) {
			if err := m.cfg.Scanner.Start(m.ctx); err != nil {
				return "", err
			}
			return "scanning started", nil
		})
	case "f8":
		return m, m.control(func() (string, error) {
			if err := m.cfg.Scanner.Stop(); err != nil {
				return "", err
			}
			return "scanning stopped", nil
		})
	case "f1":
		return m, m.control(func() (string, error) {
			m.cfg.Scanner.ScanOnce(m.ctx)
			return "", nil
		})
	case "r":
		return m, m.control(func() (string, error) {
			sess := m.cfg.Scanner.Restart(m.ctx)
			return fmt.Sprintf("restarted, session %s", shortID(sess.ID)), nil
		})
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m model) applyScan(event scanner.ScanEvent) model {
	m.stats = m.cfg.Scanner.Stats()
	if event.Transition != nil {
		m = m.appendLog(logLine{
			at:   event.Transition.At,
			text: fmt.Sprintf("%s -> %s", event.Transition.From, event.Transition.To),
			kind: lineTransition,
		})
	}
	for _, death := range event.Deaths {
		m = m.appendLog(logLine{
			at:   death.OccurredAt,
			text: fmt.Sprintf("death recorded: %s", death.PlayerName),
			kind: lineDeath,
		})
	}
	if event.Err != nil {
		m.lastErr = event.Err
		m = m.appendLog(logLine{at: event.At, text: event.Err.Error(), kind: lineError})
	}
	return m
}

func (m model) appendLog(line logLine) model {
	m.log = append(m.log, line)
	if len(m.log) > maxLogSize {
		m.log = m.log[len(m.log)-maxLogSize:]
	}
	return m
}

func (m model) View() string {
	if m.width > 0 && m.height > 0 && (m.width < minWidth || m.height < minHeight) {
		return joinLines([]string{
			m.styles.Warning.Render(fmt.Sprintf("Terminal too small (%dx%d).", m.width, m.height)),
			m.styles.Muted.Render(fmt.Sprintf("Resize to at least %dx%d.", minWidth, minHeight)),
		}) + "\n"
	}

	lines := []string{m.styles.Title.Render("screenwatch"), ""}
	lines = append(lines, m.statusLines()...)
	lines = append(lines, "", m.styles.Accent.Render("Deaths"))
	if m.stats.SessionID == "" {
		lines = append(lines, components.NoSession().Render(m.styles))
	} else {
		lines = append(lines, components.RenderDeathList(m.styles, m.deaths, deathRows))
	}
	lines = append(lines, "", m.styles.Accent.Render("Activity"))
	lines = append(lines, m.logLines(m.logRows())...)
	lines = append(lines, "", m.helpLine())

	return joinLines(lines) + "\n"
}

func (m model) statusLines() []string {
	running := m.styles.StateIdle.Render("stopped")
	if m.stats.Running {
		running = m.styles.Success.Render("scanning")
	}

	session := "--"
	if m.stats.SessionID != "" {
		session = shortID(m.stats.SessionID)
	}

	lines := []string{
		fmt.Sprintf("State:    %s  %s", components.RenderStateBadge(m.styles, m.stats.State), m.styles.Muted.Render(m.sinceLabel())),
		fmt.Sprintf("Scanner:  %s", running),
		fmt.Sprintf("Session:  %s", m.styles.Text.Render(session)),
		m.styles.Muted.Render(fmt.Sprintf("Cycles %d  Transitions %d  Deaths %d  Pending %d",
			m.stats.Cycles, m.stats.Transitions, m.stats.Deaths, m.stats.PendingDeaths)),
	}
	if m.lastErr != nil {
		lines = append(lines, m.styles.Error.Render("Last error: "+m.lastErr.Error()))
	}
	if m.stats.PendingDeaths > 0 {
		lines = append(lines, m.styles.Error.Render(fmt.Sprintf("%d death(s) waiting for the ledger", m.stats.PendingDeaths)))
	}
	return lines
}

func (m model) sinceLabel() string {
	if m.stats.StateSince.IsZero() || m.now.IsZero() {
		return ""
	}
	d := m.now.Sub(m.stats.StateSince)
	if d < 0 {
		d = 0
	}
	return "for " + d.Truncate(time.Second).String()
}

func (m model) logRows() int {
	if m.height <= 0 {
		return 10
	}
	rows := m.height - 22
	if rows < 3 {
		rows = 3
	}
	return rows
}

func (m model) logLines(limit int) []string {
	if len(m.log) == 0 {
		return []string{m.styles.Muted.Render("Waiting for scans.")}
	}
	start := 0
	if len(m.log) > limit {
		start = len(m.log) - limit
	}
	lines := make([]string, 0, len(m.log)-start)
	for _, line := range m.log[start:] {
		lines = append(lines, fmt.Sprintf("%s  %s",
			m.styles.Muted.Render(line.at.Local().Format("15:04:05")),
			m.lineStyle(line.kind).Render(line.text)))
	}
	return lines
}

func (m model) helpLine() string {
	keys := []string{
		m.styles.Key.Render("F5") + " start",
		m.styles.Key.Render("F8") + " stop",
		m.styles.Key.Render("F1") + " scan once",
		m.styles.Key.Render("r") + " restart",
		m.styles.Key.Render("q") + " quit",
	}
	return m.styles.Muted.Render(strings.Join(keys, "  "))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
