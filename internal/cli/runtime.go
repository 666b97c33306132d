package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/screenwatch/screenwatch/internal/actions"
	"github.com/screenwatch/screenwatch/internal/config"
	"github.com/screenwatch/screenwatch/internal/db"
	"github.com/screenwatch/screenwatch/internal/detect"
	"github.com/screenwatch/screenwatch/internal/ledger"
	"github.com/screenwatch/screenwatch/internal/scanner"
	"github.com/screenwatch/screenwatch/internal/session"
	"github.com/screenwatch/screenwatch/internal/state"
)

// agentRuntime is everything a scanning command needs, wired from config.
type agentRuntime struct {
	database *db.DB
	source   *detect.JSONLSource
	ledger   *ledger.Ledger
	events   *db.EventRepository
	scanner  *scanner.Scanner
}

type runtimeOptions struct {
	sourcePath string
	dryRun     bool
}

func buildRuntime(ctx context.Context, cfg *config.Config, opts runtimeOptions) (*agentRuntime, error) {
	progress := newStartup()

	var (
		table       *state.RuleTable
		actionTable actions.Table
		clicker     actions.Clicker
	)
	err := progress.step("Loading rules", func() error {
		var err error
		if table, err = cfg.RuleTable(); err != nil {
			return &ConfigError{Err: err}
		}
		if actionTable, err = cfg.ActionTable(); err != nil {
			return &ConfigError{Err: err}
		}
		if clicker, err = buildClicker(cfg, opts.dryRun); err != nil {
			return &ConfigError{Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var database *db.DB
	if err := progress.step("Opening ledger", func() error {
		database, err = openDatabase(ctx)
		return err
	}); err != nil {
		return nil, err
	}

	var source *detect.JSONLSource
	if err := progress.step("Opening frame source", func() error {
		source, err = detect.OpenJSONLSource(opts.sourcePath, detect.NewSuite(cfg.Catalog(), nil))
		return err
	}); err != nil {
		database.Close()
		return nil, err
	}

	rt := &agentRuntime{
		database: database,
		source:   source,
		ledger: ledger.New(
			db.NewDeathEventRepository(database),
			ledger.WithMinNameConfidence(cfg.OCR.NameMinConfidence),
		),
		events: db.NewEventRepository(database),
	}

	rt.scanner, err = scanner.New(scanner.Config{
		Interval:          cfg.Scan.Interval(),
		MinSleep:          cfg.Scan.MinSleep(),
		RecordTransitions: cfg.Scan.RecordTransitions,
	}, scanner.Deps{
		Source:     source,
		Resolver:   state.NewResolver(table),
		Sessions:   session.NewManager(),
		Ledger:     rt.ledger,
		Dispatcher: actions.NewClickDispatcher(actionTable, cfg.ClickPoints, clicker),
		Events:     rt.events,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func buildClicker(cfg *config.Config, dryRun bool) (actions.Clicker, error) {
	if dryRun || len(cfg.Clicker.Command) == 0 {
		return actions.NewLogClicker(), nil
	}
	clicker, err := actions.NewExecClicker(cfg.Clicker.Command)
	if err != nil {
		return nil, fmt.Errorf("clicker.command: %w", err)
	}
	return clicker, nil
}

// Close stops the scanner if needed and releases the source and database.
func (r *agentRuntime) Close() error {
	var errs []error
	if r.scanner != nil && r.scanner.Running() {
		if err := r.scanner.Stop(); err != nil && !errors.Is(err, scanner.ErrScannerNotRunning) {
			errs = append(errs, err)
		}
	}
	if r.source != nil {
		errs = append(errs, r.source.Close())
	}
	if r.database != nil {
		errs = append(errs, r.database.Close())
	}
	return errors.Join(errs...)
}
