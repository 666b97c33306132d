package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/screenwatch/screenwatch/internal/detect"
	"github.com/screenwatch/screenwatch/internal/models"
	"github.com/screenwatch/screenwatch/internal/scanner"
)

var (
	runSource string
	runDryRun bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runSource, "source", "-", "JSONL frame source file, or - for stdin")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "log clicks instead of injecting them")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scan loop headless",
	Long: `Run the scan loop against a frame source until it is exhausted or interrupted.

Each line of the source is one scan: precomputed detector results and/or OCR
hits, the window rectangle, and the name region text. SIGHUP starts a new
session without stopping the loop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := buildRuntime(ctx, GetConfig(), runtimeOptions{sourcePath: runSource, dryRun: runDryRun})
		if err != nil {
			return err
		}
		defer rt.Close()

		return runLoop(ctx, rt.scanner, cmd.OutOrStdout())
	},
}

func runLoop(ctx context.Context, sc *scanner.Scanner, out io.Writer) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, append([]os.Signal{os.Interrupt, syscall.SIGTERM}, restartSignals...)...)
	defer signal.Stop(signals)

	if err := sc.Start(ctx); err != nil {
		return err
	}
	done := sc.Done()

	for {
		select {
		case event := <-sc.Events():
			if err := printScanEvent(out, event); err != nil {
				return err
			}
		case sig := <-signals:
			if isRestartSignal(sig) {
				sc.Restart(ctx)
				continue
			}
			if err := sc.Stop(); err != nil && !errors.Is(err, scanner.ErrScannerNotRunning) {
				return err
			}
			return drainEvents(sc, out)
		case <-done:
			return drainEvents(sc, out)
		}
	}
}

func drainEvents(sc *scanner.Scanner, out io.Writer) error {
	for {
		select {
		case event := <-sc.Events():
			if err := printScanEvent(out, event); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// scanEventView is the JSON line emitted per cycle with --jsonl.
type scanEventView struct {
	At         time.Time            `json:"at"`
	SessionID  string               `json:"session_id,omitempty"`
	State      models.GameState     `json:"state"`
	Rule       string               `json:"rule,omitempty"`
	Transition *models.Transition   `json:"transition,omitempty"`
	Deaths     []*models.DeathEvent `json:"deaths,omitempty"`
	Missing    []string             `json:"missing,omitempty"`
	Error      string               `json:"error,omitempty"`
}

func printScanEvent(out io.Writer, event scanner.ScanEvent) error {
	if errors.Is(event.Err, detect.ErrSourceExhausted) {
		return nil
	}

	if IsJSONOutput() || IsJSONLOutput() {
		view := scanEventView{
			At:         event.At,
			SessionID:  event.SessionID,
			State:      event.State,
			Rule:       event.Rule,
			Transition: event.Transition,
			Deaths:     event.Deaths,
			Missing:    event.Missing,
		}
		if event.Err != nil {
			view.Error = event.Err.Error()
		}
		return writeJSONL(out, view)
	}

	stamp := event.At.Local().Format("15:04:05")
	if event.Transition != nil {
		fmt.Fprintf(out, "%s  %s -> %s\n", stamp,
			formatGameState(event.Transition.From), formatGameState(event.Transition.To))
	}
	for _, death := range event.Deaths {
		fmt.Fprintf(out, "%s  %s %s (session %s)\n", stamp,
			colorize("death recorded:", colorRed), death.PlayerName, shortID(death.SessionID))
	}
	if event.Err != nil && !errors.Is(event.Err, context.Canceled) {
		fmt.Fprintf(out, "%s  %s %v\n", stamp, colorize("error:", colorRed), event.Err)
	}
	return nil
}
