package cli

import (
	"os"

	"golang.org/x/term"
)

// IsNonInteractive reports whether the live view must be refused.
func IsNonInteractive() bool {
	if nonInteractive {
		return true
	}
	if _, ok := os.LookupEnv("SCREENWATCH_NON_INTERACTIVE"); ok {
		return true
	}
	return !hasTTY()
}

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// liveViewPreflight checks that the terminal can drive the live view while
// frames arrive from source.
func liveViewPreflight(source string) error {
	if source == "-" {
		return &PreflightError{
			Message:  "the live view cannot read frames from stdin",
			Hint:     "the terminal's stdin carries the view's key presses",
			NextStep: "screenwatch run --source -",
		}
	}
	if IsNonInteractive() {
		return &PreflightError{
			Message:  "the live view requires an interactive terminal",
			Hint:     "unset SCREENWATCH_NON_INTERACTIVE or drop --non-interactive",
			NextStep: "screenwatch run --source " + source,
		}
	}
	return nil
}
