package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/screenwatch/screenwatch/internal/state"
)

// ConfigError marks a failure to load or validate configuration. It is
// the only error class that aborts startup.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// PreflightError explains why a command cannot run in this environment.
type PreflightError struct {
	Message  string
	Hint     string
	NextStep string
}

func (e *PreflightError) Error() string {
	return e.Message
}

const (
	exitFailure = 1
	exitConfig  = 2
)

func exitCode(err error) int {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) || errors.Is(err, state.ErrConfiguration) {
		return exitConfig
	}
	return exitFailure
}

func formatError(err error) string {
	var preflight *PreflightError
	if !errors.As(err, &preflight) {
		return colorize("error: ", colorRed) + err.Error()
	}

	lines := []string{colorize("error: ", colorRed) + preflight.Message}
	if preflight.Hint != "" {
		lines = append(lines, "hint: "+preflight.Hint)
	}
	if preflight.NextStep != "" {
		lines = append(lines, "try: "+preflight.NextStep)
	}
	return strings.Join(lines, "\n")
}
