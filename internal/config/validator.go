package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/screenwatch/screenwatch/internal/logging"
	"github.com/screenwatch/screenwatch/internal/state"
	"github.com/screenwatch/screenwatch/internal/tui/styles"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogFormats returns the accepted logging.format values.
func ValidLogFormats() []string {
	return []string{string(logging.FormatConsole), string(logging.FormatJSON)}
}

// ValidThemes returns the accepted tui.theme values.
func ValidThemes() []string {
	return styles.ThemeNames()
}

// Validate checks the Config and returns every problem found.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError
	errs = append(errs, c.validateLogging()...)
	errs = append(errs, c.validateScan()...)
	errs = append(errs, c.validateOCR()...)
	errs = append(errs, c.validateTUI()...)
	errs = append(errs, c.validateDetectors()...)
	errs = append(errs, c.validateRules()...)
	errs = append(errs, c.validateActions()...)
	return errs
}

func (c *Config) validateLogging() []ValidationError {
	var errs []ValidationError
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: "must be one of debug, info, warn, error",
		})
	}
	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Logging.Format)) {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: fmt.Sprintf("must be one of %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}
	return errs
}

func (c *Config) validateScan() []ValidationError {
	var errs []ValidationError
	if c.Scan.IntervalMS <= 0 {
		errs = append(errs, ValidationError{Field: "scan.interval_ms", Value: c.Scan.IntervalMS, Message: "must be positive"})
	}
	if c.Scan.MinSleepMS < 0 {
		errs = append(errs, ValidationError{Field: "scan.min_sleep_ms", Value: c.Scan.MinSleepMS, Message: "must not be negative"})
	}
	return errs
}

func (c *Config) validateOCR() []ValidationError {
	if c.OCR.NameMinConfidence < 0 || c.OCR.NameMinConfidence > 1 {
		return []ValidationError{{
			Field:   "ocr.name_min_confidence",
			Value:   c.OCR.NameMinConfidence,
			Message: "must be between 0 and 1",
		}}
	}
	return nil
}

func (c *Config) validateTUI() []ValidationError {
	if c.TUI.Theme != "" && !slices.Contains(ValidThemes(), c.TUI.Theme) {
		return []ValidationError{{
			Field:   "tui.theme",
			Value:   c.TUI.Theme,
			Message: fmt.Sprintf("must be one of %s", strings.Join(ValidThemes(), ", ")),
		}}
	}
	return nil
}

func (c *Config) validateDetectors() []ValidationError {
	var errs []ValidationError
	for _, err := range c.Catalog().Validate() {
		errs = append(errs, ValidationError{Field: "detectors", Message: err.Error()})
	}
	return errs
}

func (c *Config) validateRules() []ValidationError {
	_, err := c.RuleTable()
	if err == nil {
		return nil
	}

	var cfgErr *state.ConfigurationError
	if !errors.As(err, &cfgErr) {
		return []ValidationError{{Field: "rules", Message: err.Error()}}
	}
	errs := make([]ValidationError, 0, len(cfgErr.Problems))
	for _, problem := range cfgErr.Problems {
		errs = append(errs, ValidationError{Field: "rules", Message: problem})
	}
	return errs
}

func (c *Config) validateActions() []ValidationError {
	if _, err := c.ActionTable(); err != nil {
		return []ValidationError{{Field: "actions", Message: err.Error()}}
	}
	return nil
}
