package state

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfiguration is the sentinel wrapped by every ConfigurationError.
var ErrConfiguration = errors.New("invalid state rule configuration")

// ConfigurationError reports why a rule table failed validation.
// It is fatal at startup.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	switch len(e.Problems) {
	case 0:
		return ErrConfiguration.Error()
	case 1:
		return fmt.Sprintf("%s: %s", ErrConfiguration, e.Problems[0])
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d problems:", ErrConfiguration, len(e.Problems))
	for i, problem := range e.Problems {
		fmt.Fprintf(&sb, "\n  %d. %s", i+1, problem)
	}
	return sb.String()
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

type problems []string

func (p *problems) add(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return &ConfigurationError{Problems: p}
}
