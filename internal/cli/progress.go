package cli

import (
	"fmt"
	"io"
	"os"
	"time"
)

// startup prints one line per runtime setup stage on stderr, e.g.
// "Opening ledger... done (12ms)". A nil *startup prints nothing.
type startup struct {
	out io.Writer
	now func() time.Time
}

func newStartup() *startup {
	if !progressEnabled() {
		return nil
	}
	return &startup{out: os.Stderr, now: time.Now}
}

// step runs fn under label and reports its outcome. fn's error is returned
// unchanged.
func (s *startup) step(label string, fn func() error) error {
	if s == nil {
		return fn()
	}
	fmt.Fprintf(s.out, "%s... ", label)
	began := s.now()
	if err := fn(); err != nil {
		fmt.Fprintf(s.out, "failed: %v\n", err)
		return err
	}
	fmt.Fprintf(s.out, "done (%s)\n", formatDuration(s.now().Sub(began)))
	return nil
}

func progressEnabled() bool {
	if IsJSONOutput() || IsJSONLOutput() || noProgress {
		return false
	}
	for _, name := range []string{"SCREENWATCH_NO_PROGRESS", "NO_PROGRESS"} {
		if _, ok := os.LookupEnv(name); ok {
			return false
		}
	}
	return hasTTY()
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return d.String()
	case d < time.Second:
		return d.Round(10 * time.Millisecond).String()
	default:
		return d.Round(100 * time.Millisecond).String()
	}
}
