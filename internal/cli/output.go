package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
)

// IsJSONOutput reports whether --json was requested.
func IsJSONOutput() bool {
	return jsonOutput
}

// IsJSONLOutput reports whether --jsonl was requested.
func IsJSONLOutput() bool {
	return jsonlOutput
}

// WriteOutput writes value as indented JSON, or as one compact JSON
// document per element when --jsonl is set and value is a slice.
func WriteOutput(out io.Writer, value any) error {
	if IsJSONLOutput() {
		return writeJSONL(out, value)
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

func writeJSONL(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return encoder.Encode(value)
	}
	for i := 0; i < rv.Len(); i++ {
		if err := encoder.Encode(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("failed to encode output line %d: %w", i+1, err)
		}
	}
	return nil
}

const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
)

func colorEnabled() bool {
	if noColor || IsJSONOutput() || IsJSONLOutput() {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return hasTTY()
}

func colorize(text, color string) string {
	if !colorEnabled() || color == "" {
		return text
	}
	return color + text + colorReset
}
