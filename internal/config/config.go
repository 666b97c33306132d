// Package config loads screenwatch configuration through viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/screenwatch/screenwatch/internal/actions"
	"github.com/screenwatch/screenwatch/internal/detect"
	"github.com/screenwatch/screenwatch/internal/state"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// SCREENWATCH_SCAN_INTERVAL_MS.
const EnvPrefix = "SCREENWATCH"

// Config is the full application configuration.
type Config struct {
	Database    DatabaseConfig            `mapstructure:"database" yaml:"database"`
	Logging     LoggingConfig             `mapstructure:"logging" yaml:"logging"`
	Scan        ScanConfig                `mapstructure:"scan" yaml:"scan"`
	OCR         OCRConfig                 `mapstructure:"ocr" yaml:"ocr"`
	Clicker     ClickerConfig             `mapstructure:"clicker" yaml:"clicker"`
	TUI         TUIConfig                 `mapstructure:"tui" yaml:"tui"`
	Detectors   map[string]detect.Spec    `mapstructure:"detectors" yaml:"detectors"`
	Rules       []state.RuleSpec          `mapstructure:"rules" yaml:"rules"`
	Actions     map[string]actions.Action `mapstructure:"actions" yaml:"actions"`
	ClickPoints map[string]actions.Point  `mapstructure:"click_points" yaml:"click_points"`
}

// DatabaseConfig controls the ledger database.
type DatabaseConfig struct {
	// Path is the SQLite file. Empty means DataDir()/screenwatch.db.
	Path string `mapstructure:"path" yaml:"path"`
}

// LoggingConfig controls zerolog output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// ScanConfig controls the scan loop cadence.
type ScanConfig struct {
	IntervalMS        int  `mapstructure:"interval_ms" yaml:"interval_ms"`
	MinSleepMS        int  `mapstructure:"min_sleep_ms" yaml:"min_sleep_ms"`
	RecordTransitions bool `mapstructure:"record_transitions" yaml:"record_transitions"`
}

// OCRConfig controls player name capture.
type OCRConfig struct {
	NameMinConfidence float64 `mapstructure:"name_min_confidence" yaml:"name_min_confidence"`
}

// ClickerConfig selects how clicks are injected.
type ClickerConfig struct {
	// Command is run per click with {x} and {y} substituted. Empty means
	// clicks are only logged.
	Command []string `mapstructure:"command" yaml:"command"`
}

// TUIConfig controls the watch view.
type TUIConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// Interval returns the scan interval as a duration.
func (c ScanConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// MinSleep returns the minimum sleep between cycles.
func (c ScanConfig) MinSleep() time.Duration {
	return time.Duration(c.MinSleepMS) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Scan: ScanConfig{
			IntervalMS: 2000,
			MinSleepMS: 200,
		},
		OCR:         OCRConfig{NameMinConfidence: 0.5},
		TUI:         TUIConfig{Theme: "default"},
		Detectors:   detect.DefaultCatalog(),
		Rules:       state.DefaultRuleSpecs(),
		Actions:     DefaultActions(),
		ClickPoints: DefaultClickPoints(),
	}
}

// DefaultActions returns the built-in per-state actions.
func DefaultActions() map[string]actions.Action {
	return map[string]actions.Action{
		"DEAD":         {Detector: "TO_LOBBY_BUTTON"},
		"DISCONNECTED": {Detector: "DISCONNECTED_ICON"},
		"IN_RUN":       {Point: "AUTO_BUTTON", Clicks: 2, IntervalMS: 500, RepeatEveryMS: 300000},
	}
}

// DefaultClickPoints returns window-relative points for a 1280x720 client.
func DefaultClickPoints() map[string]actions.Point {
	return map[string]actions.Point{
		"AUTO_BUTTON":         {X: 1202, Y: 328},
		"DEATH_TO_LOBBY":      {X: 641, Y: 409},
		"END_RUN_BUTTON":      {X: 1054, Y: 667},
		"MENU_BUTTON":         {X: 46, Y: 68},
		"MENU_LEAVE_BUTTON":   {X: 362, Y: 614},
		"MENU_CONFIRM_BUTTON": {X: 640, Y: 500},
	}
}

// SetDefaults registers scalar defaults on v. Detector, rule, action and
// click point tables are not merged with defaults; an empty table falls
// back to the built-in one in Load.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("database.path", defaults.Database.Path)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)

	v.SetDefault("scan.interval_ms", defaults.Scan.IntervalMS)
	v.SetDefault("scan.min_sleep_ms", defaults.Scan.MinSleepMS)
	v.SetDefault("scan.record_transitions", defaults.Scan.RecordTransitions)

	v.SetDefault("ocr.name_min_confidence", defaults.OCR.NameMinConfidence)

	v.SetDefault("clicker.command", defaults.Clicker.Command)

	v.SetDefault("tui.theme", defaults.TUI.Theme)
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile points v at path, or at ConfigFile() when path is empty, and
// reads it. A missing default file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	explicit := path != ""
	if !explicit {
		path = ConfigFile()
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Load unmarshals v into a Config, fills empty tables with defaults,
// normalises detector names and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.applyTableDefaults()
	cfg.normalize()

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

func (c *Config) applyTableDefaults() {
	defaults := Default()
	if len(c.Detectors) == 0 {
		c.Detectors = defaults.Detectors
	}
	if len(c.Rules) == 0 {
		c.Rules = defaults.Rules
	}
	if c.Actions == nil {
		c.Actions = defaults.Actions
	}
	if len(c.ClickPoints) == 0 {
		c.ClickPoints = defaults.ClickPoints
	}
}

// normalize upper-cases detector and click point names. viper lower-cases
// map keys, and detector names are canonical in upper case.
func (c *Config) normalize() {
	detectors := make(map[string]detect.Spec, len(c.Detectors))
	for name, spec := range c.Detectors {
		detectors[canonical(name)] = spec
	}
	c.Detectors = detectors

	points := make(map[string]actions.Point, len(c.ClickPoints))
	for name, point := range c.ClickPoints {
		points[canonical(name)] = point
	}
	c.ClickPoints = points

	acts := make(map[string]actions.Action, len(c.Actions))
	for stateName, action := range c.Actions {
		if action.Detector != "" {
			action.Detector = canonical(action.Detector)
		}
		if action.Point != "" {
			action.Point = canonical(action.Point)
		}
		acts[canonical(stateName)] = action
	}
	c.Actions = acts

	for i := range c.Rules {
		c.Rules[i].RequireAll = canonicalAll(c.Rules[i].RequireAll)
		c.Rules[i].RequireNone = canonicalAll(c.Rules[i].RequireNone)
		c.Rules[i].RequireAny = canonicalAll(c.Rules[i].RequireAny)
	}
}

func canonical(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func canonicalAll(names []string) []string {
	if len(names) == 0 {
		return names
	}
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = canonical(name)
	}
	return out
}

// Catalog returns the configured detectors.
func (c *Config) Catalog() detect.Catalog {
	return detect.Catalog(c.Detectors)
}

// RuleTable builds the validated rule table against the detector catalog.
func (c *Config) RuleTable() (*state.RuleTable, error) {
	return state.NewRuleTableFromSpecs(c.Rules, state.WithDetectorCatalog(c.Catalog().Names()))
}

// ActionTable builds the validated action table.
func (c *Config) ActionTable() (actions.Table, error) {
	return actions.BuildTable(c.Actions, c.Catalog().Names(), c.ClickPoints)
}

// DatabasePath returns the configured or default database location.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return expandHome(c.Database.Path)
	}
	return filepath.Join(DataDir(), "screenwatch.db")
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "screenwatch")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".screenwatch"
	}
	return filepath.Join(home, ".config", "screenwatch")
}

// ConfigFile returns the path to the config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DataDir returns the directory for the ledger database.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "screenwatch")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".screenwatch"
	}
	return filepath.Join(home, ".local", "share", "screenwatch")
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
