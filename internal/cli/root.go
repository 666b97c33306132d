// Package cli implements the screenwatch command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/screenwatch/screenwatch/internal/config"
	"github.com/screenwatch/screenwatch/internal/db"
	"github.com/screenwatch/screenwatch/internal/logging"
)

var (
	cfgFile        string
	dbPath         string
	logLevel       string
	logFormat      string
	jsonOutput     bool
	jsonlOutput    bool
	nonInteractive bool
	noColor        bool
	noProgress     bool

	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "screenwatch",
	Short:         "Watch a game client and keep a death ledger",
	Long:          "screenwatch resolves detector output into game states, reacts to transitions and records every death durably.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/screenwatch/config.yaml)")
	flags.StringVar(&dbPath, "db", "", "ledger database path")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&logFormat, "log-format", "", "log format: console, json")
	flags.BoolVar(&jsonOutput, "json", false, "output JSON")
	flags.BoolVar(&jsonlOutput, "jsonl", false, "output JSON lines")
	flags.BoolVar(&nonInteractive, "non-interactive", false, "never prompt or start the TUI")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.BoolVar(&noProgress, "no-progress", false, "disable progress output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// Main runs the CLI and returns the process exit code.
func Main() int {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		return exitCode(err)
	}
	return 0
}

func initConfig(cmd *cobra.Command) error {
	v := config.New()
	if err := config.ReadFile(v, cfgFile); err != nil {
		return &ConfigError{Err: err}
	}
	if dbPath != "" {
		v.Set("database.path", dbPath)
	}
	if logLevel != "" {
		v.Set("logging.level", logLevel)
	}
	if logFormat != "" {
		v.Set("logging.format", logFormat)
	}

	cfg, err := config.Load(v)
	if err != nil {
		return &ConfigError{Err: err}
	}

	if err := logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
	}); err != nil {
		return &ConfigError{Err: err}
	}

	appConfig = cfg
	return nil
}

// GetConfig returns the loaded configuration, or defaults before load.
func GetConfig() *config.Config {
	if appConfig == nil {
		return config.Default()
	}
	return appConfig
}

func openDatabase(ctx context.Context) (*db.DB, error) {
	path := GetConfig().DatabasePath()
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database %s: %w", path, err)
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate ledger database: %w", err)
	}
	return database, nil
}
