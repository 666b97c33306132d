package cli

import (
	"github.com/spf13/cobra"

	"github.com/screenwatch/screenwatch/internal/tui"
)

var (
	watchSource string
	watchDryRun bool
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchSource, "source", "", "JSONL frame source file")
	watchCmd.Flags().BoolVar(&watchDryRun, "dry-run", false, "log clicks instead of injecting them")
	_ = watchCmd.MarkFlagRequired("source")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live view",
	Long:  "Open the terminal live view. F5 starts scanning, F8 stops, F1 runs one scan, r restarts the session.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := liveViewPreflight(watchSource); err != nil {
			return err
		}

		rt, err := buildRuntime(cmd.Context(), GetConfig(), runtimeOptions{sourcePath: watchSource, dryRun: watchDryRun})
		if err != nil {
			return err
		}
		defer rt.Close()

		return tui.RunWithConfig(tui.Config{
			Scanner: rt.scanner,
			History: rt.ledger,
			Theme:   GetConfig().TUI.Theme,
		})
	},
}
