package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stevehiehn/relaypub/internal/config"
	"github.com/stevehiehn/relaypub/internal/runner"
	"github.com/stevehiehn/relaypub/internal/vcs"
)

var detectOverrides *config.Overrides

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Show the server path and collection URL detected for the workspace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(detectOverrides, config.ValidateSync)
		if err != nil {
			return err
		}
		if _, err := vcs.LoginArg(s.credentials()); err != nil {
			return err
		}
		log := newLogger(s.cfg.DebugLogging)
		defer func() { _ = log.Sync() }()

		c := vcs.NewCoordinator(runner.NewExecRunner(log), log)
		c.Tool = s.cfg.VCS.Tool
		c.Timeout = s.cfg.TimeoutDuration()

		// Detect with empty hints so both values are reported.
		found := c.Detect(cmd.Context(), s.cfg.SourceRoot, vcs.Hints{}, s.credentials())
		if jsonOutput {
			return writeJSON(found)
		}
		fmt.Printf("Server path:    %s\n", orNone(found.ServerPath))
		fmt.Printf("Collection URL: %s\n", orNone(found.CollectionURL))
		return nil
	},
}

func orNone(s string) string {
	if s == "" {
		return "(not detected)"
	}
	return s
}

func init() {
	detectOverrides = config.BindFlags(detectCmd.Flags())
	rootCmd.AddCommand(detectCmd)
}
