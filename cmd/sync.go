package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stevehiehn/relaypub/internal/config"
	"github.com/stevehiehn/relaypub/internal/prompt"
	"github.com/stevehiehn/relaypub/internal/runner"
	"github.com/stevehiehn/relaypub/internal/vcs"
)

var syncOverrides *config.Overrides

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Get the latest sources into the workspace without publishing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(syncOverrides, config.ValidateSync)
		if err != nil {
			return err
		}
		log := newLogger(s.cfg.DebugLogging)
		defer func() { _ = log.Sync() }()
		sink, closeSink := openSink(log, s.stateDir())
		defer closeSink()

		term := prompt.NewTerminal(false)
		term.UsernameHint = s.usernameHint()
		term.OnCredentials = func(c *vcs.Credentials) { s.rememberCredentials(log, c) }

		c := vcs.NewCoordinator(runner.NewExecRunner(log), log)
		c.Tool = s.cfg.VCS.Tool
		c.Sink = sink
		c.Stream = verbose || s.cfg.DebugLogging
		c.Timeout = s.cfg.TimeoutDuration()

		res := c.Sync(cmd.Context(), s.cfg.SourceRoot, s.hints(), s.credentials(), term)
		if jsonOutput {
			_ = writeJSON(res)
		} else if res.Succeeded {
			fmt.Fprintln(os.Stderr, "Workspace is up to date.")
		} else {
			fmt.Fprintln(os.Stderr, prompt.RenderResult(false, "sync failed: "+res.Message))
		}
		if !res.Succeeded {
			return errReported
		}
		return nil
	},
}

func init() {
	syncOverrides = config.BindFlags(syncCmd.Flags())
	rootCmd.AddCommand(syncCmd)
}
