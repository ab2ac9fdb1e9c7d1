package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stevehiehn/relaypub/internal/build"
	"github.com/stevehiehn/relaypub/internal/config"
	"github.com/stevehiehn/relaypub/internal/preflight"
	"github.com/stevehiehn/relaypub/internal/prompt"
	"github.com/stevehiehn/relaypub/internal/runner"
)

var doctorOverrides *config.Overrides

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the tools and paths needed for a publish are available",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(doctorOverrides, config.Validate)
		if err != nil {
			return err
		}
		tool, err := build.Get(s.cfg.BuildTool)
		if err != nil {
			return err
		}
		log := newLogger(s.cfg.DebugLogging)
		defer func() { _ = log.Sync() }()

		checks := preflight.RunAll(cmd.Context(), preflight.Options{
			VcsTool:     s.cfg.VCS.Tool,
			Build:       tool,
			SourceRoot:  s.cfg.SourceRoot,
			Projects:    []string{s.cfg.PrimaryProject, s.cfg.SecondaryProject},
			Destination: s.cfg.Destination,
			SkipSync:    s.cfg.SkipSync,
			Runner:      runner.NewExecRunner(log),
		})
		if jsonOutput {
			_ = writeJSON(map[string]any{"ok": preflight.Passed(checks), "checks": checks})
		} else {
			for _, c := range checks {
				fmt.Println(prompt.RenderCheck(c.OK, c.Name, c.Detail))
			}
		}
		if !preflight.Passed(checks) {
			return errReported
		}
		return nil
	},
}

func init() {
	doctorOverrides = config.BindFlags(doctorCmd.Flags())
	rootCmd.AddCommand(doctorCmd)
}
