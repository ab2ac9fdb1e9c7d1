package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stevehiehn/relaypub/internal/build"
	"github.com/stevehiehn/relaypub/internal/config"
	"github.com/stevehiehn/relaypub/internal/engine"
	"github.com/stevehiehn/relaypub/internal/metrics"
	"github.com/stevehiehn/relaypub/internal/prompt"
	"github.com/stevehiehn/relaypub/internal/runner"
	"github.com/stevehiehn/relaypub/internal/vcs"
)

var (
	publishOverrides  *config.Overrides
	publishYes        bool
	publishMetrics    string
	publishProperties []string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Sync the workspace and publish both projects into the destination",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(publishOverrides, config.Validate)
		if err != nil {
			return err
		}
		props, err := parseProperties(publishProperties)
		if err != nil {
			return err
		}
		for k, v := range s.cfg.Properties {
			if _, ok := props[k]; !ok {
				props[k] = v
			}
		}
		tool, err := build.Get(s.cfg.BuildTool)
		if err != nil {
			return err
		}

		log := newLogger(s.cfg.DebugLogging)
		defer func() { _ = log.Sync() }()
		sink, closeSink := openSink(log, s.stateDir())
		defer closeSink()

		term := prompt.NewTerminal(publishYes)
		term.UsernameHint = s.usernameHint()
		term.OnCredentials = func(c *vcs.Credentials) { s.rememberCredentials(log, c) }
		term.OnDestination = func(p string) {
			s.remember(log, func(c *config.Config) { c.Destination = p })
		}

		m := metrics.New()
		orch := engine.New(engine.Deps{
			Runner:       runner.NewExecRunner(log),
			Build:        tool,
			VcsTool:      s.cfg.VCS.Tool,
			Destinations: term,
			Log:          log,
			Sink:         sink,
			Metrics:      m,
			RecordRoot:   s.cfg.SourceRoot,
		})

		req := engine.Request{
			SourceRoot:          s.cfg.SourceRoot,
			PrimaryProject:      s.cfg.PrimaryProject,
			SecondaryProject:    s.cfg.SecondaryProject,
			SecondaryName:       s.cfg.SecondaryName,
			Destination:         s.cfg.Destination,
			Hints:               s.hints(),
			Credentials:         s.credentials(),
			CredentialsProvider: term,
			Settings: build.Settings{
				Profile:       s.cfg.PublishProfile,
				Configuration: s.cfg.Configuration,
				Properties:    props,
			},
			Timeout:  s.cfg.TimeoutDuration(),
			Stream:   verbose || s.cfg.DebugLogging,
			SkipSync: s.cfg.SkipSync,
		}

		res, record := orch.Run(cmd.Context(), req)

		if publishMetrics != "" {
			if err := m.WriteTextfile(publishMetrics); err != nil {
				log.Warnw("metrics_not_written", "path", publishMetrics, "error", err)
			}
		}

		if jsonOutput {
			if record != nil {
				_ = writeJSON(record)
			} else {
				_ = writeJSON(res)
			}
		} else {
			fmt.Fprintln(os.Stderr, prompt.RenderResult(res.Succeeded, res.Message))
			if record != nil {
				fmt.Fprintf(os.Stderr, "Run ID: %s\n", record.RunID)
				if record.Artifacts != "" {
					fmt.Fprintf(os.Stderr, "Record: %s\n", record.Artifacts)
				}
			}
		}
		if !res.Succeeded {
			return errReported
		}
		return nil
	},
}

func init() {
	f := publishCmd.Flags()
	publishOverrides = config.BindFlags(f)
	f.BoolVarP(&publishYes, "yes", "y", false, "Reuse the remembered destination without prompting")
	f.StringVar(&publishMetrics, "metrics-file", "", "Write Prometheus metrics to this textfile")
	f.StringArrayVar(&publishProperties, "property", nil, "Extra build property (Name=Value)")
	rootCmd.AddCommand(publishCmd)
}
