package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	dagerrors "github.com/stevehiehn/relaypub/internal/errors"
)

var (
	jsonOutput bool
	configPath string
	logLevel   string
	logFormat  string
	verbose    bool
)

// errReported marks a failure whose result was already printed.
var errReported = errors.New("failure already reported")

var rootCmd = &cobra.Command{
	Use:           "relaypub",
	Short:         "Sync a workspace and publish two projects into one deployment tree",
	Long:          "relaypub pulls the latest sources from version control, publishes the primary project into a destination and the secondary project into a fixed subdirectory of it.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&jsonOutput, "json", false, "Output raw JSON")
	pf.StringVar(&configPath, "config", "relaypub.yaml", "Settings file")
	pf.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "console", "Log format (console, json)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Debug logging and streamed process output")
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errReported) {
			printError(err)
		}
		os.Exit(1)
	}
}

func printError(err error) {
	var re *dagerrors.RunError
	if errors.As(err, &re) {
		fmt.Fprintf(os.Stderr, "Error: %s\n", re.Message)
		if re.Hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", re.Hint)
		}
		return
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
}
