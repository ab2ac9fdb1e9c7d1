package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stevehiehn/relaypub/internal/config"
	dagerrors "github.com/stevehiehn/relaypub/internal/errors"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented settings file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil && !initForce {
			return dagerrors.NewConfigurationError(
				fmt.Sprintf("%s already exists", configPath),
				"Pass --force to overwrite it",
			)
		}
		if err := os.WriteFile(configPath, []byte(config.Template), 0o644); err != nil {
			return dagerrors.NewIOError("writing "+configPath, err)
		}
		if jsonOutput {
			return writeJSON(map[string]any{"path": configPath})
		}
		fmt.Printf("Wrote %s\n", configPath)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing settings file")
	rootCmd.AddCommand(initCmd)
}
