package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stevehiehn/relaypub/internal/config"
	"github.com/stevehiehn/relaypub/internal/vcs"
)

var validateOverrides *config.Overrides

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the settings file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		err := validateSettings()
		if err != nil {
			if jsonOutput {
				_ = writeJSON(map[string]any{"valid": false, "error": err.Error()})
			} else {
				fmt.Fprintln(os.Stderr, "Validation failed:")
				printError(err)
			}
			return errReported
		}
		if jsonOutput {
			return writeJSON(map[string]any{"valid": true})
		}
		fmt.Println("Settings are valid.")
		return nil
	},
}

func validateSettings() error {
	s, err := loadSettings(validateOverrides, config.Validate)
	if err != nil {
		return err
	}
	_, err = vcs.LoginArg(s.credentials())
	return err
}

func init() {
	validateOverrides = config.BindFlags(validateCmd.Flags())
	rootCmd.AddCommand(validateCmd)
}
