package main

import (
	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/adsync/internal/tokens/app"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the renewal scheduler and status server until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New(app.LoadConfig())
		if err != nil {
			return err
		}
		return application.Run()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
