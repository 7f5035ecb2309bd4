package main

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/adsync/internal/tokens/app"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "adsync",
	Short: "Keeps ad platform credentials renewed",
	Long: `adsync exchanges short-lived ad platform credentials for long-lived ones
and renews them unattended before they expire.

Configuration is read from the environment, optionally seeded from a .env file.`,
	Version:       app.BuildVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnvFile(envFile, cmd.Flags().Changed("env-file"))
	},
	// Running without a subcommand starts the service
	RunE: runCmd.RunE,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"File with KEY=VALUE lines loaded before reading the environment")
}

// loadEnvFile loads path without overriding variables that are already
// set. A missing default file is fine; a missing explicit one is not.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return nil
	}
	return err
}
