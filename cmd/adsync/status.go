package main

import (
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/adsync/internal/tokens/app"
	"github.com/aussiebroadwan/adsync/internal/tokens/service"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored credential state of every configured identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.LoadConfig()
		cfg.LogLevel = "error"

		application, err := app.New(cfg)
		if err != nil {
			return err
		}

		renderStatus(cmd, application.Status(cmd.Context()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func renderStatus(cmd *cobra.Command, views []service.CredentialView) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Identity", "Expires", "Days Left", "Renewal", "Last Updated", "Fingerprint"})

	for _, v := range views {
		if !v.Stored {
			t.AppendRow(table.Row{v.IdentityID, color.YellowString("not stored"), "-", "run bootstrap", "-", "-"})
			continue
		}

		renewal := greenCheck + " not due"
		if v.NeedsRenewal {
			renewal = redCross + " due"
		}

		t.AppendRow(table.Row{
			color.New(color.Bold).Sprint(v.IdentityID),
			v.ExpiresAt.Local().Format(time.DateTime),
			v.DaysUntilExpiration,
			renewal,
			lastUpdated(v.LastUpdated),
			v.Fingerprint,
		})
	}

	applyTableFormat(t)
	t.Render()
}

func lastUpdated(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return time.Since(t).Round(time.Minute).String() + " ago"
}
