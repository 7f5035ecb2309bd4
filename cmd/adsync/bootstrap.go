package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/adsync/internal/tokens/app"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Exchange the APP{N}_TOKEN initial credentials and store the results",
	Long: `Bootstrap exchanges the short-lived APP{N}_TOKEN credential of every configured
identity for a long-lived one and stores it. Scheduled renewal only renews
credentials that were stored this way.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New(app.LoadConfig())
		if err != nil {
			return err
		}

		report, err := application.Bootstrap(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, o := range report.Outcomes {
			if o.Err != nil {
				fmt.Fprintf(out, "%s %s: %v\n", redCross, o.IdentityID, o.Err)
				continue
			}
			fmt.Fprintf(out, "%s %s: expires %s (%d days)\n",
				greenCheck, o.IdentityID, o.ExpiresAt.Local().Format("2006-01-02 15:04"), o.DaysUntilExpiration)
		}

		if failed := report.Failed(); failed > 0 {
			return fmt.Errorf("%d of %d identities failed to bootstrap", failed, len(report.Outcomes))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bootstrapCmd)
}
