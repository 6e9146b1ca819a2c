package cmd

import (
	"context"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the lead, conversation and message tables",
	Run: func(cmd *cobra.Command, _ []string) {
		defer StopApp()
		if err := crmRepository.InitSchema(context.Background()); err != nil {
			logrus.Fatalf("[DB] migrate: %v", err)
		}
		color.Green("schema up to date (%s)", db.Dialector.Name())
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
