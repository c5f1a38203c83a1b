package main

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "alarmbot",
	Short: "Alarmbot - crontab-backed alarm clock with a Telegram front end",
	Long: `Alarmbot schedules recurring wake-up alarms in the user's crontab
through a Telegram conversation, plays them as a standalone process that
can be stopped with an interrupt, and serves a small admin panel for
approving users.`,
	Version: Version,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(stopCmd)
}
