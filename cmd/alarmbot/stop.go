package main

import (
	"fmt"
	"os"

	"github.com/alarmbot/alarmbot/internal/lockfile"
	"github.com/alarmbot/alarmbot/internal/logger"
	"github.com/spf13/cobra"
)

var stopConfigPath string

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop all running alarms",
	Long: `Scan the lock directory and send an interrupt to every playback
process listed there. Stale lock files for processes that no longer
exist are skipped.`,
	Run: stopHandler,
}

func stopHandler(cmd *cobra.Command, args []string) {
	log, err := logger.New(logger.Config{Level: "info", Format: "text", Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	lockDir, err := lockDirFromConfig(stopConfigPath)
	if err != nil {
		log.Error("failed to resolve lock directory", err)
		os.Exit(1)
	}

	stopped, err := lockfile.New(lockDir, log).StopAll()
	if err != nil {
		log.Error("stop fan-out failed", err)
		os.Exit(1)
	}

	fmt.Printf("Stopped %d alarm process(es)\n", stopped)
}

func init() {
	stopCmd.Flags().StringVarP(&stopConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
}
