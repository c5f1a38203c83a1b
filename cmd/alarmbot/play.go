package main

import (
	"fmt"
	"os"

	"github.com/alarmbot/alarmbot/internal/config"
	"github.com/alarmbot/alarmbot/internal/lockfile"
	"github.com/alarmbot/alarmbot/internal/logger"
	"github.com/alarmbot/alarmbot/internal/player"
	"github.com/spf13/cobra"
)

var playConfigPath string

// playCmd represents the play command, the process the scheduler runs.
var playCmd = &cobra.Command{
	Use:   "play <audio-file>",
	Short: "Play an audio file in a loop until interrupted",
	Long: `Play the given audio file in a loop. The process writes a PID-named
lock file while playing and exits cleanly when it receives SIGINT or
SIGTERM, which is how "alarmbot stop" and the /stop chat command end an
alarm.`,
	Args: cobra.ExactArgs(1),
	Run:  playHandler,
}

func playHandler(cmd *cobra.Command, args []string) {
	log, volume, lockDir := playbackEnv()

	p := player.New(lockfile.New(lockDir, log), volume, log)
	if err := p.Run(args[0], player.NewOtoSink()); err != nil {
		log.Error("playback failed", err)
		os.Exit(1)
	}
}

// playbackEnv loads the pieces of configuration playback needs. A
// missing config file falls back to defaults instead of failing the
// alarm.
func playbackEnv() (*logger.Logger, int, string) {
	volume := 100
	if cfg, err := config.Load(configOrDefault(playConfigPath)); err == nil {
		volume = cfg.Alarm.Volume
	}

	lockDir, err := lockDirFromConfig(playConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve lock directory: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: "info", Format: "text", Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	return log, volume, lockDir
}

func configOrDefault(path string) string {
	if path == "" {
		return "config.toml"
	}
	return path
}

// lockDirFromConfig resolves the lock directory every playback-facing
// command shares. Without a readable config file it falls back to the
// default path, matching what an unconfigured playback process uses.
func lockDirFromConfig(configPath string) (string, error) {
	if cfg, err := config.Load(configOrDefault(configPath)); err == nil && cfg.Alarm.LockDir != "" {
		return cfg.Alarm.LockDir, nil
	}
	return lockfile.DefaultPath()
}

func init() {
	playCmd.Flags().StringVarP(&playConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
}
