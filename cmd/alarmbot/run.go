package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alarmbot/alarmbot/internal/channels/telegram"
	"github.com/alarmbot/alarmbot/internal/config"
	"github.com/alarmbot/alarmbot/internal/conversation"
	"github.com/alarmbot/alarmbot/internal/crontab"
	"github.com/alarmbot/alarmbot/internal/lockfile"
	"github.com/alarmbot/alarmbot/internal/logger"
	"github.com/alarmbot/alarmbot/internal/netwait"
	"github.com/alarmbot/alarmbot/internal/timezone"
	"github.com/alarmbot/alarmbot/internal/userstore"
	"github.com/alarmbot/alarmbot/internal/version"
	"github.com/alarmbot/alarmbot/internal/webadmin"
	"github.com/spf13/cobra"
)

var (
	runConfigPath string
	runDebug      bool
)

// connectivityProbe is the endpoint polled before the bot connects.
const connectivityProbe = "https://api.telegram.org"

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the alarm bot",
	Long: `Start the alarm bot with the specified configuration.
This initializes the user store, the Telegram connector and the admin
web server, and handles graceful shutdown.`,
	Run: runHandler,
}

func runHandler(cmd *cobra.Command, args []string) {
	configPath := runConfigPath
	if configPath == "" {
		configPath = "config.toml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if errors := cfg.Validate(); len(errors) > 0 {
		fmt.Printf("❌ Configuration validation failed:\n")
		for _, e := range errors {
			fmt.Printf("  - %v\n", e)
		}
		os.Exit(1)
	}

	if runDebug {
		cfg.Logging.Level = "debug"
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Printf("❌ Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	log.Info(version.FormatStartupMessage(),
		logger.Field{Key: "git_commit", Value: GitCommit},
		logger.Field{Key: "config", Value: configPath})

	// The root context is cancelled by SIGINT/SIGTERM, so startup steps
	// that block, like the connectivity wait, abort on Ctrl-C too.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := userstore.Open(cfg.Database.Path, log)
	if err != nil {
		log.Error("failed to open user store", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Init(cfg.Webserver.InitPassword); err != nil {
		log.Error("failed to initialize user store", err)
		os.Exit(1)
	}

	tab, err := crontab.New(cfg.Alarm.Tag, crontab.SystemSource{}, log)
	if err != nil {
		log.Error("failed to open crontab", err)
		os.Exit(1)
	}

	// Cron runs the stored command from its own working directory, so
	// the config path it carries has to be absolute.
	absConfig, err := filepath.Abs(configPath)
	if err != nil {
		log.Error("failed to resolve configuration path", err)
		os.Exit(1)
	}

	playCommand, err := playbackCommand(absConfig, cfg.Alarm.AudioFile)
	if err != nil {
		log.Error("failed to resolve playback command", err)
		os.Exit(1)
	}

	connector := telegram.New(cfg.Telegram, telegram.Deps{
		Users:  store,
		Alarms: tab,
		Dialog: conversation.New(tab, playCommand, log),
		Locks:  lockfile.New(cfg.Alarm.LockDir, log),
		Zones:  timezone.New(cfg.Timezone.ZoneinfoDir, cfg.Timezone.SetScript, log),
		Spawn: func(audioFile string) error {
			return spawnPlayback(absConfig, audioFile)
		},
		AudioFile: cfg.Alarm.AudioFile,
	}, log)

	if !netwait.New(netwait.Config{URL: connectivityProbe}, log).Wait(ctx) {
		log.Info("👋 Shutdown requested before connectivity was established")
		return
	}

	if err := connector.Start(ctx); err != nil {
		log.Error("failed to start telegram connector", err)
		os.Exit(1)
	}

	var admin *webadmin.Server
	if cfg.Webserver.Enabled {
		admin, err = webadmin.New(webadmin.Config{
			Addr:       cfg.Webserver.Addr,
			SessionTTL: time.Duration(cfg.Webserver.SessionTTLMinutes) * time.Minute,
		}, store, log)
		if err != nil {
			log.Error("failed to create admin web server", err)
			os.Exit(1)
		}
		admin.Start()
	}

	log.Info("✅ Alarmbot is running")

	<-ctx.Done()
	log.Info("⏳ Received shutdown signal")

	log.Info("🛑 Shutting down alarmbot...")
	stop()

	if err := connector.Stop(); err != nil {
		log.Error("failed to stop telegram connector", err)
	}
	if admin != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := admin.Stop(shutdownCtx); err != nil {
			log.Error("failed to stop admin web server", err)
		}
	}

	log.Info("👋 Alarmbot stopped gracefully")
}

// playbackCommand builds the crontab command line that replays the
// configured clip through this same binary. The config path rides along
// so the playback process resolves the same lock directory and volume
// as the bot that scheduled it.
func playbackCommand(configPath, audioFile string) (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable path: %w", err)
	}
	return exe + " play -c " + configPath + " " + audioFile, nil
}

// spawnPlayback launches a detached playback process, the same one the
// scheduler runs, so /test exercises the real alarm path.
func spawnPlayback(configPath, audioFile string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	proc := exec.Command(exe, "play", "-c", configPath, audioFile)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("failed to start playback process: %w", err)
	}
	return proc.Process.Release()
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
	runCmd.Flags().BoolVarP(&runDebug, "debug", "d", false, "Enable debug logging")
}
