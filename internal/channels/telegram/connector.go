// Package telegram provides the Telegram bot front end using the Telego
// library. It routes commands to the alarm table, the playback lock
// directory and the conversation dialogs, and serves the inline keyboard
// that toggles and removes alarms.
//
// Features:
//   - Long polling for receiving updates
//   - Role-based command authorization backed by the user store
//   - Inline keyboard with JSON callback payloads
//   - Graceful shutdown handling
package telegram

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/alarmbot/alarmbot/internal/config"
	"github.com/alarmbot/alarmbot/internal/conversation"
	"github.com/alarmbot/alarmbot/internal/crontab"
	"github.com/alarmbot/alarmbot/internal/lockfile"
	"github.com/alarmbot/alarmbot/internal/logger"
	"github.com/alarmbot/alarmbot/internal/timezone"
	"github.com/mymmrac/telego"
)

// UserDirectory is the slice of the user store the connector needs for
// registration and role checks.
type UserDirectory interface {
	HasUser(id int64) (bool, error)
	InsertUser(id int64, name string) error
	HasAccess(id int64, roles ...string) (bool, error)
}

// Spawner launches a detached playback process on the given audio file.
type Spawner func(audioFile string) error

// Deps are the collaborators the connector routes commands to.
type Deps struct {
	Users  UserDirectory
	Alarms *crontab.Tab
	Dialog *conversation.Manager
	Locks  *lockfile.Dir
	Zones  *timezone.Manager
	Spawn  Spawner

	// AudioFile is the clip /test plays.
	AudioFile string
}

// Connector is the Telegram bot connector.
type Connector struct {
	cfg    config.TelegramConfig
	logger *logger.Logger
	deps   Deps
	bot    BotAPI
	ctx    context.Context
	cancel context.CancelFunc

	// timeCommand reports the local time, /time sends its output.
	timeCommand func() (string, error)
}

// New creates a Telegram connector.
func New(cfg config.TelegramConfig, deps Deps, log *logger.Logger) *Connector {
	return &Connector{
		cfg:         cfg,
		logger:      log,
		deps:        deps,
		timeCommand: runDate,
	}
}

// SetBot replaces the bot API, used by tests to install a mock.
func (c *Connector) SetBot(bot BotAPI) {
	c.bot = bot
}

// SetTimeCommand replaces the local time source, used by tests.
func (c *Connector) SetTimeCommand(f func() (string, error)) {
	c.timeCommand = f
}

// Start initializes the Telegram bot and starts listening for updates.
func (c *Connector) Start(ctx context.Context) error {
	c.logger.Info("starting telegram connector")

	if c.cfg.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	if c.bot == nil {
		bot, err := telego.NewBot(c.cfg.Token)
		if err != nil {
			return fmt.Errorf("failed to initialize telegram bot: %w", err)
		}
		c.bot = NewBotAdapter(bot)
	}

	c.ctx, c.cancel = context.WithCancel(ctx)

	botUser, err := c.bot.GetMe(c.ctx)
	if err != nil {
		return fmt.Errorf("failed to get bot info: %w", err)
	}

	c.logger.Info("telegram bot initialized",
		logger.Field{Key: "bot_id", Value: botUser.ID},
		logger.Field{Key: "username", Value: botUser.Username})

	if err := c.registerCommands(); err != nil {
		c.logger.Error("failed to register bot commands", err)
	}

	go c.poll()

	return nil
}

// Stop gracefully stops the Telegram connector.
func (c *Connector) Stop() error {
	c.logger.Info("stopping telegram connector")

	if c.cancel != nil {
		c.cancel()
	}

	c.logger.Info("telegram connector stopped gracefully")

	return nil
}

// poll consumes long-polling updates until the context is cancelled.
func (c *Connector) poll() {
	c.logger.Info("starting long polling for telegram updates")

	updates, err := c.bot.UpdatesViaLongPolling(c.ctx, &telego.GetUpdatesParams{
		Timeout: c.cfg.PollTimeoutSeconds,
	})
	if err != nil {
		c.logger.Error("failed to start long polling", err)
		return
	}

	for {
		select {
		case <-c.ctx.Done():
			c.logger.Info("long polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				c.logger.Info("updates channel closed")
				return
			}
			c.handleUpdate(update)
		}
	}
}

// handleUpdate dispatches one update. Transport errors are logged and
// suppressed here so a failed send never tears down polling.
func (c *Connector) handleUpdate(update telego.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := c.handleCallback(update.CallbackQuery); err != nil {
			c.logger.Error("failed to handle callback query", err)
		}
	case update.Message != nil:
		if err := c.handleMessage(update.Message); err != nil {
			c.logger.Error("failed to handle message", err,
				logger.Field{Key: "chat_id", Value: update.Message.Chat.ID})
		}
	}
}

// registerCommands registers the bot's command menu with Telegram.
func (c *Connector) registerCommands() error {
	commands := &telego.SetMyCommandsParams{
		Commands: []telego.BotCommand{
			{Command: "new", Description: "Create new alarm"},
			{Command: "list", Description: "List alarms, enable/disable and remove alarms"},
			{Command: "stop", Description: "Stop all alarms"},
			{Command: "timezone", Description: "Set the timezone"},
			{Command: "test", Description: "Play an alarm to test"},
			{Command: "time", Description: "Print time and timezone on device"},
			{Command: "help", Description: "Get this message"},
		},
	}

	if err := c.bot.SetMyCommands(c.ctx, commands); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	c.logger.Info("bot commands registered successfully")

	return nil
}

// send sends plain text to a chat, with an optional keyboard.
func (c *Connector) send(chatID int64, text string, markup telego.ReplyMarkup) error {
	params := &telego.SendMessageParams{
		ChatID:      telego.ChatID{ID: chatID},
		Text:        text,
		ReplyMarkup: markup,
	}

	ctx, cancel := c.sendContext()
	defer cancel()

	if _, err := c.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (c *Connector) sendContext() (context.Context, context.CancelFunc) {
	timeout := time.Duration(c.cfg.SendTimeoutSeconds) * time.Second
	return context.WithTimeout(c.ctx, timeout)
}

func runDate() (string, error) {
	out, err := exec.Command("date").Output()
	if err != nil {
		return "", fmt.Errorf("failed to run date: %w", err)
	}
	return string(out), nil
}
