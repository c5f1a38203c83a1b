package telegram

import (
	"fmt"
	"strings"

	"github.com/alarmbot/alarmbot/internal/conversation"
	"github.com/alarmbot/alarmbot/internal/logger"
	"github.com/alarmbot/alarmbot/internal/metrics"
	"github.com/mymmrac/telego"
)

const permissionDenied = "You have no permission to use this command, use web UI to give authorization."

// restrictedCommands require role user or admin in the user store.
var restrictedCommands = map[string]bool{
	"list":     true,
	"stop":     true,
	"test":     true,
	"timezone": true,
	"time":     true,
}

// handleMessage routes one incoming text message: commands to their
// handlers, everything else into the active conversation dialog.
func (c *Connector) handleMessage(msg *telego.Message) error {
	if msg.From == nil || msg.Text == "" {
		return nil
	}

	chatID := msg.Chat.ID
	userID := msg.From.ID

	if strings.HasPrefix(msg.Text, "/") {
		command := parseCommand(msg.Text)

		if command == "cancel" && c.deps.Dialog.State(chatID) != conversation.StateIdle {
			outcome := c.deps.Dialog.Cancel(chatID)
			return c.send(chatID, outcome.Reply, nil)
		}

		if restrictedCommands[command] {
			allowed, err := c.deps.Users.HasAccess(userID, "user", "admin")
			if err != nil {
				return fmt.Errorf("failed to check access: %w", err)
			}
			if !allowed {
				c.logger.Warn("command blocked for unauthorized user",
					logger.Field{Key: "user_id", Value: userID},
					logger.Field{Key: "command", Value: "/" + command})
				return c.send(chatID, permissionDenied, nil)
			}
		}

		switch command {
		case "start":
			return c.handleStart(msg)
		case "new":
			return c.handleNew(chatID)
		case "list":
			return c.handleList(chatID)
		case "stop":
			return c.handleStop(chatID)
		case "test":
			return c.handleTest(chatID)
		case "timezone":
			return c.handleTimezone(chatID)
		case "time":
			return c.handleTime(chatID)
		case "help":
			return c.handleHelp(chatID)
		case "cancel":
			return nil
		}

		c.logger.Debug("ignoring unknown command",
			logger.Field{Key: "command", Value: "/" + command})
		return nil
	}

	return c.handleDialog(chatID, msg.Text)
}

// parseCommand extracts the command name from "/cmd" or "/cmd@botname".
func parseCommand(text string) string {
	command := strings.Fields(text)[0]
	command = strings.TrimPrefix(command, "/")
	command, _, _ = strings.Cut(command, "@")
	return command
}

func (c *Connector) handleStart(msg *telego.Message) error {
	chatID := msg.Chat.ID

	if err := c.send(chatID, "I'm an alarm bot, please type /help for info", nil); err != nil {
		return err
	}

	known, err := c.deps.Users.HasUser(msg.From.ID)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if !known {
		name := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
		if err := c.deps.Users.InsertUser(msg.From.ID, name); err != nil {
			return fmt.Errorf("failed to register user: %w", err)
		}
		c.logger.Info("registered new user",
			logger.Field{Key: "user_id", Value: msg.From.ID},
			logger.Field{Key: "name", Value: name})
	}

	return c.send(chatID, "Please add yourself as an admin in the web interface to control the bot", nil)
}

func (c *Connector) handleNew(chatID int64) error {
	c.deps.Dialog.StartNewAlarm(chatID)
	return c.send(chatID, "Select type of alarm, or /cancel to cancel:", alarmTypeKeyboard())
}

func (c *Connector) handleList(chatID int64) error {
	jobs, err := c.deps.Alarms.Jobs()
	if err != nil {
		return fmt.Errorf("failed to list alarms: %w", err)
	}

	params := &telego.SendMessageParams{
		ChatID:      telego.ChatID{ID: chatID},
		Text:        "Alarm list:",
		ReplyMarkup: c.alarmListKeyboard(jobs),
	}

	ctx, cancel := c.sendContext()
	defer cancel()

	if _, err := c.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("failed to send alarm list: %w", err)
	}
	return nil
}

func (c *Connector) handleStop(chatID int64) error {
	stopped, err := c.deps.Locks.StopAll()
	if err != nil {
		c.logger.Error("stop fan-out failed", err)
	}
	metrics.StopSignalsSent.Add(float64(stopped))

	return c.send(chatID, "Stopping alarm!", nil)
}

func (c *Connector) handleTest(chatID int64) error {
	if err := c.deps.Spawn(c.deps.AudioFile); err != nil {
		return fmt.Errorf("failed to start test playback: %w", err)
	}
	metrics.PlaybacksStarted.Inc()

	return c.send(chatID, "Testing alarm! Send /stop to stop", nil)
}

func (c *Connector) handleTimezone(chatID int64) error {
	continents, err := c.deps.Zones.Continents()
	if err != nil {
		return fmt.Errorf("failed to list continents: %w", err)
	}

	c.deps.Dialog.StartTimezone(chatID)
	return c.send(chatID, "Please select a continent, or /cancel to cancel:", choiceKeyboard(continents))
}

func (c *Connector) handleTime(chatID int64) error {
	out, err := c.timeCommand()
	if err != nil {
		return fmt.Errorf("failed to read local time: %w", err)
	}
	return c.send(chatID, strings.TrimSpace(out), nil)
}

func (c *Connector) handleHelp(chatID int64) error {
	var b strings.Builder
	b.WriteString("ℹ️ The following commands are available:\n")

	commands := [][2]string{
		{"/new", "Create new alarm"},
		{"/list", "List alarms, enable/disable and remove alarms"},
		{"/stop", "Stop all alarms"},
		{"/timezone", "Set the timezone (only works if sudo requires no password)"},
		{"/test", "Play an alarm to test"},
		{"/time", "Print time and timezone on device"},
		{"/help", "Get this message"},
	}
	for _, command := range commands {
		b.WriteString(command[0] + " " + command[1] + "\n")
	}

	return c.send(chatID, b.String(), nil)
}

// handleDialog feeds non-command text into the conversation state
// machine and renders whatever the outcome asks for.
func (c *Connector) handleDialog(chatID int64, text string) error {
	state := c.deps.Dialog.State(chatID)
	if state == conversation.StateIdle {
		return nil
	}

	outcome := c.deps.Dialog.Handle(chatID, text)
	if !outcome.Handled {
		return c.send(chatID, conversation.ReplyUnhandled, nil)
	}

	if outcome.Timezone != "" {
		return c.applyTimezone(chatID, outcome.Timezone)
	}

	// Continent picked, offer the zones in it.
	if outcome.State == conversation.StateAwaitTimezone {
		zones, err := c.deps.Zones.Zones()
		if err != nil {
			return fmt.Errorf("failed to list timezones: %w", err)
		}
		return c.send(chatID, "Please select a timezone, or /cancel to cancel:", choiceKeyboard(zones[text]))
	}

	if outcome.Reply != "" {
		return c.send(chatID, outcome.Reply, nil)
	}
	return nil
}

func (c *Connector) applyTimezone(chatID int64, zone string) error {
	if err := c.deps.Zones.Set(zone); err != nil {
		c.logger.Error("failed to set timezone", err,
			logger.Field{Key: "zone", Value: zone})
		return c.send(chatID, "🚫 Timezone file does not exist: "+zone, nil)
	}
	return c.send(chatID, "🕓 Timezone set to: "+zone, nil)
}
