package telegram

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alarmbot/alarmbot/internal/conversation"
	"github.com/alarmbot/alarmbot/internal/crontab"
	"github.com/alarmbot/alarmbot/internal/logger"
	"github.com/mymmrac/telego"
)

// maxCallbackBytes is the Telegram limit on callback_data payloads.
const maxCallbackBytes = 64

// callbackData is the JSON payload attached to inline keyboard buttons.
type callbackData struct {
	Command string `json:"command"`
	Alarm   string `json:"alarm,omitempty"`
}

// buildCallback serializes button payload data, rejecting payloads over
// the Telegram size limit.
func buildCallback(data callbackData) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal callback data: %w", err)
	}
	if len(raw) > maxCallbackBytes {
		return "", fmt.Errorf("callback data is larger than %d bytes", maxCallbackBytes)
	}
	return string(raw), nil
}

// alarmTypeKeyboard is the one-time reply keyboard offered by /new.
func alarmTypeKeyboard() *telego.ReplyKeyboardMarkup {
	return &telego.ReplyKeyboardMarkup{
		Keyboard: [][]telego.KeyboardButton{
			{{Text: conversation.TypeDaily}, {Text: conversation.TypeWeekday}},
			{{Text: "Close"}},
		},
		OneTimeKeyboard: true,
	}
}

// choiceKeyboard renders one option per row as a one-time reply keyboard.
func choiceKeyboard(options []string) *telego.ReplyKeyboardMarkup {
	rows := make([][]telego.KeyboardButton, 0, len(options))
	for _, option := range options {
		rows = append(rows, []telego.KeyboardButton{{Text: option}})
	}
	return &telego.ReplyKeyboardMarkup{
		Keyboard:        rows,
		OneTimeKeyboard: true,
	}
}

// alarmListKeyboard builds the /list inline keyboard. Each alarm gets a
// toggle button (bell when enabled, muted bell when disabled), a remove
// button and its description split at the first comma. Jobs whose
// metadata cannot produce an id or a callback payload are skipped.
func (c *Connector) alarmListKeyboard(jobs []crontab.Job) *telego.InlineKeyboardMarkup {
	closeData, _ := buildCallback(callbackData{Command: "close"})

	var rows [][]telego.InlineKeyboardButton
	for _, job := range jobs {
		id, ok := c.deps.Alarms.JobID(job)
		if !ok {
			continue
		}

		toggle := callbackData{Command: "disable", Alarm: id}
		icon := "🔔"
		if !job.Enabled {
			toggle = callbackData{Command: "enable", Alarm: id}
			icon = "🔕"
		}

		toggleData, err := buildCallback(toggle)
		if err != nil {
			c.logger.Error("skipping alarm with oversized callback payload", err,
				logger.Field{Key: "alarm_id", Value: id})
			continue
		}
		removeData, err := buildCallback(callbackData{Command: "remove", Alarm: id})
		if err != nil {
			c.logger.Error("skipping alarm with oversized callback payload", err,
				logger.Field{Key: "alarm_id", Value: id})
			continue
		}

		row := []telego.InlineKeyboardButton{
			{Text: icon, CallbackData: toggleData},
			{Text: "✕", CallbackData: removeData},
		}

		head, tail, found := strings.Cut(c.deps.Alarms.Describe(job), ",")
		row = append(row, telego.InlineKeyboardButton{Text: head, CallbackData: closeData})
		if found {
			row = append(row, telego.InlineKeyboardButton{Text: strings.TrimSpace(tail), CallbackData: closeData})
		}

		rows = append(rows, row)
	}

	return &telego.InlineKeyboardMarkup{InlineKeyboard: rows}
}
