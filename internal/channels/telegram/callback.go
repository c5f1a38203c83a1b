package telegram

import (
	"encoding/json"
	"fmt"

	"github.com/alarmbot/alarmbot/internal/crontab"
	"github.com/alarmbot/alarmbot/internal/logger"
	"github.com/alarmbot/alarmbot/internal/metrics"
	"github.com/mymmrac/telego"
)

// handleCallback processes an inline keyboard press. Malformed payloads
// and unknown alarm ids degrade to a generic reply instead of failing.
func (c *Connector) handleCallback(query *telego.CallbackQuery) error {
	if query == nil {
		return nil
	}

	reply := "Got message, but not sure how to handle:" + query.Data

	var data callbackData
	if err := json.Unmarshal([]byte(query.Data), &data); err != nil {
		c.logger.Warn("received malformed callback payload",
			logger.Field{Key: "data", Value: query.Data})
	} else if r, ok := c.dispatchCallback(data); ok {
		reply = r
	}

	c.answerCallback(query.ID)

	if query.Message == nil {
		return nil
	}

	params := &telego.EditMessageTextParams{
		ChatID:    telego.ChatID{ID: query.Message.GetChat().ID},
		MessageID: query.Message.GetMessageID(),
		Text:      reply,
	}

	ctx, cancel := c.sendContext()
	defer cancel()

	if _, err := c.bot.EditMessageText(ctx, params); err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

// dispatchCallback executes a button command against the alarm table.
// The bool result is false when the command or alarm id is unknown.
func (c *Connector) dispatchCallback(data callbackData) (string, bool) {
	if data.Command == "close" {
		return "Closed", true
	}

	job, found, err := c.deps.Alarms.Find(data.Alarm)
	if err != nil {
		c.logger.Error("failed to look up alarm", err,
			logger.Field{Key: "alarm_id", Value: data.Alarm})
		return "", false
	}
	if !found {
		c.logger.Warn("callback for unknown alarm",
			logger.Field{Key: "alarm_id", Value: data.Alarm},
			logger.Field{Key: "command", Value: data.Command})
		return "", false
	}

	switch data.Command {
	case "enable":
		return c.toggleAlarm(job, data.Alarm, true)
	case "disable":
		return c.toggleAlarm(job, data.Alarm, false)
	case "remove":
		if err := c.deps.Alarms.Remove(job); err != nil {
			c.logger.Error("failed to remove alarm", err,
				logger.Field{Key: "alarm_id", Value: data.Alarm})
			return "", false
		}
		metrics.AlarmsRemoved.Inc()
		return "removing alarm: " + c.deps.Alarms.Describe(job), true
	}

	return "", false
}

func (c *Connector) toggleAlarm(job crontab.Job, id string, enable bool) (string, bool) {
	action, icon := "disable", "🔕 Disabling"
	toggle := c.deps.Alarms.Disable
	if enable {
		action, icon = "enable", "🔔 Enabling"
		toggle = c.deps.Alarms.Enable
	}

	if err := toggle(job); err != nil {
		c.logger.Error("failed to "+action+" alarm", err,
			logger.Field{Key: "alarm_id", Value: id})
		return "", false
	}
	metrics.AlarmsToggled.WithLabelValues(action).Inc()

	return icon + " alarm: " + c.deps.Alarms.Describe(job), true
}

// answerCallback acknowledges the query so the client stops the loading
// animation. Failures are logged only.
func (c *Connector) answerCallback(queryID string) {
	ctx, cancel := c.sendContext()
	defer cancel()

	if err := c.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
	}); err != nil {
		c.logger.Error("failed to answer callback query", err,
			logger.Field{Key: "callback_query_id", Value: queryID})
	}
}
