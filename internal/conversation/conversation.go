// Package conversation implements the multi-turn chat dialogs: alarm
// creation (type, then time) and timezone selection (continent, then
// zone). State is held per chat in an explicit session map rather than
// on the bot itself, so two simultaneous conversations cannot clobber
// each other's selections.
//
// Input is gated by per-state patterns before any state logic runs;
// text that fails the gate is dropped without a state change, mirroring
// how the chat transport only delivers matching messages.
package conversation

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/alarmbot/alarmbot/internal/logger"
	"github.com/alarmbot/alarmbot/internal/metrics"
	regexp "github.com/wasilibs/go-re2"
)

// State is a chat session's position in a dialog.
type State int

const (
	StateIdle State = iota
	StateAwaitAlarmType
	StateAwaitHour
	StateAwaitContinent
	StateAwaitTimezone
)

// Alarm type button labels.
const (
	TypeDaily   = "Daily"
	TypeWeekday = "Weekday Only"
)

// Fixed replies.
const (
	ReplyCancel     = "Perhaps another time"
	ReplyBadTime    = "Error, not valid format"
	ReplyTimePrompt = "Selected daily alarm, type time in format hh:mm, for example: 8:00 or 20:00:"
	ReplyUnhandled  = "Got illogical reply"
	cancelKeyword   = "/cancel"
	closeKeyword    = "Close"
)

var (
	alarmTypePattern = regexp.MustCompile(`^(Daily|Weekday Only|Close|/cancel)$`)
	// Shape-only gate: digit ranges are validated at parse so that an
	// impossible time like 25:99 recovers instead of being swallowed.
	hourPattern = regexp.MustCompile(`^([0-9]{1,2}:[0-9]{2}|/cancel)$`)
)

// AlarmStore is the job-creation surface the dialog delegates to.
type AlarmStore interface {
	AddDaily(command string, hour, minute int) (string, error)
	AddWeekday(command string, hour, minute int) (string, error)
}

// Outcome is the result of feeding one message to the dialog.
type Outcome struct {
	Handled  bool   // false: input failed the state's pattern gate, nothing changed
	Reply    string // text to send back, empty for none
	State    State  // session state after the message
	AlarmID  string // set when an alarm was created
	Timezone string // set when a full timezone was selected
}

type session struct {
	state     State
	alarmType string
	continent string
}

// Manager tracks dialog sessions keyed by chat ID.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*session
	store    AlarmStore
	command  string
	logger   *logger.Logger
}

// New creates a Manager. command is the full playback invocation stored
// into each created alarm.
func New(store AlarmStore, command string, log *logger.Logger) *Manager {
	return &Manager{
		sessions: make(map[int64]*session),
		store:    store,
		command:  command,
		logger:   log,
	}
}

// State reports the chat's current dialog state.
func (m *Manager) State(chatID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session(chatID).state
}

// StartNewAlarm enters the alarm-creation dialog.
func (m *Manager) StartNewAlarm(chatID int64) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session(chatID)
	s.state = StateAwaitAlarmType
	s.alarmType = ""
	return Outcome{Handled: true, State: s.state}
}

// StartTimezone enters the timezone dialog.
func (m *Manager) StartTimezone(chatID int64) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session(chatID)
	s.state = StateAwaitContinent
	s.continent = ""
	return Outcome{Handled: true, State: s.state}
}

// Cancel ends any dialog in progress.
func (m *Manager) Cancel(chatID int64) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session(chatID)
	s.state = StateIdle
	return Outcome{Handled: true, Reply: ReplyCancel, State: StateIdle}
}

// Handle feeds one text message into the chat's dialog. Messages
// arriving while no dialog is active are not handled here.
func (m *Manager) Handle(chatID int64, text string) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session(chatID)
	switch s.state {
	case StateAwaitAlarmType:
		return m.handleAlarmType(s, text)
	case StateAwaitHour:
		return m.handleHour(chatID, s, text)
	case StateAwaitContinent:
		return m.handleContinent(s, text)
	case StateAwaitTimezone:
		return m.handleZone(s, text)
	default:
		return Outcome{Handled: false, State: StateIdle}
	}
}

func (m *Manager) handleAlarmType(s *session, text string) Outcome {
	if !alarmTypePattern.MatchString(text) {
		m.logger.Debug("dropping input that fails alarm type pattern",
			logger.Field{Key: "text", Value: text})
		return Outcome{Handled: false, State: s.state}
	}

	if text == closeKeyword || text == cancelKeyword {
		s.state = StateIdle
		return Outcome{Handled: true, Reply: ReplyCancel, State: StateIdle}
	}

	s.alarmType = text
	s.state = StateAwaitHour
	return Outcome{Handled: true, Reply: ReplyTimePrompt, State: s.state}
}

func (m *Manager) handleHour(chatID int64, s *session, text string) Outcome {
	if !hourPattern.MatchString(text) {
		m.logger.Debug("dropping input that fails time pattern",
			logger.Field{Key: "text", Value: text})
		return Outcome{Handled: false, State: s.state}
	}

	if text == cancelKeyword {
		s.state = StateIdle
		return Outcome{Handled: true, Reply: ReplyCancel, State: StateIdle}
	}

	hourStr, minuteStr, _ := strings.Cut(text, ":")
	hour, err := strconv.Atoi(hourStr)
	if err != nil {
		return m.recoverFromBadTime(chatID, s, text, err)
	}
	minute, err := strconv.Atoi(minuteStr)
	if err != nil {
		return m.recoverFromBadTime(chatID, s, text, err)
	}

	var id string
	kind := "daily"
	if s.alarmType == TypeDaily {
		id, err = m.store.AddDaily(m.command, hour, minute)
	} else {
		kind = "weekday"
		id, err = m.store.AddWeekday(m.command, hour, minute)
	}
	if err != nil {
		return m.recoverFromBadTime(chatID, s, text, err)
	}
	metrics.AlarmsCreated.WithLabelValues(kind).Inc()

	reply := fmt.Sprintf("⏰ Created %s alarm at: %d:%02d", s.alarmType, hour, minute)
	s.state = StateIdle
	return Outcome{Handled: true, Reply: reply, State: StateIdle, AlarmID: id}
}

// recoverFromBadTime reports the error and returns the dialog to the
// type selection step instead of ending it.
func (m *Manager) recoverFromBadTime(chatID int64, s *session, text string, err error) Outcome {
	m.logger.Warn("rejecting invalid alarm time",
		logger.Field{Key: "chat_id", Value: chatID},
		logger.Field{Key: "text", Value: text},
		logger.Field{Key: "error", Value: err.Error()})

	s.state = StateAwaitAlarmType
	return Outcome{Handled: true, Reply: ReplyBadTime, State: s.state}
}

func (m *Manager) handleContinent(s *session, text string) Outcome {
	if text == closeKeyword || text == cancelKeyword {
		s.state = StateIdle
		return Outcome{Handled: true, Reply: ReplyCancel, State: StateIdle}
	}

	s.continent = text
	s.state = StateAwaitTimezone
	return Outcome{Handled: true, State: s.state}
}

func (m *Manager) handleZone(s *session, text string) Outcome {
	if text == closeKeyword || text == cancelKeyword {
		s.state = StateIdle
		return Outcome{Handled: true, Reply: ReplyCancel, State: StateIdle}
	}

	zone := s.continent + "/" + text
	s.state = StateIdle
	return Outcome{Handled: true, State: StateIdle, Timezone: zone}
}

// session returns the chat's session, creating an idle one if absent.
// Callers must hold m.mu.
func (m *Manager) session(chatID int64) *session {
	s, ok := m.sessions[chatID]
	if !ok {
		s = &session{state: StateIdle}
		m.sessions[chatID] = s
	}
	return s
}
