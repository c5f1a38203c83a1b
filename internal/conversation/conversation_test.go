package conversation

import (
	"fmt"
	"testing"

	"github.com/alarmbot/alarmbot/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore records create calls and validates ranges like the real
// crontab store does.
type fakeStore struct {
	daily   []string
	weekday []string
	nextID  int
}

func (f *fakeStore) add(kind *[]string, command string, hour, minute int) (string, error) {
	if hour < 0 || hour > 23 {
		return "", fmt.Errorf("hour %d out of range [0,23]", hour)
	}
	if minute < 0 || minute > 59 {
		return "", fmt.Errorf("minute %d out of range [0,59]", minute)
	}
	f.nextID++
	id := fmt.Sprintf("id%02d", f.nextID)
	*kind = append(*kind, fmt.Sprintf("%s %d:%02d %s", id, hour, minute, command))
	return id, nil
}

func (f *fakeStore) AddDaily(command string, hour, minute int) (string, error) {
	return f.add(&f.daily, command, hour, minute)
}

func (f *fakeStore) AddWeekday(command string, hour, minute int) (string, error) {
	return f.add(&f.weekday, command, hour, minute)
}

func newTestManager(t *testing.T) (*Manager, *fakeStore) {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "debug", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	store := &fakeStore{}
	return New(store, "/usr/local/bin/alarmbot play /opt/alarm.mp3", log), store
}

func TestFullAlarmCreationFlow_Daily(t *testing.T) {
	m, store := newTestManager(t)
	const chat = int64(42)

	out := m.StartNewAlarm(chat)
	assert.Equal(t, StateAwaitAlarmType, out.State)

	out = m.Handle(chat, TypeDaily)
	require.True(t, out.Handled)
	assert.Equal(t, StateAwaitHour, out.State)
	assert.Equal(t, ReplyTimePrompt, out.Reply)

	out = m.Handle(chat, "8:00")
	require.True(t, out.Handled)
	assert.Equal(t, StateIdle, out.State)
	assert.NotEmpty(t, out.AlarmID)
	assert.Contains(t, out.Reply, "Created Daily alarm at: 8:00")
	require.Len(t, store.daily, 1)
	assert.Empty(t, store.weekday)
}

func TestFullAlarmCreationFlow_Weekday(t *testing.T) {
	m, store := newTestManager(t)
	const chat = int64(7)

	m.StartNewAlarm(chat)
	m.Handle(chat, TypeWeekday)
	out := m.Handle(chat, "20:30")

	require.True(t, out.Handled)
	assert.Contains(t, out.Reply, "Created Weekday Only alarm at: 20:30")
	assert.Len(t, store.weekday, 1)
	assert.Empty(t, store.daily)
}

func TestMalformedTime_RecoversToAlarmTypeSelection(t *testing.T) {
	m, store := newTestManager(t)
	const chat = int64(1)

	m.StartNewAlarm(chat)
	m.Handle(chat, TypeDaily)

	out := m.Handle(chat, "25:99")
	require.True(t, out.Handled)
	assert.Equal(t, ReplyBadTime, out.Reply)
	assert.Equal(t, StateAwaitAlarmType, out.State, "recovery returns to type selection, not to idle")
	assert.Empty(t, out.AlarmID)
	assert.Empty(t, store.daily)
	assert.Empty(t, store.weekday)

	// The dialog is still usable after recovery.
	out = m.Handle(chat, TypeDaily)
	require.True(t, out.Handled)
	out = m.Handle(chat, "7:15")
	require.True(t, out.Handled)
	assert.NotEmpty(t, out.AlarmID)
}

func TestInputFailingPatternGateIsDropped(t *testing.T) {
	m, _ := newTestManager(t)
	const chat = int64(1)

	m.StartNewAlarm(chat)

	out := m.Handle(chat, "Hourly")
	assert.False(t, out.Handled)
	assert.Equal(t, StateAwaitAlarmType, m.State(chat))

	m.Handle(chat, TypeDaily)
	out = m.Handle(chat, "eight o'clock")
	assert.False(t, out.Handled)
	assert.Equal(t, StateAwaitHour, m.State(chat))
}

func TestCancelKeywordEndsConversation(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *Manager, chat int64)
		text  string
	}{
		{
			name:  "close during type selection",
			setup: func(m *Manager, chat int64) { m.StartNewAlarm(chat) },
			text:  "Close",
		},
		{
			name:  "cancel during type selection",
			setup: func(m *Manager, chat int64) { m.StartNewAlarm(chat) },
			text:  "/cancel",
		},
		{
			name: "cancel during hour entry",
			setup: func(m *Manager, chat int64) {
				m.StartNewAlarm(chat)
				m.Handle(chat, TypeDaily)
			},
			text: "/cancel",
		},
		{
			name:  "cancel during continent selection",
			setup: func(m *Manager, chat int64) { m.StartTimezone(chat) },
			text:  "/cancel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, store := newTestManager(t)
			const chat = int64(9)
			tt.setup(m, chat)

			out := m.Handle(chat, tt.text)
			require.True(t, out.Handled)
			assert.Equal(t, ReplyCancel, out.Reply)
			assert.Equal(t, StateIdle, out.State)
			assert.Empty(t, store.daily)
			assert.Empty(t, store.weekday)
		})
	}
}

func TestTimezoneFlow(t *testing.T) {
	m, _ := newTestManager(t)
	const chat = int64(3)

	out := m.StartTimezone(chat)
	assert.Equal(t, StateAwaitContinent, out.State)

	out = m.Handle(chat, "Europe")
	require.True(t, out.Handled)
	assert.Equal(t, StateAwaitTimezone, out.State)

	out = m.Handle(chat, "Berlin")
	require.True(t, out.Handled)
	assert.Equal(t, StateIdle, out.State)
	assert.Equal(t, "Europe/Berlin", out.Timezone)
}

func TestSessionsAreIndependentPerChat(t *testing.T) {
	m, _ := newTestManager(t)

	m.StartNewAlarm(1)
	m.Handle(1, TypeDaily)

	m.StartNewAlarm(2)
	m.Handle(2, TypeWeekday)

	// Completing chat 2 must not disturb chat 1's pending selection.
	out := m.Handle(2, "6:00")
	require.True(t, out.Handled)
	assert.Contains(t, out.Reply, "Weekday Only")

	out = m.Handle(1, "8:00")
	require.True(t, out.Handled)
	assert.Contains(t, out.Reply, "Daily")
}

func TestHandle_IdleChatNotHandled(t *testing.T) {
	m, _ := newTestManager(t)

	out := m.Handle(5, "hello")
	assert.False(t, out.Handled)
	assert.Equal(t, StateIdle, out.State)
}
