package telegram

import (
	"context"
	"sync"

	"github.com/mymmrac/telego"
)

// mockBot is an in-memory BotAPI that records every outgoing call.
type mockBot struct {
	mu sync.Mutex

	sent     []*telego.SendMessageParams
	edits    []*telego.EditMessageTextParams
	answered []string
	commands *telego.SetMyCommandsParams

	updates chan telego.Update
}

func newMockBot() *mockBot {
	return &mockBot{updates: make(chan telego.Update, 16)}
}

func (m *mockBot) GetMe(context.Context) (*telego.User, error) {
	return &telego.User{ID: 42, IsBot: true, Username: "alarmbot_test_bot"}, nil
}

func (m *mockBot) SendMessage(_ context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, params)
	return &telego.Message{MessageID: len(m.sent)}, nil
}

func (m *mockBot) SetMyCommands(_ context.Context, params *telego.SetMyCommandsParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = params
	return nil
}

func (m *mockBot) UpdatesViaLongPolling(context.Context, *telego.GetUpdatesParams, ...telego.LongPollingOption) (<-chan telego.Update, error) {
	return m.updates, nil
}

func (m *mockBot) AnswerCallbackQuery(_ context.Context, params *telego.AnswerCallbackQueryParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answered = append(m.answered, params.CallbackQueryID)
	return nil
}

func (m *mockBot) EditMessageText(_ context.Context, params *telego.EditMessageTextParams) (*telego.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, params)
	return &telego.Message{MessageID: params.MessageID}, nil
}

func (m *mockBot) sentTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	texts := make([]string, len(m.sent))
	for i, p := range m.sent {
		texts[i] = p.Text
	}
	return texts
}

func (m *mockBot) lastSent() *telego.SendMessageParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return nil
	}
	return m.sent[len(m.sent)-1]
}

func (m *mockBot) lastEdit() *telego.EditMessageTextParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.edits) == 0 {
		return nil
	}
	return m.edits[len(m.edits)-1]
}

// fakeUsers is an in-memory UserDirectory.
type fakeUsers struct {
	mu    sync.Mutex
	roles map[int64]string
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{roles: make(map[int64]string)}
}

func (f *fakeUsers) HasUser(id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.roles[id]
	return ok, nil
}

func (f *fakeUsers) InsertUser(id int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[id] = "guest"
	return nil
}

func (f *fakeUsers) HasAccess(id int64, roles ...string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	role, ok := f.roles[id]
	if !ok {
		return false, nil
	}
	for _, r := range roles {
		if role == r {
			return true, nil
		}
	}
	return false, nil
}
